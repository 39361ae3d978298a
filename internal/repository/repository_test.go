package repository

import (
	"context"
	"reflect"
	"sync"
	"testing"

	rerrors "github.com/dharsanguruparan/PrintReady/internal/errors"
)

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"title": "Sunset",
		"productionAsset": map[string]any{
			"url":    "gs://old/print-ready.tif",
			"legacy": true,
		},
		"tags": []any{"a"},
	}
	src := map[string]any{
		"productionAsset": map[string]any{"url": "gs://new/print-ready.tif", "dpi": 300.0},
		"tags":            []any{"b"},
	}
	got := DeepMerge(dst, src)
	want := map[string]any{
		"title": "Sunset",
		"productionAsset": map[string]any{
			"url":    "gs://new/print-ready.tif",
			"legacy": true,
			"dpi":    300.0,
		},
		"tags": []any{"b"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("merge = %#v\nwant %#v", got, want)
	}
	if dst["productionAsset"].(map[string]any)["url"] != "gs://old/print-ready.tif" {
		t.Fatal("DeepMerge modified its input")
	}
}

func TestDeepMergeIdempotent(t *testing.T) {
	base := map[string]any{"keep": 1.0}
	partial := map[string]any{"renderStatus": "completed", "outputFiles": map[string]any{"tiff": "gs://b/x.tif"}}
	once := DeepMerge(base, partial)
	twice := DeepMerge(once, partial)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("merging the same partial twice changed the record: %v vs %v", once, twice)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if _, err := s.Get(ctx, Designs, "d1"); !rerrors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	s.Put(Designs, "d1", map[string]any{"title": "Sunset", "nested": map[string]any{"a": 1.0}})

	if err := s.Merge(ctx, Designs, "d1", map[string]any{"nested": map[string]any{"b": 2.0}}); err != nil {
		t.Fatal(err)
	}
	doc, err := s.Get(ctx, Designs, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if doc["title"] != "Sunset" || !reflect.DeepEqual(doc["nested"], map[string]any{"a": 1.0, "b": 2.0}) {
		t.Fatalf("unexpected doc: %v", doc)
	}

	doc["title"] = "mutated"
	again, _ := s.Get(ctx, Designs, "d1")
	if again["title"] != "Sunset" {
		t.Fatal("Get should return a copy")
	}

	if err := s.Merge(ctx, LineItems("o1"), "li1", map[string]any{"renderStatus": string(StatusQueued)}); err != nil {
		t.Fatal(err)
	}
	li, err := s.Get(ctx, "orders/o1/lineItems", "li1")
	if err != nil || li["renderStatus"] != "queued" {
		t.Fatalf("merge should create missing documents: %v %v", li, err)
	}
}

func TestMemoryStoreConcurrentMerges(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			_ = s.Merge(ctx, Designs, "d1", map[string]any{key: float64(i)})
		}(i)
	}
	wg.Wait()
	doc, err := s.Get(ctx, Designs, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if len(doc) != 20 {
		t.Fatalf("expected every merge to survive, got %d fields", len(doc))
	}
}
