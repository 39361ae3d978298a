package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestJSONOutputCarriesContext(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf, ServiceName: "render-worker"})

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithLineItem(ctx, "order-9", "li-3")
	log.WithComponent("pipeline").FromContext(ctx).Info("rendered", "checksum", "abc")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	want := map[string]string{
		"service":      "render-worker",
		"component":    "pipeline",
		"request_id":   "req-1",
		"order_id":     "order-9",
		"line_item_id": "li-3",
		"checksum":     "abc",
		"msg":          "rendered",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("expected %s=%q, got %v", k, v, entry[k])
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Format: "text", Output: &buf})
	log.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
	log.Warn("shown")
	if buf.Len() == 0 {
		t.Fatal("expected warn to be written")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "DEBUG",
		"WARNING": "WARN",
		" error ": "ERROR",
		"bogus":   "INFO",
	}
	for in, want := range tests {
		if got := parseLevel(in).String(); got != want {
			t.Errorf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
