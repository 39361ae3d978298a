// Package model contains the print domain types shared by the resolver,
// the worker pipeline and the persisted records.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrUnrecognizedReference is returned when no accepted storage-location
// encoding matches the input.
var ErrUnrecognizedReference = errors.New("unrecognized storage reference")

// StorageReference locates a binary object in blob storage. It identifies a
// blob; it never owns one.
type StorageReference struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
}

// IsZero reports whether the reference is unset.
func (r StorageReference) IsZero() bool {
	return r.Bucket == "" && r.Path == ""
}

// URI renders the reference as scheme://bucket/path.
func (r StorageReference) URI(scheme string) string {
	return scheme + "://" + r.Bucket + "/" + r.Path
}

// Base returns the last path segment.
func (r StorageReference) Base() string {
	if i := strings.LastIndex(r.Path, "/"); i >= 0 {
		return r.Path[i+1:]
	}
	return r.Path
}

// UnmarshalJSON accepts every encoding ParseStorageReference understands.
func (r *StorageReference) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ref, err := ParseStorageReference(raw)
	if err != nil {
		return err
	}
	*r = ref
	return nil
}

// referenceParser is one accepted encoding of a storage location.
type referenceParser func(v any, defaultBucket string) (StorageReference, bool)

// referenceParsers are tried in order; the first match wins.
var referenceParsers = []referenceParser{
	parseURIReference,
	parseHTTPReference,
	parseObjectReference,
	parseBarePath,
}

// ParseStorageReference normalizes a scheme://bucket/path URI, an https object
// URL or a structured object into a StorageReference.
func ParseStorageReference(v any) (StorageReference, error) {
	return ParseStorageReferenceIn(v, "")
}

// ParseStorageReferenceIn is ParseStorageReference with a bucket that bare
// object paths resolve against.
func ParseStorageReferenceIn(v any, defaultBucket string) (StorageReference, error) {
	for _, parse := range referenceParsers {
		if ref, ok := parse(v, defaultBucket); ok {
			return ref, nil
		}
	}
	return StorageReference{}, fmt.Errorf("%w: %s", ErrUnrecognizedReference, describe(v))
}

var uriPattern = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9+.-]*)://([^/]+)/(.+)$`)

func parseURIReference(v any, _ string) (StorageReference, bool) {
	s, ok := v.(string)
	if !ok {
		return StorageReference{}, false
	}
	m := uriPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return StorageReference{}, false
	}
	switch strings.ToLower(m[1]) {
	case "http", "https":
		return StorageReference{}, false
	}
	return newReference(m[2], m[3])
}

func parseHTTPReference(v any, _ string) (StorageReference, bool) {
	s, ok := v.(string)
	if !ok {
		return StorageReference{}, false
	}
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return StorageReference{}, false
	}
	p := strings.TrimPrefix(u.Path, "/")
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "firebasestorage.googleapis.com":
		// /v0/b/{bucket}/o/{object}
		rest, ok := strings.CutPrefix(p, "v0/b/")
		if !ok {
			return StorageReference{}, false
		}
		bucket, object, ok := strings.Cut(rest, "/o/")
		if !ok {
			return StorageReference{}, false
		}
		return newReference(bucket, object)
	case strings.HasSuffix(host, ".storage.googleapis.com"):
		return newReference(strings.TrimSuffix(host, ".storage.googleapis.com"), p)
	default:
		// Path-style: storage.googleapis.com, MinIO and S3 endpoints.
		bucket, object, ok := strings.Cut(p, "/")
		if !ok {
			return StorageReference{}, false
		}
		return newReference(bucket, object)
	}
}

var (
	objectPathKeys = []string{"path", "object", "gcsPath", "storagePath", "name"}
	objectURIKeys  = []string{"uri", "gcsPath", "storagePath", "url"}
)

func parseObjectReference(v any, defaultBucket string) (StorageReference, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return StorageReference{}, false
	}
	bucket, _ := m["bucket"].(string)
	bucket = strings.TrimSpace(bucket)
	for _, key := range objectURIKeys {
		s, _ := m[key].(string)
		if s == "" {
			continue
		}
		if ref, ok := parseURIReference(s, ""); ok {
			return ref, true
		}
		if ref, ok := parseHTTPReference(s, ""); ok {
			return ref, true
		}
	}
	if bucket == "" {
		bucket = defaultBucket
	}
	if bucket == "" {
		return StorageReference{}, false
	}
	for _, key := range objectPathKeys {
		if s, _ := m[key].(string); strings.TrimSpace(s) != "" {
			return newReference(bucket, s)
		}
	}
	return StorageReference{}, false
}

func parseBarePath(v any, defaultBucket string) (StorageReference, bool) {
	s, ok := v.(string)
	if !ok || defaultBucket == "" || strings.Contains(s, "://") {
		return StorageReference{}, false
	}
	return newReference(defaultBucket, s)
}

func newReference(bucket, path string) (StorageReference, bool) {
	bucket = strings.TrimSpace(bucket)
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if bucket == "" || path == "" {
		return StorageReference{}, false
	}
	return StorageReference{Bucket: bucket, Path: path}, true
}

func describe(v any) string {
	switch t := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return fmt.Sprintf("%q", t)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		return fmt.Sprintf("object with keys %v", keys)
	default:
		return fmt.Sprintf("%T", v)
	}
}
