package blobstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDocumentKey(t *testing.T) {
	cases := []struct {
		contentType string
		want        string
	}{
		{"text/xml", "cx-1/pat-1/doc-1.xml"},
		{"application/pdf", "cx-1/pat-1/doc-1.pdf"},
		{"application/pdf; charset=binary", "cx-1/pat-1/doc-1.pdf"},
		{"", "cx-1/pat-1/doc-1"},
	}
	for _, c := range cases {
		if got := DocumentKey("cx-1", "pat-1", "doc-1", c.contentType); got != c.want {
			t.Errorf("DocumentKey(%q) = %q, want %q", c.contentType, got, c.want)
		}
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	ok, err := store.Exists(ctx, "k1")
	if err != nil || ok {
		t.Fatalf("exists before put = %v, %v", ok, err)
	}

	data := []byte("<ClinicalDocument/>")
	if err := store.Put(ctx, "k1", data, "text/xml"); err != nil {
		t.Fatalf("put: %v", err)
	}

	ok, err = store.Exists(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("exists after put = %v, %v", ok, err)
	}

	blob, err := store.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(blob.Data) != string(data) {
		t.Error("data does not round-trip")
	}
	if blob.ContentType != "text/xml" {
		t.Errorf("content type = %q", blob.ContentType)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get missing = %v, want ErrNotFound", err)
	}

	url, err := store.Presign(ctx, "k1", time.Hour)
	if err != nil || url == "" {
		t.Errorf("presign = %q, %v", url, err)
	}
}
