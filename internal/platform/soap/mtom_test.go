package soap

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"testing"
)

func buildMultipart(t *testing.T, rootXML string, attachments map[string][]byte) (string, []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	rootHdr := textproto.MIMEHeader{}
	rootHdr.Set("Content-Type", `application/xop+xml; charset=UTF-8; type="application/soap+xml"`)
	rootHdr.Set("Content-Id", "<root.message@example.org>")
	part, err := w.CreatePart(rootHdr)
	if err != nil {
		t.Fatalf("create root part: %v", err)
	}
	part.Write([]byte(rootXML))

	for cid, data := range attachments {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Type", "application/octet-stream")
		hdr.Set("Content-Id", "<"+cid+">")
		p, err := w.CreatePart(hdr)
		if err != nil {
			t.Fatalf("create attachment part: %v", err)
		}
		p.Write(data)
	}
	w.Close()

	ct := fmt.Sprintf(`multipart/related; boundary=%s; type="application/xop+xml"; start="<root.message@example.org>"`, w.Boundary())
	return ct, buf.Bytes()
}

func TestParseMessagePlainXML(t *testing.T) {
	body := []byte(`<?xml version="1.0"?><Envelope/>`)
	parts, err := ParseMessage(ContentTypeSOAP, body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !bytes.Equal(parts.Root, body) {
		t.Error("plain response root should be the raw body")
	}
	if len(parts.Attachments) != 0 {
		t.Errorf("plain response should carry no attachments, got %d", len(parts.Attachments))
	}
}

func TestParseMessageMultipart(t *testing.T) {
	pdf := []byte("%PDF-1.4 fake content")
	ct, body := buildMultipart(t, `<Envelope><Body/></Envelope>`, map[string][]byte{
		"doc1@example.org": pdf,
	})

	parts, err := ParseMessage(ct, body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !bytes.Contains(parts.Root, []byte("<Body/>")) {
		t.Errorf("root = %q", parts.Root)
	}

	data, err := parts.ResolveDocument("cid:doc1@example.org", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !bytes.Equal(data, pdf) {
		t.Error("attachment bytes do not round-trip")
	}

	if _, err := parts.ResolveDocument("cid:missing@example.org", ""); err == nil {
		t.Error("expected error for unknown content id")
	}
}

func TestResolveDocumentInlineBase64(t *testing.T) {
	raw := []byte("<ClinicalDocument/>")
	inline := base64.StdEncoding.EncodeToString(raw)

	parts := &MessageParts{}
	data, err := parts.ResolveDocument("", inline)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !bytes.Equal(data, raw) {
		t.Errorf("decoded = %q", data)
	}

	if _, err := parts.ResolveDocument("", "   "); err == nil {
		t.Error("expected error for empty document content")
	}
}
