package soap

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"strings"
)

var (
	// ErrNoRootPart marks an MTOM package without a usable XML root part.
	ErrNoRootPart = errors.New("mtom package has no root part")
	// ErrAttachmentNotFound marks an xop reference to a missing part.
	ErrAttachmentNotFound = errors.New("referenced attachment not found")
)

// MessageParts is a received SOAP message split into its XML root and any
// binary attachments keyed by Content-ID.
type MessageParts struct {
	Root        []byte
	Attachments map[string][]byte
}

// ParseMessage splits a response into root XML and attachments. Plain
// application/soap+xml responses yield a MessageParts with no attachments;
// multipart/related responses are walked part by part, the first XML part
// (or the one named by the start parameter) becoming the root.
func ParseMessage(contentType string, body []byte) (*MessageParts, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Some gateways omit the header entirely; assume plain XML.
		return &MessageParts{Root: body}, nil
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return &MessageParts{Root: body}, nil
	}

	boundary := params["boundary"]
	if boundary == "" {
		return nil, fmt.Errorf("multipart response without boundary")
	}
	start := trimContentID(params["start"])

	parts := &MessageParts{Attachments: map[string][]byte{}}
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading multipart response: %w", err)
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return nil, fmt.Errorf("reading multipart part: %w", err)
		}
		cid := trimContentID(part.Header.Get("Content-Id"))
		partType := part.Header.Get("Content-Type")

		switch {
		case parts.Root == nil && start != "" && cid == start:
			parts.Root = data
		case parts.Root == nil && start == "" && isXMLContentType(partType):
			parts.Root = data
		default:
			parts.Attachments[cid] = data
		}
	}
	if parts.Root == nil {
		return nil, ErrNoRootPart
	}
	return parts, nil
}

// ResolveDocument returns the raw bytes for one retrieved document. An
// xop:Include href wins over inline content; inline content is base64
// decoded, falling back to the raw bytes when it is not valid base64.
func (p *MessageParts) ResolveDocument(xopHref, inline string) ([]byte, error) {
	if xopHref != "" {
		cid := trimContentID(xopHref)
		data, ok := p.Attachments[cid]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrAttachmentNotFound, cid)
		}
		return data, nil
	}
	trimmed := strings.TrimSpace(inline)
	if trimmed == "" {
		return nil, errors.New("document has neither attachment reference nor inline content")
	}
	if decoded, err := base64.StdEncoding.DecodeString(trimmed); err == nil {
		return decoded, nil
	}
	return []byte(inline), nil
}

// trimContentID normalizes a Content-ID header or cid: href to the bare id:
// strips angle brackets, the cid: scheme, and percent-encoding.
func trimContentID(cid string) string {
	cid = strings.TrimSpace(cid)
	cid = strings.TrimPrefix(cid, "cid:")
	cid = strings.TrimPrefix(cid, "<")
	cid = strings.TrimSuffix(cid, ">")
	if unescaped, err := url.QueryUnescape(cid); err == nil {
		cid = unescaped
	}
	return cid
}

func isXMLContentType(ct string) bool {
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return strings.Contains(mediaType, "xml")
}
