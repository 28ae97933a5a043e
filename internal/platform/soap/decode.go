package soap

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotSOAP marks a payload that is not a SOAP envelope at all.
	ErrNotSOAP = errors.New("payload is not a soap envelope")
	// ErrEmptyBody marks an envelope whose body carries no payload element.
	ErrEmptyBody = errors.New("soap body is empty")
)

// ReceivedEnvelope is the decoded form of an inbound message. Struct tags use
// local names only, so any namespace prefix a remote party chooses still
// unmarshals; this is the single place namespaces are normalized.
type ReceivedEnvelope struct {
	XMLName xml.Name       `xml:"Envelope"`
	Header  ReceivedHeader `xml:"Header"`
	Body    ReceivedBody   `xml:"Body"`
}

// ReceivedHeader exposes the addressing fields needed for correlation.
type ReceivedHeader struct {
	To        string          `xml:"To"`
	Action    string          `xml:"Action"`
	MessageID string          `xml:"MessageID"`
	RelatesTo string          `xml:"RelatesTo"`
	ReplyTo   ReceivedReplyTo `xml:"ReplyTo"`
}

type ReceivedReplyTo struct {
	Address string `xml:"Address"`
}

// ReceivedBody keeps the payload as raw inner XML so each transaction
// package can unmarshal its own body type from it.
type ReceivedBody struct {
	Raw []byte `xml:",innerxml"`
}

// Decode parses an inbound SOAP envelope. The body payload stays raw; use
// DecodeBody to unmarshal it into a transaction-specific type.
func Decode(data []byte) (*ReceivedEnvelope, error) {
	var env ReceivedEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSOAP, err)
	}
	return &env, nil
}

// DecodeBody unmarshals the envelope body payload into v.
func (e *ReceivedEnvelope) DecodeBody(v any) error {
	raw := bytes.TrimSpace(e.Body.Raw)
	if len(raw) == 0 {
		return ErrEmptyBody
	}
	if err := xml.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding soap body: %w", err)
	}
	return nil
}

// MessageID returns the header message id with any urn:uuid prefix removed.
func (e *ReceivedEnvelope) MessageID() string {
	return StripURNPrefix(e.Header.MessageID)
}

// RelatesTo returns the correlation id the response relates to, with any
// urn:uuid prefix removed.
func (e *ReceivedEnvelope) RelatesTo() string {
	return StripURNPrefix(e.Header.RelatesTo)
}

// StripURNPrefix removes a leading urn:uuid: (or urn:) scheme from an
// addressing identifier.
func StripURNPrefix(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "urn:uuid:")
	return id
}

// StatusSuffix reduces a namespaced registry status attribute to the token
// after the last colon, e.g. "...ResponseStatusType:PartialSuccess" to
// "PartialSuccess".
func StatusSuffix(status string) string {
	if i := strings.LastIndex(status, ":"); i >= 0 {
		return status[i+1:]
	}
	return status
}

// addressingProbe decodes only the header, skipping the body entirely.
type addressingProbe struct {
	XMLName xml.Name       `xml:"Envelope"`
	Header  ReceivedHeader `xml:"Header"`
}

// PeekHeader extracts the WS-Addressing fields without touching the body.
// The throttle guard uses this to address a rejection fault back to the
// requester before any payload parsing happens.
func PeekHeader(data []byte) (ReceivedHeader, error) {
	var probe addressingProbe
	if err := xml.Unmarshal(data, &probe); err != nil {
		return ReceivedHeader{}, fmt.Errorf("%w: %v", ErrNotSOAP, err)
	}
	return probe.Header, nil
}
