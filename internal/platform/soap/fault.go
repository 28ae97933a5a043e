package soap

import (
	"bytes"
	"encoding/xml"
)

// Fault reason texts used by the admission and mode gates.
const (
	ReasonTooMuchActivity = "too much activity"
	ReasonUnsupportedMode = "deferred mode not supported"
)

// Fault code values (SOAP 1.2).
const (
	FaultCodeSender   = "soap:Sender"
	FaultCodeReceiver = "soap:Receiver"
)

// Fault is the outbound soap:Fault body element.
type Fault struct {
	XMLName xml.Name    `xml:"soap:Fault"`
	Code    FaultCode   `xml:"soap:Code"`
	Reason  FaultReason `xml:"soap:Reason"`
	Detail  string      `xml:"soap:Detail,omitempty"`
}

type FaultCode struct {
	Value string `xml:"soap:Value"`
}

type FaultReason struct {
	Text FaultText `xml:"soap:Text"`
}

type FaultText struct {
	Lang  string `xml:"xml:lang,attr"`
	Value string `xml:",chardata"`
}

// NewFaultEnvelope builds a fault response addressed back to the requester.
// Only transport-level information (message id to relate to) is required, so
// this works before any body decoding has happened.
func NewFaultEnvelope(messageID, relatesTo, codeValue, reason string) *Envelope {
	return NewEnvelope(Params{
		MessageID: messageID,
		RelatesTo: relatesTo,
		Body: Fault{
			Code:   FaultCode{Value: codeValue},
			Reason: FaultReason{Text: FaultText{Lang: "en", Value: reason}},
		},
	})
}

// ReceivedFault is the namespace-agnostic decoded form of a soap:Fault.
type ReceivedFault struct {
	XMLName xml.Name `xml:"Fault"`
	Code    struct {
		Value string `xml:"Value"`
	} `xml:"Code"`
	Reason struct {
		Text string `xml:"Text"`
	} `xml:"Reason"`
	// SOAP 1.1 fallback fields; some gateways still answer in the old shape.
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

// ReasonText returns the human-readable fault reason regardless of SOAP
// version.
func (f *ReceivedFault) ReasonText() string {
	if f.Reason.Text != "" {
		return f.Reason.Text
	}
	return f.FaultString
}

// ParseFault reports whether the envelope body is a soap:Fault and, if so,
// returns its decoded form.
func ParseFault(env *ReceivedEnvelope) (*ReceivedFault, bool) {
	raw := bytes.TrimSpace(env.Body.Raw)
	if len(raw) == 0 || !bytes.Contains(raw, []byte("Fault")) {
		return nil, false
	}
	var f ReceivedFault
	if err := xml.Unmarshal(raw, &f); err != nil {
		return nil, false
	}
	if f.XMLName.Local != "Fault" {
		return nil, false
	}
	return &f, true
}
