package soap

import (
	"encoding/xml"
	"fmt"
	"time"
)

// Envelope is the outbound SOAP 1.2 envelope. Encoding uses explicit
// prefixed element names so the produced document matches the published
// schemas byte-for-byte in structure; decoding uses the local-name model in
// decode.go instead.
type Envelope struct {
	XMLName   xml.Name `xml:"soap:Envelope"`
	XmlnsSoap string   `xml:"xmlns:soap,attr"`
	XmlnsWsa  string   `xml:"xmlns:wsa,attr"`
	XmlnsXsi  string   `xml:"xmlns:xsi,attr"`
	Header    Header   `xml:"soap:Header"`
	Body      Body     `xml:"soap:Body"`
}

// Header carries the WS-Addressing fields and, when present, the security
// header. To and Action are flagged mustUnderstand per the IHE profiles.
type Header struct {
	To        *MustUnderstandValue `xml:"wsa:To,omitempty"`
	Action    *MustUnderstandValue `xml:"wsa:Action,omitempty"`
	MessageID string               `xml:"wsa:MessageID,omitempty"`
	RelatesTo string               `xml:"wsa:RelatesTo,omitempty"`
	ReplyTo   *EndpointReference   `xml:"wsa:ReplyTo,omitempty"`
	Security  *SecurityHeader      `xml:"wsse:Security,omitempty"`
}

// MustUnderstandValue is a text element carrying soap:mustUnderstand="1".
type MustUnderstandValue struct {
	MustUnderstand string `xml:"soap:mustUnderstand,attr"`
	Value          string `xml:",chardata"`
}

// EndpointReference is a WS-Addressing endpoint reference.
type EndpointReference struct {
	Address string `xml:"wsa:Address"`
}

// Body wraps the transaction-specific payload. Content is marshaled by its
// own XMLName, so each transaction package supplies a fully tagged struct.
type Body struct {
	Content any
}

// Params collects everything needed to assemble an outbound envelope.
type Params struct {
	To        string
	Action    string
	MessageID string
	RelatesTo string
	Security  *SecurityHeader
	Body      any
}

// NewEnvelope assembles an envelope with the standard addressing header:
// anonymous ReplyTo, mustUnderstand on To and Action, and the message id
// wrapped as a urn:uuid when it is a bare UUID.
func NewEnvelope(p Params) *Envelope {
	env := &Envelope{
		XmlnsSoap: NSEnvelope,
		XmlnsWsa:  NSAddressing,
		XmlnsXsi:  NSXSI,
		Header: Header{
			MessageID: FormatMessageID(p.MessageID),
			RelatesTo: p.RelatesTo,
			ReplyTo:   &EndpointReference{Address: ReplyToAnonymous},
			Security:  p.Security,
		},
		Body: Body{Content: p.Body},
	}
	if p.To != "" {
		env.Header.To = &MustUnderstandValue{MustUnderstand: "1", Value: p.To}
	}
	if p.Action != "" {
		env.Header.Action = &MustUnderstandValue{MustUnderstand: "1", Value: p.Action}
	}
	return env
}

// Encode renders the envelope with an XML declaration.
func (e *Envelope) Encode() ([]byte, error) {
	out, err := xml.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding soap envelope: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// FormatMessageID ensures the WS-Addressing MessageID carries the urn:uuid
// scheme. Already-qualified ids pass through unchanged.
func FormatMessageID(id string) string {
	if id == "" {
		return ""
	}
	if len(id) >= 4 && id[:4] == "urn:" {
		return id
	}
	return "urn:uuid:" + id
}

// --------------------------------------------------------------------------
// Security header
// --------------------------------------------------------------------------

// AssertionAttributes are the identity claims stamped into the SAML
// assertion on every outbound call.
type AssertionAttributes struct {
	SubjectID       string
	SubjectRole     string
	Organization    string
	OrganizationID  string
	HomeCommunityID string
	PurposeOfUse    string
}

// SecurityHeader is the wsse:Security header: a wsu:Timestamp plus an
// unsigned saml2:Assertion. Signing happens downstream of envelope
// assembly and is not part of this codec.
type SecurityHeader struct {
	XmlnsWsse string     `xml:"xmlns:wsse,attr"`
	XmlnsWsu  string     `xml:"xmlns:wsu,attr"`
	Timestamp Timestamp  `xml:"wsu:Timestamp"`
	Assertion *Assertion `xml:"saml2:Assertion,omitempty"`
}

// Timestamp bounds the validity window of the security header.
type Timestamp struct {
	Created string `xml:"wsu:Created"`
	Expires string `xml:"wsu:Expires"`
}

// Assertion is the SAML 2.0 assertion carrying the attribute statement.
type Assertion struct {
	XmlnsSaml2   string             `xml:"xmlns:saml2,attr"`
	ID           string             `xml:"ID,attr"`
	IssueInstant string             `xml:"IssueInstant,attr"`
	Version      string             `xml:"Version,attr"`
	Issuer       Issuer             `xml:"saml2:Issuer"`
	Subject      Subject            `xml:"saml2:Subject"`
	Conditions   Conditions         `xml:"saml2:Conditions"`
	AuthnStmt    AuthnStatement     `xml:"saml2:AuthnStatement"`
	Attributes   AttributeStatement `xml:"saml2:AttributeStatement"`
}

type Issuer struct {
	Format string `xml:"Format,attr"`
	Value  string `xml:",chardata"`
}

type Subject struct {
	NameID       NameID              `xml:"saml2:NameID"`
	Confirmation SubjectConfirmation `xml:"saml2:SubjectConfirmation"`
}

type NameID struct {
	Format string `xml:"Format,attr"`
	Value  string `xml:",chardata"`
}

type SubjectConfirmation struct {
	Method string `xml:"Method,attr"`
}

type Conditions struct {
	NotBefore    string `xml:"NotBefore,attr"`
	NotOnOrAfter string `xml:"NotOnOrAfter,attr"`
}

type AuthnStatement struct {
	AuthnInstant string       `xml:"AuthnInstant,attr"`
	AuthnContext AuthnContext `xml:"saml2:AuthnContext"`
}

type AuthnContext struct {
	ClassRef string `xml:"saml2:AuthnContextClassRef"`
}

type AttributeStatement struct {
	Attributes []Attribute `xml:"saml2:Attribute"`
}

type Attribute struct {
	Name  string         `xml:"Name,attr"`
	Value AttributeValue `xml:"saml2:AttributeValue"`
}

// AttributeValue holds either a plain string or a coded HL7 element (role
// and purpose-of-use use the coded form).
type AttributeValue struct {
	XsiType string        `xml:"xsi:type,attr,omitempty"`
	XmlnsXs string        `xml:"xmlns:xs,attr,omitempty"`
	Text    string        `xml:",chardata"`
	Role    *CodedElement `xml:"Role,omitempty"`
	Purpose *CodedElement `xml:"PurposeOfUse,omitempty"`
}

// CodedElement is an HL7 CE value inside a SAML attribute.
type CodedElement struct {
	XmlnsHl7       string `xml:"xmlns,attr"`
	XsiType        string `xml:"xsi:type,attr"`
	Code           string `xml:"code,attr"`
	CodeSystem     string `xml:"codeSystem,attr"`
	CodeSystemName string `xml:"codeSystemName,attr"`
	DisplayName    string `xml:"displayName,attr"`
}

// SAML attribute names.
const (
	attrSubjectID       = "urn:oasis:names:tc:xspa:1.0:subject:subject-id"
	attrOrganization    = "urn:oasis:names:tc:xspa:1.0:subject:organization"
	attrOrganizationID  = "urn:oasis:names:tc:xspa:1.0:subject:organization-id"
	attrHomeCommunityID = "urn:nhin:names:saml:homeCommunityId"
	attrRole            = "urn:oasis:names:tc:xacml:2.0:subject:role"
	attrPurposeOfUse    = "urn:oasis:names:tc:xspa:1.0:subject:purposeofuse"
)

const timestampValidity = time.Hour

// BuildSecurityHeader assembles the security header for one outbound call.
// The organization-id and homeCommunityId attributes are urn:oid qualified;
// role defaults to the SNOMED medical-doctor code when no role is supplied.
func BuildSecurityHeader(attrs AssertionAttributes, assertionID string, now time.Time) *SecurityHeader {
	created := now.UTC().Format(time.RFC3339)
	expires := now.UTC().Add(timestampValidity).Format(time.RFC3339)

	role := attrs.SubjectRole
	if role == "" {
		role = "Medical doctor"
	}

	samlAttrs := []Attribute{
		{Name: attrSubjectID, Value: stringValue(attrs.SubjectID)},
		{Name: attrOrganization, Value: stringValue(attrs.Organization)},
		{Name: attrOrganizationID, Value: stringValue(oidURN(attrs.OrganizationID))},
		{Name: attrHomeCommunityID, Value: stringValue(oidURN(attrs.HomeCommunityID))},
		{Name: attrRole, Value: AttributeValue{Role: &CodedElement{
			XmlnsHl7:       NSHL7V3,
			XsiType:        "CE",
			Code:           RoleCodeMedicalDoctor,
			CodeSystem:     RoleCodeSystemSNOMED,
			CodeSystemName: "SNOMED_CT",
			DisplayName:    role,
		}}},
		{Name: attrPurposeOfUse, Value: AttributeValue{Purpose: &CodedElement{
			XmlnsHl7:       NSHL7V3,
			XsiType:        "CE",
			Code:           attrs.PurposeOfUse,
			CodeSystem:     PurposeOfUseCodeSystem,
			CodeSystemName: "nhin-purpose",
			DisplayName:    attrs.PurposeOfUse,
		}}},
	}

	return &SecurityHeader{
		XmlnsWsse: NSWSSecurity,
		XmlnsWsu:  NSWSUtility,
		Timestamp: Timestamp{Created: created, Expires: expires},
		Assertion: &Assertion{
			XmlnsSaml2:   NSSAML2,
			ID:           "_" + assertionID,
			IssueInstant: created,
			Version:      "2.0",
			Issuer: Issuer{
				Format: "urn:oasis:names:tc:SAML:2.0:nameid-format:entity",
				Value:  attrs.Organization,
			},
			Subject: Subject{
				NameID: NameID{
					Format: "urn:oasis:names:tc:SAML:1.1:nameid-format:emailAddress",
					Value:  attrs.SubjectID,
				},
				Confirmation: SubjectConfirmation{
					Method: "urn:oasis:names:tc:SAML:2.0:cm:holder-of-key",
				},
			},
			Conditions: Conditions{NotBefore: created, NotOnOrAfter: expires},
			AuthnStmt: AuthnStatement{
				AuthnInstant: created,
				AuthnContext: AuthnContext{
					ClassRef: "urn:oasis:names:tc:SAML:2.0:ac:classes:X509",
				},
			},
			Attributes: AttributeStatement{Attributes: samlAttrs},
		},
	}
}

func stringValue(s string) AttributeValue {
	return AttributeValue{XsiType: "xs:string", XmlnsXs: NSXS, Text: s}
}

// oidURN wraps a bare OID as urn:oid:<oid>. Already-qualified values pass
// through unchanged.
func oidURN(oid string) string {
	if oid == "" || len(oid) >= 8 && oid[:8] == "urn:oid:" {
		return oid
	}
	return "urn:oid:" + oid
}
