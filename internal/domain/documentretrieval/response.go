package documentretrieval

import (
	"strings"

	"github.com/hie/bridge/internal/domain/exchange"
	"github.com/hie/bridge/internal/platform/soap"
)

// RetrieveResponseBody is the local-name decode model of an ITI-39
// response.
type RetrieveResponseBody struct {
	RegistryResponse  RegistryResponse   `xml:"RegistryResponse"`
	DocumentResponses []DocumentResponse `xml:"DocumentResponse"`
}

type RegistryResponse struct {
	Status            string            `xml:"status,attr"`
	RegistryErrorList RegistryErrorList `xml:"RegistryErrorList"`
}

type RegistryErrorList struct {
	Errors []RegistryError `xml:"RegistryError"`
}

type RegistryError struct {
	ErrorCode   string `xml:"errorCode,attr"`
	CodeContext string `xml:"codeContext,attr"`
	Location    string `xml:"location,attr"`
	Severity    string `xml:"severity,attr"`
}

type DocumentResponse struct {
	HomeCommunityID    string          `xml:"HomeCommunityId"`
	RepositoryUniqueID string          `xml:"RepositoryUniqueId"`
	DocumentUniqueID   string          `xml:"DocumentUniqueId"`
	MimeType           string          `xml:"mimeType"`
	Document           DocumentContent `xml:"Document"`
}

// DocumentContent captures either inline base64 text or an xop:Include
// reference to a multipart attachment.
type DocumentContent struct {
	Inline  string      `xml:",chardata"`
	Include *XopInclude `xml:"Include"`
}

type XopInclude struct {
	Href string `xml:"href,attr"`
}

// ResponseCode derives the three-valued classification from the registry
// status attribute suffix.
func (r *RetrieveResponseBody) ResponseCode() exchange.ResponseCode {
	switch soap.StatusSuffix(r.RegistryResponse.Status) {
	case "Success":
		return exchange.ResponseSuccess
	case "PartialSuccess":
		return exchange.ResponsePartialSuccess
	default:
		return exchange.ResponseFailure
	}
}

// RegistryErrors converts the decoded error list to the translator's input
// form.
func (r *RetrieveResponseBody) RegistryErrors() []exchange.RegistryError {
	errs := make([]exchange.RegistryError, 0, len(r.RegistryResponse.RegistryErrorList.Errors))
	for _, e := range r.RegistryResponse.RegistryErrorList.Errors {
		errs = append(errs, exchange.RegistryError{
			ErrorCode:   e.ErrorCode,
			CodeContext: e.CodeContext,
			Location:    e.Location,
			Severity:    e.Severity,
		})
	}
	return errs
}

// Bytes resolves the raw document bytes for one DocumentResponse using the
// multipart context of the message it arrived in.
func (d *DocumentResponse) Bytes(parts *soap.MessageParts) ([]byte, error) {
	href := ""
	if d.Document.Include != nil {
		href = d.Document.Include.Href
	}
	return parts.ResolveDocument(href, d.Document.Inline)
}

// Home returns the home community id without the urn:oid prefix.
func (d *DocumentResponse) Home() string {
	return strings.TrimPrefix(d.HomeCommunityID, "urn:oid:")
}
