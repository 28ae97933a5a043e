package documentretrieval

import (
	"encoding/base64"
	"encoding/xml"

	"github.com/hie/bridge/internal/domain/exchange"
	"github.com/hie/bridge/internal/platform/soap"
)

// InboundDocument is one document the backend hands back for an inbound
// retrieval request.
type InboundDocument struct {
	Reference exchange.DocumentReference
	Data      []byte
}

// RetrieveResponseOut is the encode model for an outbound ITI-39 response.
// Documents are carried inline as base64; MTOM packaging on the inbound
// serving path is not offered.
type RetrieveResponseOut struct {
	XMLName           xml.Name              `xml:"xdsb:RetrieveDocumentSetResponse"`
	XmlnsXdsb         string                `xml:"xmlns:xdsb,attr"`
	XmlnsRs           string                `xml:"xmlns:rs,attr"`
	RegistryResponse  RegistryResponseOut   `xml:"rs:RegistryResponse"`
	DocumentResponses []DocumentResponseOut `xml:"xdsb:DocumentResponse,omitempty"`
}

type RegistryResponseOut struct {
	Status            string                `xml:"status,attr"`
	RegistryErrorList *RegistryErrorListOut `xml:"rs:RegistryErrorList,omitempty"`
}

type RegistryErrorListOut struct {
	Errors []RegistryErrorOut `xml:"rs:RegistryError"`
}

type RegistryErrorOut struct {
	ErrorCode   string `xml:"errorCode,attr"`
	CodeContext string `xml:"codeContext,attr"`
	Severity    string `xml:"severity,attr"`
}

type DocumentResponseOut struct {
	HomeCommunityID    string `xml:"xdsb:HomeCommunityId"`
	RepositoryUniqueID string `xml:"xdsb:RepositoryUniqueId"`
	DocumentUniqueID   string `xml:"xdsb:DocumentUniqueId"`
	MimeType           string `xml:"xdsb:mimeType"`
	Document           string `xml:"xdsb:Document"`
}

// BuildInboundResponse renders the response for an inbound retrieval
// request. A backend error becomes a Failure with one registry error; a
// partial fetch (some documents missing) becomes PartialSuccess.
func BuildInboundResponse(docs []InboundDocument, requested int, processingError string) *RetrieveResponseOut {
	out := &RetrieveResponseOut{
		XmlnsXdsb: soap.NSIheIti,
		XmlnsRs:   soap.NSRs,
	}
	if processingError != "" {
		out.RegistryResponse = RegistryResponseOut{
			Status: soap.StatusFailure,
			RegistryErrorList: &RegistryErrorListOut{Errors: []RegistryErrorOut{{
				ErrorCode:   "XDSRepositoryError",
				CodeContext: processingError,
				Severity:    "urn:oasis:names:tc:ebxml-regrep:ErrorSeverityType:Error",
			}}},
		}
		return out
	}

	status := soap.StatusSuccess
	if len(docs) < requested {
		status = soap.StatusPartialSuccess
	}
	out.RegistryResponse = RegistryResponseOut{Status: status}

	for _, d := range docs {
		out.DocumentResponses = append(out.DocumentResponses, DocumentResponseOut{
			HomeCommunityID:    homeURN(d.Reference.HomeCommunityID),
			RepositoryUniqueID: d.Reference.RepositoryUniqueID,
			DocumentUniqueID:   d.Reference.DocumentUniqueID,
			MimeType:           d.Reference.ContentType,
			Document:           base64.StdEncoding.EncodeToString(d.Data),
		})
	}
	return out
}

// InboundRequest is the decoded form of an inbound RetrieveDocumentSetRequest.
type InboundRequest struct {
	XMLName          xml.Name                 `xml:"RetrieveDocumentSetRequest"`
	DocumentRequests []InboundDocumentRequest `xml:"DocumentRequest"`
}

type InboundDocumentRequest struct {
	HomeCommunityID    string `xml:"HomeCommunityId"`
	RepositoryUniqueID string `xml:"RepositoryUniqueId"`
	DocumentUniqueID   string `xml:"DocumentUniqueId"`
}
