// Package documentretrieval implements the XCA document retrieval
// transaction (ITI-39): building RetrieveDocumentSetRequest bodies,
// decoding responses, and moving the retrieved bytes into blob storage.
package documentretrieval

import (
	"encoding/xml"
	"time"

	"github.com/hie/bridge/internal/domain/exchange"
	"github.com/hie/bridge/internal/platform/soap"
)

// RetrieveRequestBody is the ITI-39 request payload: one DocumentRequest
// per document to pull.
type RetrieveRequestBody struct {
	XMLName          xml.Name          `xml:"xdsb:RetrieveDocumentSetRequest"`
	XmlnsXdsb        string            `xml:"xmlns:xdsb,attr"`
	DocumentRequests []DocumentRequest `xml:"xdsb:DocumentRequest"`
}

type DocumentRequest struct {
	HomeCommunityID    string `xml:"xdsb:HomeCommunityId"`
	RepositoryUniqueID string `xml:"xdsb:RepositoryUniqueId"`
	DocumentUniqueID   string `xml:"xdsb:DocumentUniqueId"`
}

func homeURN(oid string) string {
	if oid == "" || len(oid) >= 8 && oid[:8] == "urn:oid:" {
		return oid
	}
	return "urn:oid:" + oid
}

// BuildRequestBody assembles the retrieval body for one gateway leg.
func BuildRequestBody(req *exchange.DocumentRetrievalRequest) *RetrieveRequestBody {
	reqs := make([]DocumentRequest, 0, len(req.DocumentReferences))
	for _, ref := range req.DocumentReferences {
		reqs = append(reqs, DocumentRequest{
			HomeCommunityID:    homeURN(ref.HomeCommunityID),
			RepositoryUniqueID: ref.RepositoryUniqueID,
			DocumentUniqueID:   ref.DocumentUniqueID,
		})
	}
	return &RetrieveRequestBody{
		XmlnsXdsb:        soap.NSIheIti,
		DocumentRequests: reqs,
	}
}

// Envelope wraps the retrieval body in a SOAP envelope addressed to the
// gateway.
func Envelope(req *exchange.DocumentRetrievalRequest, gw exchange.Gateway, messageID string, now time.Time) *soap.Envelope {
	sec := soap.BuildSecurityHeader(soap.AssertionAttributes{
		SubjectID:       req.SamlAttributes.SubjectID,
		SubjectRole:     req.SamlAttributes.SubjectRole,
		Organization:    req.SamlAttributes.Organization,
		OrganizationID:  req.SamlAttributes.OrganizationID,
		HomeCommunityID: req.SamlAttributes.HomeCommunityID,
		PurposeOfUse:    req.SamlAttributes.PurposeOfUse,
	}, messageID, now)

	return soap.NewEnvelope(soap.Params{
		To:        gw.URL,
		Action:    soap.ActionITI39,
		MessageID: messageID,
		Security:  sec,
		Body:      BuildRequestBody(req),
	})
}
