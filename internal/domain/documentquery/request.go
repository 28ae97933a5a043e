// Package documentquery implements the XCA document query transaction
// (ITI-38): building AdhocQueryRequest bodies, parsing AdhocQueryResponse
// metadata into document references, and answering inbound queries.
package documentquery

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/hie/bridge/internal/domain/exchange"
	"github.com/hie/bridge/internal/platform/soap"
)

// Stored-query slot names.
const (
	slotPatientID    = "$XDSDocumentEntryPatientId"
	slotStatus       = "$XDSDocumentEntryStatus"
	slotEntryType    = "$XDSDocumentEntryType"
	slotClassCode    = "$XDSDocumentEntryClassCode"
	slotPracticeCode = "$XDSDocumentEntryPracticeSettingCode"
	slotFacilityCode = "$XDSDocumentEntryHealthcareFacilityTypeCode"
	slotServiceFrom  = "$XDSDocumentEntryServiceStartTimeFrom"
	slotServiceTo    = "$XDSDocumentEntryServiceStopTimeTo"
	slotCreationFrom = "$XDSDocumentEntryCreationTimeFrom"
	slotCreationTo   = "$XDSDocumentEntryCreationTimeTo"
)

// AdhocQueryRequest is the ITI-38 body.
type AdhocQueryRequest struct {
	XMLName        xml.Name       `xml:"query:AdhocQueryRequest"`
	XmlnsQuery     string         `xml:"xmlns:query,attr"`
	XmlnsRim       string         `xml:"xmlns:rim,attr"`
	ResponseOption ResponseOption `xml:"query:ResponseOption"`
	AdhocQuery     AdhocQuery     `xml:"rim:AdhocQuery"`
}

type ResponseOption struct {
	ReturnComposedObjects string `xml:"returnComposedObjects,attr"`
	ReturnType            string `xml:"returnType,attr"`
}

type AdhocQuery struct {
	ID    string `xml:"id,attr"`
	Home  string `xml:"home,attr,omitempty"`
	Slots []Slot `xml:"rim:Slot"`
}

type Slot struct {
	Name      string    `xml:"name,attr"`
	ValueList ValueList `xml:"rim:ValueList"`
}

type ValueList struct {
	Values []string `xml:"rim:Value"`
}

func slotOf(name string, values ...string) Slot {
	return Slot{Name: name, ValueList: ValueList{Values: values}}
}

// patientIDValue renders the HL7 CX form the registry expects:
// 'id^^^&system&ISO'.
func patientIDValue(p exchange.PatientIdentifier) string {
	return fmt.Sprintf("'%s^^^&%s&ISO'", p.ID, p.System)
}

func codeValue(c *exchange.Code) string {
	return fmt.Sprintf("('%s^^%s')", c.Code, c.System)
}

// BuildRequestBody assembles the FindDocuments stored query for one gateway
// leg. Optional filters contribute a slot only when present; the status and
// entry-type slots are always pinned to approved stable plus on-demand
// entries.
func BuildRequestBody(req *exchange.DocumentQueryRequest, gw exchange.Gateway) *AdhocQueryRequest {
	slots := []Slot{
		slotOf(slotPatientID, patientIDValue(req.ExternalGatewayPatient)),
		slotOf(slotStatus, soap.DocStatusApproved),
		slotOf(slotEntryType, fmt.Sprintf("('%s','%s')", soap.DocEntryTypeStable, soap.DocEntryTypeOnDemand)),
	}
	if req.ClassCode != nil {
		slots = append(slots, slotOf(slotClassCode, codeValue(req.ClassCode)))
	}
	if req.PracticeSettingCode != nil {
		slots = append(slots, slotOf(slotPracticeCode, codeValue(req.PracticeSettingCode)))
	}
	if req.FacilityTypeCode != nil {
		slots = append(slots, slotOf(slotFacilityCode, codeValue(req.FacilityTypeCode)))
	}
	if req.ServiceDate != nil {
		if req.ServiceDate.From != "" {
			slots = append(slots, slotOf(slotServiceFrom, req.ServiceDate.From))
		}
		if req.ServiceDate.To != "" {
			slots = append(slots, slotOf(slotServiceTo, req.ServiceDate.To))
		}
	}
	if req.DocumentCreationDate != nil {
		if req.DocumentCreationDate.From != "" {
			slots = append(slots, slotOf(slotCreationFrom, req.DocumentCreationDate.From))
		}
		if req.DocumentCreationDate.To != "" {
			slots = append(slots, slotOf(slotCreationTo, req.DocumentCreationDate.To))
		}
	}

	return &AdhocQueryRequest{
		XmlnsQuery:     soap.NSQuery,
		XmlnsRim:       soap.NSRim,
		ResponseOption: ResponseOption{ReturnComposedObjects: "true", ReturnType: soap.LeafClassReturnType},
		AdhocQuery: AdhocQuery{
			ID:    soap.FindDocumentsQueryID,
			Home:  homeURN(gw.HomeCommunityID),
			Slots: slots,
		},
	}
}

func homeURN(oid string) string {
	if oid == "" || len(oid) >= 8 && oid[:8] == "urn:oid:" {
		return oid
	}
	return "urn:oid:" + oid
}

// Envelope wraps the query body in a SOAP envelope addressed to the gateway.
func Envelope(req *exchange.DocumentQueryRequest, gw exchange.Gateway, messageID string, now time.Time) *soap.Envelope {
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
		Action:    soap.ActionITI38,
		MessageID: messageID,
		Security:  sec,
		Body:      BuildRequestBody(req, gw),
	})
}
