package documentquery

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/hie/bridge/internal/domain/exchange"
	"github.com/hie/bridge/internal/platform/soap"
)

// InboundQuery is the decoded form of an inbound AdhocQueryRequest: just
// the pieces the backend needs to answer.
type InboundQuery struct {
	QueryID   string
	PatientID exchange.PatientIdentifier
}

// receivedAdhocQueryRequest is the local-name decode model.
type receivedAdhocQueryRequest struct {
	XMLName    xml.Name `xml:"AdhocQueryRequest"`
	AdhocQuery struct {
		ID    string         `xml:"id,attr"`
		Slots []ReceivedSlot `xml:"Slot"`
	} `xml:"AdhocQuery"`
}

// ParseInbound extracts the stored-query id and patient identifier from an
// inbound ITI-38 body. The patient slot value arrives in HL7 CX form,
// 'id^^^&system&ISO'.
func ParseInbound(env *soap.ReceivedEnvelope) (*InboundQuery, error) {
	var req receivedAdhocQueryRequest
	if err := env.DecodeBody(&req); err != nil {
		return nil, err
	}
	q := &InboundQuery{QueryID: req.AdhocQuery.ID}
	for _, s := range req.AdhocQuery.Slots {
		if s.Name != slotPatientID {
			continue
		}
		pid, err := parsePatientIDValue(firstValue(s.Values))
		if err != nil {
			return nil, err
		}
		q.PatientID = pid
	}
	if q.PatientID.ID == "" {
		return nil, fmt.Errorf("query has no %s slot", slotPatientID)
	}
	return q, nil
}

func parsePatientIDValue(v string) (exchange.PatientIdentifier, error) {
	v = strings.Trim(v, "'")
	parts := strings.Split(v, "^^^")
	if len(parts) != 2 {
		return exchange.PatientIdentifier{}, fmt.Errorf("malformed patient id value %q", v)
	}
	system := strings.TrimSuffix(strings.TrimPrefix(parts[1], "&"), "&ISO")
	return exchange.PatientIdentifier{ID: parts[0], System: system}, nil
}

// QueryResponseBody is the encode model for an outbound AdhocQueryResponse,
// used when answering inbound queries.
type QueryResponseBody struct {
	XMLName            xml.Name               `xml:"query:AdhocQueryResponse"`
	XmlnsQuery         string                 `xml:"xmlns:query,attr"`
	XmlnsRim           string                 `xml:"xmlns:rim,attr"`
	XmlnsRs            string                 `xml:"xmlns:rs,attr"`
	Status             string                 `xml:"status,attr"`
	RegistryErrorList  *OutRegistryErrorList  `xml:"rs:RegistryErrorList,omitempty"`
	RegistryObjectList *OutRegistryObjectList `xml:"rim:RegistryObjectList,omitempty"`
}

type OutRegistryErrorList struct {
	Errors []OutRegistryError `xml:"rs:RegistryError"`
}

type OutRegistryError struct {
	ErrorCode   string `xml:"errorCode,attr"`
	CodeContext string `xml:"codeContext,attr"`
	Location    string `xml:"location,attr,omitempty"`
	Severity    string `xml:"severity,attr"`
}

type OutRegistryObjectList struct {
	ExtrinsicObjects []OutExtrinsicObject `xml:"rim:ExtrinsicObject"`
}

type OutExtrinsicObject struct {
	ID                  string                  `xml:"id,attr"`
	Home                string                  `xml:"home,attr"`
	MimeType            string                  `xml:"mimeType,attr"`
	Status              string                  `xml:"status,attr"`
	ObjectType          string                  `xml:"objectType,attr"`
	Slots               []Slot                  `xml:"rim:Slot"`
	Name                *OutName                `xml:"rim:Name,omitempty"`
	ExternalIdentifiers []OutExternalIdentifier `xml:"rim:ExternalIdentifier"`
}

type OutName struct {
	LocalizedString OutLocalizedString `xml:"rim:LocalizedString"`
}

type OutLocalizedString struct {
	Value string `xml:"value,attr"`
}

type OutExternalIdentifier struct {
	ID                   string   `xml:"id,attr"`
	IdentificationScheme string   `xml:"identificationScheme,attr"`
	Value                string   `xml:"value,attr"`
	RegistryObject       string   `xml:"registryObject,attr,omitempty"`
	Name                 *OutName `xml:"rim:Name,omitempty"`
}

const statusApprovedURN = "urn:oasis:names:tc:ebxml-regrep:StatusType:Approved"

// BuildInboundResponse renders the registry answer for an inbound query.
// A backend error becomes a Failure with a single registry error; an empty
// reference list is still a Success, just with no ExtrinsicObjects.
func BuildInboundResponse(refs []exchange.DocumentReference, processingError string) *QueryResponseBody {
	body := &QueryResponseBody{
		XmlnsQuery: soap.NSQuery,
		XmlnsRim:   soap.NSRim,
		XmlnsRs:    soap.NSRs,
		Status:     soap.StatusSuccess,
	}
	if processingError != "" {
		body.Status = soap.StatusFailure
		body.RegistryErrorList = &OutRegistryErrorList{Errors: []OutRegistryError{{
			ErrorCode:   "XDSRegistryError",
			CodeContext: processingError,
			Severity:    "urn:oasis:names:tc:ebxml-regrep:ErrorSeverityType:Error",
		}}}
		return body
	}

	objs := make([]OutExtrinsicObject, 0, len(refs))
	for i, ref := range refs {
		eo := OutExtrinsicObject{
			ID:         fmt.Sprintf("urn:uuid:doc-%d", i+1),
			Home:       homeURN(ref.HomeCommunityID),
			MimeType:   ref.ContentType,
			Status:     statusApprovedURN,
			ObjectType: soap.DocEntryTypeStable,
			Slots: []Slot{
				slotOf(slotRepositoryID, ref.RepositoryUniqueID),
			},
			ExternalIdentifiers: []OutExternalIdentifier{{
				ID:                   fmt.Sprintf("urn:uuid:doc-%d-uid", i+1),
				IdentificationScheme: schemeUniqueID,
				Value:                ref.DocumentUniqueID,
				Name:                 &OutName{LocalizedString: OutLocalizedString{Value: "XDSDocumentEntry.uniqueId"}},
			}},
		}
		if ref.Creation != "" {
			eo.Slots = append(eo.Slots, slotOf(slotCreationTime, ref.Creation))
		}
		if ref.Size > 0 {
			eo.Slots = append(eo.Slots, slotOf(slotSize, strconv.FormatInt(ref.Size, 10)))
		}
		if ref.Title != "" {
			eo.Name = &OutName{LocalizedString: OutLocalizedString{Value: ref.Title}}
		}
		objs = append(objs, eo)
	}
	body.RegistryObjectList = &OutRegistryObjectList{ExtrinsicObjects: objs}
	return body
}
