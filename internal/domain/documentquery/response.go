package documentquery

import (
	"strconv"
	"strings"

	"github.com/hie/bridge/internal/domain/exchange"
	"github.com/hie/bridge/internal/platform/soap"
)

// Classification schemes and identification schemes used when walking
// ExtrinsicObject metadata.
const (
	schemeAuthor     = "urn:uuid:93606bcf-9494-43ec-9b4e-a7748d1a838d"
	schemeUniqueID   = "urn:uuid:2e82c1f6-a085-4c72-9da3-8640a32e42ab"
	slotRepositoryID = "repositoryUniqueId"
	slotCreationTime = "creationTime"
	slotServiceStart = "serviceStartTime"
	slotServiceStop  = "serviceStopTime"
	slotSize         = "size"
	slotLanguage     = "languageCode"
	slotAuthorPerson = "authorPerson"
	slotAuthorInstit = "authorInstitution"
)

// AdhocQueryResponse is the local-name decode model of an ITI-38 response.
type AdhocQueryResponse struct {
	Status             string             `xml:"status,attr"`
	RegistryErrorList  RegistryErrorList  `xml:"RegistryErrorList"`
	RegistryObjectList RegistryObjectList `xml:"RegistryObjectList"`
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

type RegistryObjectList struct {
	ExtrinsicObjects []ExtrinsicObject `xml:"ExtrinsicObject"`
}

type ExtrinsicObject struct {
	ID                  string               `xml:"id,attr"`
	Home                string               `xml:"home,attr"`
	MimeType            string               `xml:"mimeType,attr"`
	Status              string               `xml:"status,attr"`
	Slots               []ReceivedSlot       `xml:"Slot"`
	Name                LocalizedName        `xml:"Name"`
	Classifications     []Classification     `xml:"Classification"`
	ExternalIdentifiers []ExternalIdentifier `xml:"ExternalIdentifier"`
}

type ReceivedSlot struct {
	Name   string   `xml:"name,attr"`
	Values []string `xml:"ValueList>Value"`
}

type LocalizedName struct {
	LocalizedString struct {
		Value string `xml:"value,attr"`
	} `xml:"LocalizedString"`
}

type Classification struct {
	Scheme             string         `xml:"classificationScheme,attr"`
	NodeRepresentation string         `xml:"nodeRepresentation,attr"`
	Slots              []ReceivedSlot `xml:"Slot"`
}

type ExternalIdentifier struct {
	IdentificationScheme string `xml:"identificationScheme,attr"`
	Value                string `xml:"value,attr"`
}

// ResponseCode derives the three-valued classification from the status
// attribute suffix.
func (r *AdhocQueryResponse) ResponseCode() exchange.ResponseCode {
	switch soap.StatusSuffix(r.Status) {
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
func (r *AdhocQueryResponse) RegistryErrors() []exchange.RegistryError {
	errs := make([]exchange.RegistryError, 0, len(r.RegistryErrorList.Errors))
	for _, e := range r.RegistryErrorList.Errors {
		errs = append(errs, exchange.RegistryError{
			ErrorCode:   e.ErrorCode,
			CodeContext: e.CodeContext,
			Location:    e.Location,
			Severity:    e.Severity,
		})
	}
	return errs
}

// DocumentReferences maps the ExtrinsicObject metadata to the normalized
// document reference model.
func (r *AdhocQueryResponse) DocumentReferences() []exchange.DocumentReference {
	refs := make([]exchange.DocumentReference, 0, len(r.RegistryObjectList.ExtrinsicObjects))
	for _, eo := range r.RegistryObjectList.ExtrinsicObjects {
		ref := exchange.DocumentReference{
			HomeCommunityID: strings.TrimPrefix(eo.Home, "urn:oid:"),
			ContentType:     eo.MimeType,
			Title:           eo.Name.LocalizedString.Value,
		}
		for _, s := range eo.Slots {
			v := firstValue(s.Values)
			switch s.Name {
			case slotRepositoryID:
				ref.RepositoryUniqueID = v
			case slotCreationTime:
				ref.Creation = v
			case slotServiceStart:
				ref.ServiceStartTime = v
			case slotServiceStop:
				ref.ServiceStopTime = v
			case slotLanguage:
				ref.Language = v
			case slotSize:
				if n, err := strconv.ParseInt(v, 10, 64); err == nil {
					ref.Size = n
				}
			}
		}
		for _, c := range eo.Classifications {
			if c.Scheme != schemeAuthor {
				continue
			}
			for _, s := range c.Slots {
				v := firstValue(s.Values)
				switch s.Name {
				case slotAuthorPerson:
					ref.AuthorPerson = v
				case slotAuthorInstit:
					ref.AuthorInstitution = v
				}
			}
		}
		for _, ei := range eo.ExternalIdentifiers {
			if ei.IdentificationScheme == schemeUniqueID {
				ref.DocumentUniqueID = ei.Value
			}
		}
		refs = append(refs, ref)
	}
	return refs
}

func firstValue(vs []string) string {
	if len(vs) == 0 {
		return ""
	}
	return strings.TrimSpace(vs[0])
}
