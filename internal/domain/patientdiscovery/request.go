// Package patientdiscovery implements the XCPD (ITI-55) wire transaction:
// building PRPA_IN201305UV02 query bodies, classifying PRPA_IN201306UV02
// responses into match outcomes, and answering inbound discovery requests.
package patientdiscovery

import (
	"encoding/xml"
	"time"

	"github.com/hie/bridge/internal/domain/exchange"
	"github.com/hie/bridge/internal/platform/soap"
)

const (
	hl7TimeLayout       = "20060102150405"
	interactionIDSystem = "2.16.840.1.113883.1.6"
	npiCodeSystem       = "2.16.840.1.113883.4.6"
)

// RequestBody is the PRPA_IN201305UV02 payload of an outbound ITI-55 call.
// Elements are unprefixed under the default hl7 namespace.
type RequestBody struct {
	XMLName            xml.Name          `xml:"PRPA_IN201305UV02"`
	Xmlns              string            `xml:"xmlns,attr"`
	ITSVersion         string            `xml:"ITSVersion,attr"`
	ID                 IDValue           `xml:"id"`
	CreationTime       TimeValue         `xml:"creationTime"`
	InteractionID      IDValue           `xml:"interactionId"`
	ProcessingCode     CodeValue         `xml:"processingCode"`
	ProcessingModeCode CodeValue         `xml:"processingModeCode"`
	AcceptAckCode      CodeValue         `xml:"acceptAckCode"`
	Receiver           Device            `xml:"receiver"`
	Sender             Device            `xml:"sender"`
	ControlActProcess  ControlActProcess `xml:"controlActProcess"`
}

type IDValue struct {
	Root      string `xml:"root,attr,omitempty"`
	Extension string `xml:"extension,attr,omitempty"`
}

type TimeValue struct {
	Value string `xml:"value,attr"`
}

type CodeValue struct {
	Code       string `xml:"code,attr"`
	CodeSystem string `xml:"codeSystem,attr,omitempty"`
}

type Device struct {
	TypeCode string     `xml:"typeCode,attr"`
	Device   DeviceInfo `xml:"device"`
}

type DeviceInfo struct {
	ClassCode      string  `xml:"classCode,attr"`
	DeterminerCode string  `xml:"determinerCode,attr"`
	ID             IDValue `xml:"id"`
	Telecom        *Value  `xml:"telecom,omitempty"`
}

type Value struct {
	Value string `xml:"value,attr"`
}

type ControlActProcess struct {
	ClassCode        string           `xml:"classCode,attr"`
	MoodCode         string           `xml:"moodCode,attr"`
	Code             CodeValue        `xml:"code"`
	QueryByParameter QueryByParameter `xml:"queryByParameter"`
}

type QueryByParameter struct {
	QueryID              IDValue       `xml:"queryId"`
	StatusCode           CodeValue     `xml:"statusCode"`
	ResponseModalityCode CodeValue     `xml:"responseModalityCode"`
	ResponsePriorityCode CodeValue     `xml:"responsePriorityCode"`
	ParameterList        ParameterList `xml:"parameterList"`
}

type ParameterList struct {
	Gender    *GenderParam    `xml:"livingSubjectAdministrativeGender,omitempty"`
	BirthTime *BirthTimeParam `xml:"livingSubjectBirthTime,omitempty"`
	Names     []NameParam     `xml:"livingSubjectName,omitempty"`
	Addresses []AddressParam  `xml:"patientAddress,omitempty"`
	Telecoms  []TelecomParam  `xml:"patientTelecom,omitempty"`
	Providers []ProviderParam `xml:"principalCareProviderId,omitempty"`
}

type GenderParam struct {
	Value         CodeValue `xml:"value"`
	SemanticsText string    `xml:"semanticsText"`
}

type BirthTimeParam struct {
	Value         TimeValue `xml:"value"`
	SemanticsText string    `xml:"semanticsText"`
}

type NameParam struct {
	Value         PersonName `xml:"value"`
	SemanticsText string     `xml:"semanticsText"`
}

type PersonName struct {
	Given  []string `xml:"given,omitempty"`
	Family string   `xml:"family,omitempty"`
}

type AddressParam struct {
	Value         PostalAddress `xml:"value"`
	SemanticsText string        `xml:"semanticsText"`
}

type PostalAddress struct {
	StreetAddressLine []string `xml:"streetAddressLine,omitempty"`
	City              string   `xml:"city,omitempty"`
	State             string   `xml:"state,omitempty"`
	PostalCode        string   `xml:"postalCode,omitempty"`
	Country           string   `xml:"country,omitempty"`
}

type TelecomParam struct {
	Value         Value  `xml:"value"`
	SemanticsText string `xml:"semanticsText"`
}

type ProviderParam struct {
	Value         IDValue `xml:"value"`
	SemanticsText string  `xml:"semanticsText"`
}

// genderCode maps a FHIR administrative gender to the HL7v3 code.
func genderCode(gender string) string {
	switch gender {
	case "male":
		return "M"
	case "female":
		return "F"
	default:
		return "UN"
	}
}

// hl7Date compacts a FHIR date (2006-01-02) to HL7v3 form (20060102).
func hl7Date(d string) string {
	out := make([]byte, 0, len(d))
	for i := 0; i < len(d); i++ {
		if d[i] != '-' {
			out = append(out, d[i])
		}
	}
	return string(out)
}

// BuildRequestBody assembles the ITI-55 query body for one gateway leg.
// The receiver device is the gateway's OID, the sender is the local home
// community, and the query id echoes the logical request id so the remote
// party's audit trail lines up with ours.
func BuildRequestBody(req *exchange.PatientDiscoveryRequest, gw exchange.Gateway, messageID string, now time.Time) *RequestBody {
	params := ParameterList{}
	pr := req.PatientResource

	if pr.Gender != "" {
		params.Gender = &GenderParam{
			Value:         CodeValue{Code: genderCode(pr.Gender)},
			SemanticsText: "LivingSubject.administrativeGender",
		}
	}
	if pr.BirthDate != "" {
		params.BirthTime = &BirthTimeParam{
			Value:         TimeValue{Value: hl7Date(pr.BirthDate)},
			SemanticsText: "LivingSubject.birthTime",
		}
	}
	for _, n := range pr.Name {
		params.Names = append(params.Names, NameParam{
			Value:         PersonName{Given: n.Given, Family: n.Family},
			SemanticsText: "LivingSubject.name",
		})
	}
	for _, a := range pr.Address {
		params.Addresses = append(params.Addresses, AddressParam{
			Value: PostalAddress{
				StreetAddressLine: a.Line,
				City:              a.City,
				State:             a.State,
				PostalCode:        a.PostalCode,
				Country:           a.Country,
			},
			SemanticsText: "Patient.addr",
		})
	}
	for _, tc := range pr.Telecom {
		params.Telecoms = append(params.Telecoms, TelecomParam{
			Value:         Value{Value: tc.Value},
			SemanticsText: "Patient.telecom",
		})
	}
	for _, npi := range req.PrincipalCareProviderIDs {
		params.Providers = append(params.Providers, ProviderParam{
			Value:         IDValue{Root: npiCodeSystem, Extension: npi},
			SemanticsText: "AssignedProvider.id",
		})
	}

	home := req.SamlAttributes.HomeCommunityID

	return &RequestBody{
		Xmlns:              soap.NSHL7V3,
		ITSVersion:         "XML_1.0",
		ID:                 IDValue{Root: messageID},
		CreationTime:       TimeValue{Value: now.UTC().Format(hl7TimeLayout)},
		InteractionID:      IDValue{Root: interactionIDSystem, Extension: "PRPA_IN201305UV02"},
		ProcessingCode:     CodeValue{Code: "P"},
		ProcessingModeCode: CodeValue{Code: "T"},
		AcceptAckCode:      CodeValue{Code: "AL"},
		Receiver: Device{
			TypeCode: "RCV",
			Device: DeviceInfo{
				ClassCode:      "DEV",
				DeterminerCode: "INSTANCE",
				ID:             IDValue{Root: gw.OID},
				Telecom:        &Value{Value: gw.URL},
			},
		},
		Sender: Device{
			TypeCode: "SND",
			Device: DeviceInfo{
				ClassCode:      "DEV",
				DeterminerCode: "INSTANCE",
				ID:             IDValue{Root: home},
			},
		},
		ControlActProcess: ControlActProcess{
			ClassCode: "CACT",
			MoodCode:  "EVN",
			Code:      CodeValue{Code: "PRPA_TE201305UV02", CodeSystem: interactionIDSystem},
			QueryByParameter: QueryByParameter{
				QueryID:              IDValue{Root: home, Extension: req.ID},
				StatusCode:           CodeValue{Code: "new"},
				ResponseModalityCode: CodeValue{Code: "R"},
				ResponsePriorityCode: CodeValue{Code: "I"},
				ParameterList:        params,
			},
		},
	}
}

// Envelope wraps the request body in a full SOAP envelope addressed to the
// gateway.
func Envelope(req *exchange.PatientDiscoveryRequest, gw exchange.Gateway, messageID string, now time.Time) *soap.Envelope {
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
		Action:    soap.ActionITI55,
		MessageID: messageID,
		Security:  sec,
		Body:      BuildRequestBody(req, gw, messageID, now),
	})
}
