package patientdiscovery

import (
	"encoding/xml"
	"time"

	"github.com/hie/bridge/internal/domain/exchange"
	"github.com/hie/bridge/internal/platform/soap"
)

// InboundResult is what the backend processor decided for an inbound ITI-55
// request: whether a local patient matched, and if so its identifier and
// demographics.
type InboundResult struct {
	Matched         bool
	ProcessingError string
	LocalPatientID  string
	LocalSystemOID  string
	Patient         *exchange.PatientResource
}

// AckBody is the PRPA_IN201306UV02 payload answering an inbound discovery
// request.
type AckBody struct {
	XMLName            xml.Name      `xml:"PRPA_IN201306UV02"`
	Xmlns              string        `xml:"xmlns,attr"`
	ITSVersion         string        `xml:"ITSVersion,attr"`
	ID                 IDValue       `xml:"id"`
	CreationTime       TimeValue     `xml:"creationTime"`
	InteractionID      IDValue       `xml:"interactionId"`
	ProcessingCode     CodeValue     `xml:"processingCode"`
	ProcessingModeCode CodeValue     `xml:"processingModeCode"`
	AcceptAckCode      CodeValue     `xml:"acceptAckCode"`
	Receiver           Device        `xml:"receiver"`
	Sender             Device        `xml:"sender"`
	Acknowledgement    AckElement    `xml:"acknowledgement"`
	ControlActProcess  AckControlAct `xml:"controlActProcess"`
}

type AckElement struct {
	TypeCode      CodeValue `xml:"typeCode"`
	TargetMessage IDValue   `xml:"targetMessage>id"`
}

type AckControlAct struct {
	ClassCode string      `xml:"classCode,attr"`
	MoodCode  string      `xml:"moodCode,attr"`
	Code      CodeValue   `xml:"code"`
	Subject   *AckSubject `xml:"subject,omitempty"`
	QueryAck  AckQueryAck `xml:"queryAck"`
}

type AckSubject struct {
	RegistrationEvent AckRegistrationEvent `xml:"registrationEvent"`
}

type AckRegistrationEvent struct {
	StatusCode CodeValue  `xml:"statusCode"`
	Subject1   AckPatient `xml:"subject1>patient"`
}

type AckPatient struct {
	ID         IDValue          `xml:"id"`
	StatusCode CodeValue        `xml:"statusCode"`
	Person     AckPatientPerson `xml:"patientPerson"`
}

type AckPatientPerson struct {
	Names     []PersonName    `xml:"name,omitempty"`
	Gender    *CodeValue      `xml:"administrativeGenderCode,omitempty"`
	BirthTime *TimeValue      `xml:"birthTime,omitempty"`
	Addresses []PostalAddress `xml:"addr,omitempty"`
}

type AckQueryAck struct {
	QueryID           IDValue   `xml:"queryId"`
	StatusCode        CodeValue `xml:"statusCode"`
	QueryResponseCode CodeValue `xml:"queryResponseCode"`
}

// InboundRequestInfo carries the pieces of the inbound request the response
// must echo back.
type InboundRequestInfo struct {
	MessageID string
	QueryID   IDValue
	SenderOID string
}

// BuildAckBody assembles the response payload for an inbound discovery
// request. Matched results carry the local patient under subject1; a
// processing error downgrades the acknowledgement to AE.
func BuildAckBody(info InboundRequestInfo, res InboundResult, homeCommunityID, responseID string, now time.Time) *AckBody {
	ackCode := "AA"
	qrc := "NF"
	var subject *AckSubject

	switch {
	case res.ProcessingError != "":
		ackCode = "AE"
		qrc = "AE"
	case res.Matched:
		qrc = "OK"
		patient := AckPatient{
			ID:         IDValue{Root: res.LocalSystemOID, Extension: res.LocalPatientID},
			StatusCode: CodeValue{Code: "active"},
		}
		if res.Patient != nil {
			for _, n := range res.Patient.Name {
				patient.Person.Names = append(patient.Person.Names, PersonName{Given: n.Given, Family: n.Family})
			}
			if res.Patient.Gender != "" {
				patient.Person.Gender = &CodeValue{Code: genderCode(res.Patient.Gender)}
			}
			if res.Patient.BirthDate != "" {
				patient.Person.BirthTime = &TimeValue{Value: hl7Date(res.Patient.BirthDate)}
			}
			for _, a := range res.Patient.Address {
				patient.Person.Addresses = append(patient.Person.Addresses, PostalAddress{
					StreetAddressLine: a.Line,
					City:              a.City,
					State:             a.State,
					PostalCode:        a.PostalCode,
					Country:           a.Country,
				})
			}
		}
		subject = &AckSubject{
			RegistrationEvent: AckRegistrationEvent{
				StatusCode: CodeValue{Code: "active"},
				Subject1:   patient,
			},
		}
	}

	return &AckBody{
		Xmlns:              soap.NSHL7V3,
		ITSVersion:         "XML_1.0",
		ID:                 IDValue{Root: responseID},
		CreationTime:       TimeValue{Value: now.UTC().Format(hl7TimeLayout)},
		InteractionID:      IDValue{Root: interactionIDSystem, Extension: "PRPA_IN201306UV02"},
		ProcessingCode:     CodeValue{Code: "P"},
		ProcessingModeCode: CodeValue{Code: "T"},
		AcceptAckCode:      CodeValue{Code: "NE"},
		Receiver: Device{
			TypeCode: "RCV",
			Device: DeviceInfo{
				ClassCode:      "DEV",
				DeterminerCode: "INSTANCE",
				ID:             IDValue{Root: info.SenderOID},
			},
		},
		Sender: Device{
			TypeCode: "SND",
			Device: DeviceInfo{
				ClassCode:      "DEV",
				DeterminerCode: "INSTANCE",
				ID:             IDValue{Root: homeCommunityID},
			},
		},
		Acknowledgement: AckElement{
			TypeCode:      CodeValue{Code: ackCode},
			TargetMessage: IDValue{Root: soap.StripURNPrefix(info.MessageID)},
		},
		ControlActProcess: AckControlAct{
			ClassCode: "CACT",
			MoodCode:  "EVN",
			Code:      CodeValue{Code: "PRPA_TE201306UV02", CodeSystem: interactionIDSystem},
			Subject:   subject,
			QueryAck: AckQueryAck{
				QueryID:           info.QueryID,
				StatusCode:        CodeValue{Code: "deliveredResponse"},
				QueryResponseCode: CodeValue{Code: qrc},
			},
		},
	}
}

// InboundRequestBody is the local-name decode model for an inbound
// PRPA_IN201305UV02 request.
type InboundRequestBody struct {
	XMLName           xml.Name              `xml:"PRPA_IN201305UV02"`
	ID                IDValue               `xml:"id"`
	Sender            InboundDevice         `xml:"sender"`
	ControlActProcess InboundRequestControl `xml:"controlActProcess"`
}

type InboundDevice struct {
	Device struct {
		ID IDValue `xml:"id"`
	} `xml:"device"`
}

type InboundRequestControl struct {
	QueryByParameter InboundQueryByParameter `xml:"queryByParameter"`
}

type InboundQueryByParameter struct {
	QueryID              IDValue       `xml:"queryId"`
	ResponseModalityCode CodeValue     `xml:"responseModalityCode"`
	ParameterList        ParameterList `xml:"parameterList"`
}

// Deferred reports whether the inbound request asks for deferred response
// delivery, which this bridge does not support.
func (b *InboundRequestBody) Deferred() bool {
	mode := b.ControlActProcess.QueryByParameter.ResponseModalityCode.Code
	return mode != "" && mode != "R"
}

// PatientResource converts the inbound query parameters into FHIR-shaped
// demographics for the backend matcher.
func (b *InboundRequestBody) PatientResource() *exchange.PatientResource {
	pl := b.ControlActProcess.QueryByParameter.ParameterList
	pr := &exchange.PatientResource{}
	if pl.Gender != nil {
		pr.Gender = fhirGender(pl.Gender.Value.Code)
	}
	if pl.BirthTime != nil {
		pr.BirthDate = fhirDate(pl.BirthTime.Value.Value)
	}
	for _, n := range pl.Names {
		pr.Name = append(pr.Name, exchange.HumanName{Family: n.Value.Family, Given: n.Value.Given})
	}
	for _, a := range pl.Addresses {
		pr.Address = append(pr.Address, exchange.Address{
			Line:       a.Value.StreetAddressLine,
			City:       a.Value.City,
			State:      a.Value.State,
			PostalCode: a.Value.PostalCode,
			Country:    a.Value.Country,
		})
	}
	for _, tc := range pl.Telecoms {
		if tc.Value.Value != "" {
			pr.Telecom = append(pr.Telecom, exchange.ContactPoint{Value: tc.Value.Value})
		}
	}
	return pr
}
