package patientdiscovery

import (
	"strings"

	"github.com/hie/bridge/internal/domain/exchange"
)

// ResponseBody is the local-name decode model for PRPA_IN201306UV02.
type ResponseBody struct {
	Acknowledgement   Acknowledgement    `xml:"acknowledgement"`
	ControlActProcess ResponseControlAct `xml:"controlActProcess"`
}

type Acknowledgement struct {
	TypeCode   CodeValue   `xml:"typeCode"`
	AckDetails []AckDetail `xml:"acknowledgementDetail"`
}

type AckDetail struct {
	TypeCode string    `xml:"typeCode,attr"`
	Code     CodeValue `xml:"code"`
	Text     string    `xml:"text"`
}

type ResponseControlAct struct {
	Subjects []ResponseSubject `xml:"subject"`
	QueryAck QueryAck          `xml:"queryAck"`
}

type QueryAck struct {
	QueryResponseCode CodeValue `xml:"queryResponseCode"`
}

type ResponseSubject struct {
	RegistrationEvent RegistrationEvent `xml:"registrationEvent"`
}

type RegistrationEvent struct {
	Subject1 Subject1 `xml:"subject1"`
}

type Subject1 struct {
	Patient ResponsePatient `xml:"patient"`
}

type ResponsePatient struct {
	IDs    []IDValue     `xml:"id"`
	Person PatientPerson `xml:"patientPerson"`
}

type PatientPerson struct {
	Names     []PersonName    `xml:"name"`
	Gender    CodeValue       `xml:"administrativeGenderCode"`
	BirthTime TimeValue       `xml:"birthTime"`
	Addresses []PostalAddress `xml:"addr"`
	Telecoms  []Value         `xml:"telecom"`
}

// Result is the classified form of an ITI-55 response: the match outcome
// plus, on a match, the remote patient identifier and demographics.
type Result struct {
	Outcome         exchange.MatchOutcome
	ExternalPatient *exchange.PatientIdentifier
	Patient         *exchange.PatientResource
	FaultDetail     string
}

// Classify reduces a decoded response to its outcome. AA with query
// response OK is a match, AA with NF is a clean no-match, anything else is
// a fault carrying whatever detail text the remote sent. A match must carry
// a subject; AA/OK without one is a fault, never an empty match.
func Classify(body *ResponseBody) Result {
	ack := body.Acknowledgement.TypeCode.Code
	qrc := body.ControlActProcess.QueryAck.QueryResponseCode.Code

	switch {
	case ack == "AA" && qrc == "OK":
		p := firstPatient(body)
		if p == nil {
			return Result{
				Outcome:     exchange.MatchOutcomeFault,
				FaultDetail: "query response OK without a registration event subject",
			}
		}
		return Result{
			Outcome:         exchange.MatchOutcomeMatched,
			ExternalPatient: externalID(p),
			Patient:         demographics(p),
		}
	case ack == "AA" && qrc == "NF":
		return Result{Outcome: exchange.MatchOutcomeNoMatch}
	default:
		return Result{
			Outcome:     exchange.MatchOutcomeFault,
			FaultDetail: faultDetail(body, ack, qrc),
		}
	}
}

func firstPatient(body *ResponseBody) *ResponsePatient {
	for _, s := range body.ControlActProcess.Subjects {
		return &s.RegistrationEvent.Subject1.Patient
	}
	return nil
}

func externalID(p *ResponsePatient) *exchange.PatientIdentifier {
	for _, id := range p.IDs {
		if id.Extension != "" {
			return &exchange.PatientIdentifier{ID: id.Extension, System: id.Root}
		}
	}
	return nil
}

func demographics(p *ResponsePatient) *exchange.PatientResource {
	pr := &exchange.PatientResource{
		BirthDate: fhirDate(p.Person.BirthTime.Value),
		Gender:    fhirGender(p.Person.Gender.Code),
	}
	for _, n := range p.Person.Names {
		pr.Name = append(pr.Name, exchange.HumanName{Family: n.Family, Given: n.Given})
	}
	for _, a := range p.Person.Addresses {
		pr.Address = append(pr.Address, exchange.Address{
			Line:       a.StreetAddressLine,
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
			Country:    a.Country,
		})
	}
	for _, tc := range p.Person.Telecoms {
		if tc.Value != "" {
			pr.Telecom = append(pr.Telecom, exchange.ContactPoint{Value: tc.Value})
		}
	}
	return pr
}

func fhirGender(code string) string {
	switch code {
	case "M":
		return "male"
	case "F":
		return "female"
	case "":
		return ""
	default:
		return "unknown"
	}
}

// fhirDate expands an HL7v3 date (20060102...) to FHIR form (2006-01-02).
func fhirDate(v string) string {
	if len(v) < 8 {
		return v
	}
	return v[:4] + "-" + v[4:6] + "-" + v[6:8]
}

func faultDetail(body *ResponseBody, ack, qrc string) string {
	var parts []string
	for _, d := range body.Acknowledgement.AckDetails {
		if d.Text != "" {
			parts = append(parts, d.Text)
		} else if d.Code.Code != "" {
			parts = append(parts, d.Code.Code)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "acknowledgement "+ack+", query response "+qrc)
	}
	return strings.Join(parts, "; ")
}
