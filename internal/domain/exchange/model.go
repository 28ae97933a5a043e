// Package exchange defines the shared data model for the cross-gateway
// exchange bridge: transaction requests, gateway call results, operation
// outcomes, and the per-entry request validator used by bulk submissions.
package exchange

import "time"

// TransactionType identifies one of the supported IHE transactions.
type TransactionType string

const (
	TransactionPatientDiscovery  TransactionType = "patient-discovery"  // XCPD / ITI-55
	TransactionDocumentQuery     TransactionType = "document-query"     // XCA / ITI-38
	TransactionDocumentRetrieval TransactionType = "document-retrieval" // XCA / ITI-39
)

// Processing modes for patient discovery. Only synchronous-style
// request/response is supported; deferred requests are rejected before
// dispatch with a protocol fault.
const (
	ModeSynchronous = "synchronous"
	ModeDeferred    = "deferred"
)

// Gateway is an externally operated exchange endpoint.
type Gateway struct {
	ID              string `json:"id"`
	OID             string `json:"oid"`
	URL             string `json:"url"`
	HomeCommunityID string `json:"homeCommunityId,omitempty"`
}

// SamlAttributes carries the identity and purpose-of-use assertions required
// on every outbound cross-gateway call.
type SamlAttributes struct {
	SubjectID       string `json:"subjectId"`
	SubjectRole     string `json:"subjectRole"`
	Organization    string `json:"organization"`
	OrganizationID  string `json:"organizationId"` // OID of the requesting organization
	HomeCommunityID string `json:"homeCommunityId"`
	PurposeOfUse    string `json:"purposeOfUse"`
}

// Empty reports whether no SAML attributes were supplied at all.
func (s SamlAttributes) Empty() bool {
	return s.SubjectID == "" && s.Organization == "" && s.OrganizationID == "" &&
		s.HomeCommunityID == "" && s.PurposeOfUse == ""
}

// HumanName is a FHIR-shaped patient name.
type HumanName struct {
	Family string   `json:"family"`
	Given  []string `json:"given,omitempty"`
}

// Address is a FHIR-shaped postal address.
type Address struct {
	Line       []string `json:"line,omitempty"`
	City       string   `json:"city,omitempty"`
	State      string   `json:"state,omitempty"`
	PostalCode string   `json:"postalCode,omitempty"`
	Country    string   `json:"country,omitempty"`
}

// ContactPoint is a FHIR-shaped telecom entry.
type ContactPoint struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
}

// Identifier is a FHIR-shaped identifier (system is an OID or URI).
type Identifier struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
}

// PatientResource is the FHIR-shaped patient demographics block used by
// patient discovery requests and match results.
type PatientResource struct {
	Name       []HumanName    `json:"name,omitempty"`
	Gender     string         `json:"gender,omitempty"`
	BirthDate  string         `json:"birthDate,omitempty"`
	Address    []Address      `json:"address,omitempty"`
	Telecom    []ContactPoint `json:"telecom,omitempty"`
	Identifier []Identifier   `json:"identifier,omitempty"`
}

// PatientIdentifier locates a patient at a remote gateway: the assigning
// authority OID plus the local id within that authority.
type PatientIdentifier struct {
	ID     string `json:"id"`
	System string `json:"system"`
}

// Code is a coded value with its code system.
type Code struct {
	Code   string `json:"code,omitempty"`
	System string `json:"system,omitempty"`
}

// DateRange bounds a query filter on document service or creation dates.
type DateRange struct {
	From string `json:"dateFrom,omitempty"`
	To   string `json:"dateTo,omitempty"`
}

// PatientDiscoveryRequest is the internal form of an outbound XCPD (ITI-55)
// transaction. A single request fans out to every listed gateway. Gateways
// may be given inline or referenced by directory OID.
type PatientDiscoveryRequest struct {
	ID                       string           `json:"id"`
	CxID                     string           `json:"cxId"`
	PatientID                string           `json:"patientId,omitempty"`
	Timestamp                time.Time        `json:"timestamp"`
	ProcessingMode           string           `json:"processingMode,omitempty"`
	SamlAttributes           SamlAttributes   `json:"samlAttributes"`
	PatientResource          *PatientResource `json:"patientResource"`
	PrincipalCareProviderIDs []string         `json:"principalCareProviderIds,omitempty"`
	Gateways                 []Gateway        `json:"gateways"`
	GatewayOIDs              []string         `json:"gatewayOids,omitempty"`
}

// DocumentQueryRequest is the internal form of an outbound XCA document
// query (ITI-38).
type DocumentQueryRequest struct {
	ID                     string            `json:"id"`
	CxID                   string            `json:"cxId"`
	PatientID              string            `json:"patientId,omitempty"`
	Timestamp              time.Time         `json:"timestamp"`
	SamlAttributes         SamlAttributes    `json:"samlAttributes"`
	ExternalGatewayPatient PatientIdentifier `json:"externalGatewayPatient"`
	ClassCode              *Code             `json:"classCode,omitempty"`
	PracticeSettingCode    *Code             `json:"practiceSettingCode,omitempty"`
	FacilityTypeCode       *Code             `json:"facilityTypeCode,omitempty"`
	ServiceDate            *DateRange        `json:"serviceDate,omitempty"`
	DocumentCreationDate   *DateRange        `json:"documentCreationDate,omitempty"`
	Gateways               []Gateway         `json:"gateways"`
	GatewayOIDs            []string          `json:"gatewayOids,omitempty"`
}

// DocumentRetrievalRequest is the internal form of an outbound XCA document
// retrieval (ITI-39). Each referenced document names the community and
// repository that hold it.
type DocumentRetrievalRequest struct {
	ID                 string              `json:"id"`
	CxID               string              `json:"cxId"`
	PatientID          string              `json:"patientId,omitempty"`
	Timestamp          time.Time           `json:"timestamp"`
	SamlAttributes     SamlAttributes      `json:"samlAttributes"`
	DocumentReferences []DocumentReference `json:"documentReference"`
	Gateways           []Gateway           `json:"gateways"`
	GatewayOIDs        []string            `json:"gatewayOids,omitempty"`
}

// DocumentReference identifies a document held by a remote community. On
// retrieval results it additionally carries content metadata and the blob
// location the bytes were stored under.
type DocumentReference struct {
	HomeCommunityID    string `json:"homeCommunityId"`
	RepositoryUniqueID string `json:"repositoryUniqueId"`
	DocumentUniqueID   string `json:"docUniqueId"`
	ContentType        string `json:"contentType,omitempty"`
	Language           string `json:"language,omitempty"`
	Size               int64  `json:"size,omitempty"`
	Title              string `json:"title,omitempty"`
	Creation           string `json:"creation,omitempty"`
	ServiceStartTime   string `json:"serviceStartTime,omitempty"`
	ServiceStopTime    string `json:"serviceStopTime,omitempty"`
	AuthorPerson       string `json:"authorPerson,omitempty"`
	AuthorInstitution  string `json:"authorInstitution,omitempty"`
	URL                string `json:"url,omitempty"`
	FileName           string `json:"fileName,omitempty"`
	FileLocation       string `json:"fileLocation,omitempty"`
	IsNew              bool   `json:"isNew,omitempty"`
}

// ResponseCode is the three-valued registry response status extracted from
// an XCA response.
type ResponseCode string

const (
	ResponseSuccess        ResponseCode = "Success"
	ResponsePartialSuccess ResponseCode = "PartialSuccess"
	ResponseFailure        ResponseCode = "Failure"
)

// MatchOutcome classifies a patient discovery response.
type MatchOutcome string

const (
	MatchOutcomeMatched MatchOutcome = "Matched"
	MatchOutcomeNoMatch MatchOutcome = "NoMatch"
	MatchOutcomeFault   MatchOutcome = "Fault"
)

// GatewayCall is the normalized result of one fan-out leg. Exactly one of
// the result fields (PatientResource / DocumentReferences) or an
// OperationOutcome with error-severity issues is populated; the two never
// signal success and failure at the same time.
type GatewayCall struct {
	RequestID         string              `json:"id"`
	CxID              string              `json:"cxId,omitempty"`
	PatientID         string              `json:"patientId,omitempty"`
	Gateway           Gateway             `json:"gateway"`
	MessageID         string              `json:"messageId"`
	RequestTimestamp  time.Time           `json:"requestTimestamp"`
	ResponseTimestamp time.Time           `json:"responseTimestamp"`
	Transaction       TransactionType     `json:"transaction"`
	ResponseCode      ResponseCode        `json:"responseCode,omitempty"`
	PatientMatch      *bool               `json:"patientMatch,omitempty"`
	ExternalPatient   *PatientIdentifier  `json:"externalGatewayPatient,omitempty"`
	PatientResource   *PatientResource    `json:"patientResource,omitempty"`
	DocumentRefs      []DocumentReference `json:"documentReference,omitempty"`
	OperationOutcome  *OperationOutcome   `json:"operationOutcome,omitempty"`
}

// Succeeded reports whether the call resolved with usable results.
func (g *GatewayCall) Succeeded() bool {
	if g.PatientMatch != nil {
		return *g.PatientMatch
	}
	return g.ResponseCode == ResponseSuccess || g.ResponseCode == ResponsePartialSuccess
}
