package exchange

// Issue severities, ordered from most to least severe.
const (
	SeverityFatal       = "fatal"
	SeverityError       = "error"
	SeverityWarning     = "warning"
	SeverityInformation = "information"
)

// Issue codes used by the fault translator for non-registry failures.
const (
	CodeRegistryError = "XDSRegistryError"
	CodeInvalid       = "invalid"
	CodeHTTPError     = "http-error"
	CodeUnreachable   = "unreachable"
	CodeNotFound      = "not-found"
	CodeInternal      = "internal-error"
	CodeNoDocuments   = "no-documents-found"
)

// OperationOutcome is the FHIR-shaped error carrier attached to failed or
// partially failed gateway calls. ID always echoes the originating request id
// so downstream consumers can correlate without the envelope.
type OperationOutcome struct {
	ResourceType string  `json:"resourceType"`
	ID           string  `json:"id"`
	Issue        []Issue `json:"issue"`
}

// Issue is a single problem entry inside an OperationOutcome.
type Issue struct {
	Severity    string `json:"severity"`
	Code        string `json:"code"`
	DetailsText string `json:"details,omitempty"`
	Diagnostics string `json:"diagnostics,omitempty"`
}

// NewOutcome builds an OperationOutcome echoing the request id.
func NewOutcome(requestID string, issues ...Issue) *OperationOutcome {
	return &OperationOutcome{
		ResourceType: "OperationOutcome",
		ID:           requestID,
		Issue:        issues,
	}
}

// HasErrors reports whether any issue is of error or fatal severity.
// Informational and warning issues alone do not make an outcome a failure.
func (o *OperationOutcome) HasErrors() bool {
	if o == nil {
		return false
	}
	for _, is := range o.Issue {
		if is.Severity == SeverityFatal || is.Severity == SeverityError {
			return true
		}
	}
	return false
}
