package exchange

import (
	"strings"
)

// RegistryError is a single ebRS RegistryError element extracted from an XCA
// RegistryErrorList. Severity arrives as a urn-prefixed value, e.g.
// "urn:oasis:names:tc:ebxml-regrep:ErrorSeverityType:Error".
type RegistryError struct {
	ErrorCode   string
	CodeContext string
	Location    string
	Severity    string
}

// normalizeSeverity strips the urn prefix and lowercases, so
// "...ErrorSeverityType:Warning" becomes "warning". Unknown or empty
// severities default to error.
func normalizeSeverity(s string) string {
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case SeverityFatal, SeverityError, SeverityWarning, SeverityInformation:
		return s
	}
	return SeverityError
}

// RegistryOutcome translates a registry error list into an OperationOutcome,
// one issue per registry error. Returns nil when the list is empty.
func RegistryOutcome(requestID string, regErrs []RegistryError) *OperationOutcome {
	if len(regErrs) == 0 {
		return nil
	}
	issues := make([]Issue, 0, len(regErrs))
	for _, re := range regErrs {
		issues = append(issues, Issue{
			Severity:    normalizeSeverity(re.Severity),
			Code:        re.ErrorCode,
			DetailsText: re.CodeContext,
			Diagnostics: re.Location,
		})
	}
	return NewOutcome(requestID, issues...)
}

// SchemaOutcome marks a response that could not be parsed against the
// expected envelope shape.
func SchemaOutcome(requestID, detail string) *OperationOutcome {
	return NewOutcome(requestID, Issue{
		Severity:    SeverityError,
		Code:        CodeRegistryError,
		DetailsText: detail,
	})
}

// BackendOutcome marks a failure reported by the internal processing backend.
func BackendOutcome(requestID, detail string) *OperationOutcome {
	return NewOutcome(requestID, Issue{
		Severity:    SeverityFatal,
		Code:        CodeInvalid,
		DetailsText: detail,
	})
}

// TransportOutcome marks an HTTP-level failure talking to a remote gateway.
func TransportOutcome(requestID, detail string) *OperationOutcome {
	return NewOutcome(requestID, Issue{
		Severity:    SeverityFatal,
		Code:        CodeHTTPError,
		DetailsText: detail,
	})
}

// TimeoutOutcome marks a gateway that did not answer within the per-leg
// deadline or could not be reached at all.
func TimeoutOutcome(requestID, detail string) *OperationOutcome {
	return NewOutcome(requestID, Issue{
		Severity:    SeverityFatal,
		Code:        CodeUnreachable,
		DetailsText: detail,
	})
}

// InternalOutcome marks an unexpected local failure, e.g. a recovered panic
// inside a dispatch leg.
func InternalOutcome(requestID, detail string) *OperationOutcome {
	return NewOutcome(requestID, Issue{
		Severity:    SeverityFatal,
		Code:        CodeInternal,
		DetailsText: detail,
	})
}

// NoMatchOutcome is the informational outcome attached to a patient
// discovery response that completed normally but found no candidate.
func NoMatchOutcome(requestID string) *OperationOutcome {
	return NewOutcome(requestID, Issue{
		Severity:    SeverityInformation,
		Code:        CodeNotFound,
		DetailsText: "NF",
	})
}

// NoDocumentsOutcome marks a query that succeeded at the registry but
// returned an empty result set where the caller required documents.
func NoDocumentsOutcome(requestID string) *OperationOutcome {
	return NewOutcome(requestID, Issue{
		Severity:    SeverityError,
		Code:        CodeNoDocuments,
		DetailsText: "no documents found",
	})
}
