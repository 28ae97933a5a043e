package exchange

// ValidationResult is the per-entry verdict for bulk submissions. A rejected
// entry carries a reason and never aborts the rest of the batch.
type ValidationResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

func valid() ValidationResult {
	return ValidationResult{OK: true}
}

func rejected(reason string) ValidationResult {
	return ValidationResult{OK: false, Reason: reason}
}

// ValidatePatientDiscovery checks an XCPD entry: it must target at least one
// gateway and carry patient demographics.
func ValidatePatientDiscovery(req *PatientDiscoveryRequest) ValidationResult {
	if req == nil {
		return rejected("missing request body")
	}
	if req.ID == "" {
		return rejected("missing request id")
	}
	if len(req.Gateways) == 0 {
		return rejected("no gateways specified")
	}
	if req.PatientResource == nil {
		return rejected("missing patient resource")
	}
	return valid()
}

// ValidateDocumentQuery checks an XCA-DQ entry: the target gateway must have
// a home community id and url, and the patient must be identified by
// assigning authority plus local id.
func ValidateDocumentQuery(req *DocumentQueryRequest) ValidationResult {
	if req == nil {
		return rejected("missing request body")
	}
	if req.ID == "" {
		return rejected("missing request id")
	}
	if len(req.Gateways) == 0 {
		return rejected("no gateways specified")
	}
	for _, gw := range req.Gateways {
		if gw.HomeCommunityID == "" {
			return rejected("gateway missing homeCommunityId")
		}
		if gw.URL == "" {
			return rejected("gateway missing url")
		}
	}
	if req.ExternalGatewayPatient.ID == "" || req.ExternalGatewayPatient.System == "" {
		return rejected("missing external gateway patient identifier")
	}
	return valid()
}

// ValidateDocumentRetrieval checks an XCA-DR entry: SAML attributes are
// mandatory and at least one document must be referenced.
func ValidateDocumentRetrieval(req *DocumentRetrievalRequest) ValidationResult {
	if req == nil {
		return rejected("missing request body")
	}
	if req.ID == "" {
		return rejected("missing request id")
	}
	if req.SamlAttributes.Empty() {
		return rejected("missing saml attributes")
	}
	if len(req.DocumentReferences) == 0 {
		return rejected("no document references specified")
	}
	for _, ref := range req.DocumentReferences {
		if ref.DocumentUniqueID == "" || ref.RepositoryUniqueID == "" {
			return rejected("document reference missing repository or document id")
		}
	}
	if len(req.Gateways) == 0 {
		return rejected("no gateways specified")
	}
	return valid()
}
