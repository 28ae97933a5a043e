package exchange

import "testing"

func samlAttrs() SamlAttributes {
	return SamlAttributes{
		SubjectID:       "Jane Clinician",
		SubjectRole:     "Medical doctor",
		Organization:    "Example Health",
		OrganizationID:  "2.16.840.1.113883.3.9999",
		HomeCommunityID: "2.16.840.1.113883.3.9999",
		PurposeOfUse:    "TREATMENT",
	}
}

func TestValidatePatientDiscovery(t *testing.T) {
	base := func() *PatientDiscoveryRequest {
		return &PatientDiscoveryRequest{
			ID:             "pd-1",
			CxID:           "cx-1",
			SamlAttributes: samlAttrs(),
			PatientResource: &PatientResource{
				Name:      []HumanName{{Family: "Smith", Given: []string{"John"}}},
				Gender:    "male",
				BirthDate: "1970-01-01",
			},
			Gateways: []Gateway{{ID: "gw-1", OID: "1.2.3", URL: "https://gw.example.com/xcpd"}},
		}
	}

	if res := ValidatePatientDiscovery(base()); !res.OK {
		t.Fatalf("valid request rejected: %s", res.Reason)
	}

	noGw := base()
	noGw.Gateways = nil
	if res := ValidatePatientDiscovery(noGw); res.OK {
		t.Error("request with no gateways should be rejected")
	}

	noPatient := base()
	noPatient.PatientResource = nil
	if res := ValidatePatientDiscovery(noPatient); res.OK {
		t.Error("request without patient resource should be rejected")
	}

	if res := ValidatePatientDiscovery(nil); res.OK {
		t.Error("nil request should be rejected")
	}
}

func TestValidateDocumentQuery(t *testing.T) {
	base := func() *DocumentQueryRequest {
		return &DocumentQueryRequest{
			ID:                     "dq-1",
			CxID:                   "cx-1",
			SamlAttributes:         samlAttrs(),
			ExternalGatewayPatient: PatientIdentifier{ID: "abc123", System: "1.2.840.114350"},
			Gateways: []Gateway{{
				ID:              "gw-1",
				OID:             "1.2.3",
				URL:             "https://gw.example.com/xca",
				HomeCommunityID: "1.2.3",
			}},
		}
	}

	if res := ValidateDocumentQuery(base()); !res.OK {
		t.Fatalf("valid request rejected: %s", res.Reason)
	}

	noHcid := base()
	noHcid.Gateways[0].HomeCommunityID = ""
	if res := ValidateDocumentQuery(noHcid); res.OK {
		t.Error("gateway without homeCommunityId should be rejected")
	}

	noURL := base()
	noURL.Gateways[0].URL = ""
	if res := ValidateDocumentQuery(noURL); res.OK {
		t.Error("gateway without url should be rejected")
	}

	noPatient := base()
	noPatient.ExternalGatewayPatient = PatientIdentifier{}
	if res := ValidateDocumentQuery(noPatient); res.OK {
		t.Error("request without patient identifier should be rejected")
	}
}

func TestValidateDocumentRetrieval(t *testing.T) {
	base := func() *DocumentRetrievalRequest {
		return &DocumentRetrievalRequest{
			ID:             "dr-1",
			CxID:           "cx-1",
			SamlAttributes: samlAttrs(),
			DocumentReferences: []DocumentReference{{
				HomeCommunityID:    "1.2.3",
				RepositoryUniqueID: "1.2.3.4",
				DocumentUniqueID:   "doc-1",
			}},
			Gateways: []Gateway{{ID: "gw-1", OID: "1.2.3", URL: "https://gw.example.com/xca"}},
		}
	}

	if res := ValidateDocumentRetrieval(base()); !res.OK {
		t.Fatalf("valid request rejected: %s", res.Reason)
	}

	noSaml := base()
	noSaml.SamlAttributes = SamlAttributes{}
	if res := ValidateDocumentRetrieval(noSaml); res.OK {
		t.Error("request without saml attributes should be rejected")
	}

	noRefs := base()
	noRefs.DocumentReferences = nil
	if res := ValidateDocumentRetrieval(noRefs); res.OK {
		t.Error("request without document references should be rejected")
	}

	badRef := base()
	badRef.DocumentReferences[0].DocumentUniqueID = ""
	if res := ValidateDocumentRetrieval(badRef); res.OK {
		t.Error("document reference without document id should be rejected")
	}
}
