package documentquery

import (
	"strings"
	"testing"
	"time"

	"github.com/hie/bridge/internal/domain/exchange"
	"github.com/hie/bridge/internal/platform/soap"
)

func testRequest() *exchange.DocumentQueryRequest {
	return &exchange.DocumentQueryRequest{
		ID:   "dq-req-1",
		CxID: "cx-1",
		SamlAttributes: exchange.SamlAttributes{
			SubjectID:       "Jane Clinician",
			Organization:    "Example Health",
			OrganizationID:  "2.16.840.1.113883.3.9999",
			HomeCommunityID: "2.16.840.1.113883.3.9999",
			PurposeOfUse:    "TREATMENT",
		},
		ExternalGatewayPatient: exchange.PatientIdentifier{ID: "remote-9", System: "1.2.840.114350"},
		ClassCode:              &exchange.Code{Code: "34133-9", System: "2.16.840.1.113883.6.1"},
		ServiceDate:            &exchange.DateRange{From: "20200101000000", To: "20231231235959"},
		Gateways: []exchange.Gateway{{
			ID:              "gw-1",
			OID:             "1.2.3.4",
			URL:             "https://gw.example.com/xca",
			HomeCommunityID: "1.2.3.4",
		}},
	}
}

func TestRequestEnvelopeRoundTrip(t *testing.T) {
	req := testRequest()
	env := Envelope(req, req.Gateways[0], "msg-dq-1", time.Now())
	out, err := env.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	doc := string(out)
	if !strings.Contains(doc, soap.FindDocumentsQueryID) {
		t.Error("missing FindDocuments query id")
	}
	if !strings.Contains(doc, "&amp;1.2.840.114350&amp;ISO") {
		t.Error("missing patient id slot value")
	}

	recv, err := soap.Decode(out)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if recv.Header.Action != soap.ActionITI38 {
		t.Errorf("action = %q", recv.Header.Action)
	}

	q, err := ParseInbound(recv)
	if err != nil {
		t.Fatalf("parse inbound: %v", err)
	}
	if q.QueryID != soap.FindDocumentsQueryID {
		t.Errorf("query id = %q", q.QueryID)
	}
	if q.PatientID.ID != "remote-9" || q.PatientID.System != "1.2.840.114350" {
		t.Errorf("patient id = %+v", q.PatientID)
	}
}

func TestParsePatientIDValue(t *testing.T) {
	pid, err := parsePatientIDValue("'abc^^^&1.2.3&ISO'")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if pid.ID != "abc" || pid.System != "1.2.3" {
		t.Errorf("pid = %+v", pid)
	}
	if _, err := parsePatientIDValue("garbage"); err == nil {
		t.Error("expected error for malformed value")
	}
}

const partialSuccessXML = `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope">
  <s:Header><wsa:RelatesTo xmlns:wsa="http://www.w3.org/2005/08/addressing">urn:uuid:msg-dq-1</wsa:RelatesTo></s:Header>
  <s:Body>
    <query:AdhocQueryResponse xmlns:query="urn:oasis:names:tc:ebxml-regrep:xsd:query:3.0"
        xmlns:rim="urn:oasis:names:tc:ebxml-regrep:xsd:rim:3.0"
        xmlns:rs="urn:oasis:names:tc:ebxml-regrep:xsd:rs:3.0"
        status="urn:ihe:iti:2007:ResponseStatusType:PartialSuccess">
      <rs:RegistryErrorList>
        <rs:RegistryError errorCode="XDSUnknownCommunity" codeContext="one community skipped"
            severity="urn:oasis:names:tc:ebxml-regrep:ErrorSeverityType:Warning"/>
      </rs:RegistryErrorList>
      <rim:RegistryObjectList>
        <rim:ExtrinsicObject id="urn:uuid:eo1" home="urn:oid:1.2.3.4" mimeType="text/xml"
            status="urn:oasis:names:tc:ebxml-regrep:StatusType:Approved">
          <rim:Slot name="repositoryUniqueId"><rim:ValueList><rim:Value>1.2.3.4.5</rim:Value></rim:ValueList></rim:Slot>
          <rim:Slot name="creationTime"><rim:ValueList><rim:Value>20230401120000</rim:Value></rim:ValueList></rim:Slot>
          <rim:Slot name="size"><rim:ValueList><rim:Value>2048</rim:Value></rim:ValueList></rim:Slot>
          <rim:Name><rim:LocalizedString value="Continuity of Care Document"/></rim:Name>
          <rim:Classification classificationScheme="urn:uuid:93606bcf-9494-43ec-9b4e-a7748d1a838d" nodeRepresentation="">
            <rim:Slot name="authorPerson"><rim:ValueList><rim:Value>Dr. Example</rim:Value></rim:ValueList></rim:Slot>
          </rim:Classification>
          <rim:ExternalIdentifier identificationScheme="urn:uuid:2e82c1f6-a085-4c72-9da3-8640a32e42ab" value="doc-uid-1"/>
        </rim:ExtrinsicObject>
      </rim:RegistryObjectList>
    </query:AdhocQueryResponse>
  </s:Body>
</s:Envelope>`

func TestParsePartialSuccessResponse(t *testing.T) {
	recv, err := soap.Decode([]byte(partialSuccessXML))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var resp AdhocQueryResponse
	if err := recv.DecodeBody(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if resp.ResponseCode() != exchange.ResponsePartialSuccess {
		t.Errorf("response code = %q", resp.ResponseCode())
	}

	refs := resp.DocumentReferences()
	if len(refs) != 1 {
		t.Fatalf("got %d refs, want 1", len(refs))
	}
	ref := refs[0]
	if ref.DocumentUniqueID != "doc-uid-1" {
		t.Errorf("document unique id = %q", ref.DocumentUniqueID)
	}
	if ref.RepositoryUniqueID != "1.2.3.4.5" {
		t.Errorf("repository id = %q", ref.RepositoryUniqueID)
	}
	if ref.HomeCommunityID != "1.2.3.4" {
		t.Errorf("home community = %q", ref.HomeCommunityID)
	}
	if ref.Size != 2048 {
		t.Errorf("size = %d", ref.Size)
	}
	if ref.Title != "Continuity of Care Document" {
		t.Errorf("title = %q", ref.Title)
	}
	if ref.AuthorPerson != "Dr. Example" {
		t.Errorf("author = %q", ref.AuthorPerson)
	}

	outcome := exchange.RegistryOutcome("dq-req-1", resp.RegistryErrors())
	if outcome == nil || len(outcome.Issue) != 1 {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Issue[0].Severity != exchange.SeverityWarning {
		t.Errorf("severity = %q", outcome.Issue[0].Severity)
	}
	if outcome.HasErrors() {
		t.Error("warning-only outcome must not be an error")
	}
}

func TestBuildInboundResponseRoundTrip(t *testing.T) {
	refs := []exchange.DocumentReference{{
		HomeCommunityID:    "1.2.3.4",
		RepositoryUniqueID: "1.2.3.4.5",
		DocumentUniqueID:   "doc-uid-7",
		ContentType:        "text/xml",
		Title:              "Summary",
		Size:               512,
	}}
	body := BuildInboundResponse(refs, "")
	env := soap.NewEnvelope(soap.Params{
		Action:    soap.ActionITI38Response,
		MessageID: "resp-1",
		RelatesTo: "urn:uuid:msg-dq-1",
		Body:      body,
	})
	out, err := env.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	recv, err := soap.Decode(out)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var resp AdhocQueryResponse
	if err := recv.DecodeBody(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.ResponseCode() != exchange.ResponseSuccess {
		t.Errorf("response code = %q", resp.ResponseCode())
	}
	got := resp.DocumentReferences()
	if len(got) != 1 || got[0].DocumentUniqueID != "doc-uid-7" || got[0].Size != 512 {
		t.Errorf("refs = %+v", got)
	}
}

func TestBuildInboundResponseError(t *testing.T) {
	body := BuildInboundResponse(nil, "registry unavailable")
	if body.Status != soap.StatusFailure {
		t.Errorf("status = %q", body.Status)
	}
	if body.RegistryErrorList == nil || len(body.RegistryErrorList.Errors) != 1 {
		t.Fatal("expected one registry error")
	}
	if body.RegistryErrorList.Errors[0].CodeContext != "registry unavailable" {
		t.Errorf("codeContext = %q", body.RegistryErrorList.Errors[0].CodeContext)
	}
}
