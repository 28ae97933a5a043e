package documentretrieval

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hie/bridge/internal/domain/exchange"
	"github.com/hie/bridge/internal/platform/blobstore"
	"github.com/hie/bridge/internal/platform/soap"
)

func testRequest() *exchange.DocumentRetrievalRequest {
	return &exchange.DocumentRetrievalRequest{
		ID:   "dr-req-1",
		CxID: "cx-1",
		SamlAttributes: exchange.SamlAttributes{
			SubjectID:       "Jane Clinician",
			Organization:    "Example Health",
			OrganizationID:  "2.16.840.1.113883.3.9999",
			HomeCommunityID: "2.16.840.1.113883.3.9999",
			PurposeOfUse:    "TREATMENT",
		},
		PatientID: "pat-1",
		DocumentReferences: []exchange.DocumentReference{{
			HomeCommunityID:    "1.2.3.4",
			RepositoryUniqueID: "1.2.3.4.5",
			DocumentUniqueID:   "doc-uid-1",
		}},
		Gateways: []exchange.Gateway{{ID: "gw-1", OID: "1.2.3.4", URL: "https://gw.example.com/xca"}},
	}
}

func TestRequestEnvelopeRoundTrip(t *testing.T) {
	req := testRequest()
	env := Envelope(req, req.Gateways[0], "msg-dr-1", time.Now())
	out, err := env.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	recv, err := soap.Decode(out)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if recv.Header.Action != soap.ActionITI39 {
		t.Errorf("action = %q", recv.Header.Action)
	}

	var inbound InboundRequest
	if err := recv.DecodeBody(&inbound); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(inbound.DocumentRequests) != 1 {
		t.Fatalf("got %d document requests, want 1", len(inbound.DocumentRequests))
	}
	dr := inbound.DocumentRequests[0]
	if dr.DocumentUniqueID != "doc-uid-1" || dr.RepositoryUniqueID != "1.2.3.4.5" {
		t.Errorf("document request = %+v", dr)
	}
	if dr.HomeCommunityID != "urn:oid:1.2.3.4" {
		t.Errorf("home community = %q", dr.HomeCommunityID)
	}
}

func retrieveResponseXML(docB64 string) string {
	return `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope">
  <s:Body>
    <xdsb:RetrieveDocumentSetResponse xmlns:xdsb="urn:ihe:iti:xds-b:2007" xmlns:rs="urn:oasis:names:tc:ebxml-regrep:xsd:rs:3.0">
      <rs:RegistryResponse status="urn:oasis:names:tc:ebxml-regrep:ResponseStatusType:Success"/>
      <xdsb:DocumentResponse>
        <xdsb:HomeCommunityId>urn:oid:1.2.3.4</xdsb:HomeCommunityId>
        <xdsb:RepositoryUniqueId>1.2.3.4.5</xdsb:RepositoryUniqueId>
        <xdsb:DocumentUniqueId>doc-uid-1</xdsb:DocumentUniqueId>
        <xdsb:mimeType>text/xml</xdsb:mimeType>
        <xdsb:Document>` + docB64 + `</xdsb:Document>
      </xdsb:DocumentResponse>
    </xdsb:RetrieveDocumentSetResponse>
  </s:Body>
</s:Envelope>`
}

func TestProcessStoresAndPresigns(t *testing.T) {
	ctx := context.Background()
	content := []byte("<ClinicalDocument/>")
	xmlDoc := retrieveResponseXML(base64.StdEncoding.EncodeToString(content))

	recv, err := soap.Decode([]byte(xmlDoc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var body RetrieveResponseBody
	if err := recv.DecodeBody(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.ResponseCode() != exchange.ResponseSuccess {
		t.Fatalf("response code = %q", body.ResponseCode())
	}

	store := blobstore.NewMemoryStore()
	proc := NewProcessor(store, time.Minute, zerolog.Nop())
	parts := &soap.MessageParts{Root: []byte(xmlDoc)}

	refs, err := proc.Process(ctx, testRequest(), &body, parts)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("got %d refs, want 1", len(refs))
	}
	ref := refs[0]
	if !ref.IsNew {
		t.Error("first store should be new")
	}
	if ref.URL == "" {
		t.Error("missing presigned url")
	}
	if ref.FileLocation != "cx-1/pat-1/doc-uid-1.xml" {
		t.Errorf("file location = %q", ref.FileLocation)
	}
	if ref.Size != int64(len(content)) {
		t.Errorf("size = %d", ref.Size)
	}

	blob, err := store.Get(ctx, ref.FileLocation)
	if err != nil {
		t.Fatalf("get stored blob: %v", err)
	}
	if string(blob.Data) != string(content) {
		t.Error("stored bytes differ from decoded document")
	}

	// Second pass must not rewrite.
	refs2, err := proc.Process(ctx, testRequest(), &body, parts)
	if err != nil {
		t.Fatalf("process again: %v", err)
	}
	if refs2[0].IsNew {
		t.Error("second store should not be new")
	}
}

func TestBuildInboundResponse(t *testing.T) {
	docs := []InboundDocument{{
		Reference: exchange.DocumentReference{
			HomeCommunityID:    "1.2.3.4",
			RepositoryUniqueID: "1.2.3.4.5",
			DocumentUniqueID:   "doc-uid-1",
			ContentType:        "text/xml",
		},
		Data: []byte("<ClinicalDocument/>"),
	}}

	full := BuildInboundResponse(docs, 1, "")
	if full.RegistryResponse.Status != soap.StatusSuccess {
		t.Errorf("status = %q", full.RegistryResponse.Status)
	}
	if !strings.Contains(full.DocumentResponses[0].Document, base64.StdEncoding.EncodeToString([]byte("<ClinicalDocument/>"))) {
		t.Error("document not inlined as base64")
	}

	partial := BuildInboundResponse(docs, 2, "")
	if partial.RegistryResponse.Status != soap.StatusPartialSuccess {
		t.Errorf("partial status = %q", partial.RegistryResponse.Status)
	}

	failed := BuildInboundResponse(nil, 1, "repository offline")
	if failed.RegistryResponse.Status != soap.StatusFailure {
		t.Errorf("failure status = %q", failed.RegistryResponse.Status)
	}
	if failed.RegistryResponse.RegistryErrorList == nil {
		t.Fatal("failure must carry a registry error")
	}
}
