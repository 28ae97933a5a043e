// Package soap implements the SOAP 1.2 envelope codec used for
// cross-gateway calls: WS-Addressing headers, the SAML security header,
// fault construction and parsing, and MTOM multipart handling.
package soap

// Namespace URIs.
const (
	NSEnvelope   = "http://www.w3.org/2003/05/soap-envelope"
	NSAddressing = "http://www.w3.org/2005/08/addressing"
	NSWSSecurity = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"
	NSWSUtility  = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd"
	NSSAML2      = "urn:oasis:names:tc:SAML:2.0:assertion"
	NSXSI        = "http://www.w3.org/2001/XMLSchema-instance"
	NSXS         = "http://www.w3.org/2001/XMLSchema"
	NSHL7V3      = "urn:hl7-org:v3"
	NSRim        = "urn:oasis:names:tc:ebxml-regrep:xsd:rim:3.0"
	NSQuery      = "urn:oasis:names:tc:ebxml-regrep:xsd:query:3.0"
	NSRs         = "urn:oasis:names:tc:ebxml-regrep:xsd:rs:3.0"
	NSIheIti     = "urn:ihe:iti:xds-b:2007"
)

// WS-Addressing action URIs, fixed per transaction.
const (
	ActionITI55         = "urn:hl7-org:v3:PRPA_IN201305UV02:CrossGatewayPatientDiscovery"
	ActionITI55Response = "urn:hl7-org:v3:PRPA_IN201306UV02:CrossGatewayPatientDiscovery"
	ActionITI55Deferred = "urn:hl7-org:v3:PRPA_IN201305UV02:Deferred:CrossGatewayPatientDiscovery"
	ActionITI38         = "urn:ihe:iti:2007:CrossGatewayQuery"
	ActionITI38Response = "urn:ihe:iti:2007:CrossGatewayQueryResponse"
	ActionITI39         = "urn:ihe:iti:2007:CrossGatewayRetrieve"
	ActionITI39Response = "urn:ihe:iti:2007:CrossGatewayRetrieveResponse"
)

// ReplyToAnonymous is the WS-Addressing anonymous endpoint reference.
const ReplyToAnonymous = "http://www.w3.org/2005/08/addressing/anonymous"

// Registry response status values (ebRS). The response code is derived from
// the token after the last colon.
const (
	StatusSuccess        = "urn:oasis:names:tc:ebxml-regrep:ResponseStatusType:Success"
	StatusPartialSuccess = "urn:ihe:iti:2007:ResponseStatusType:PartialSuccess"
	StatusFailure        = "urn:oasis:names:tc:ebxml-regrep:ResponseStatusType:Failure"
)

// Stored-query and attribute constants used by the ITI-38 body.
const (
	FindDocumentsQueryID = "urn:uuid:14d4debf-8f97-4251-9a74-a90016b0af0d"
	LeafClassReturnType  = "LeafClass"

	DocStatusApproved = "('urn:oasis:names:tc:ebxml-regrep:StatusType:Approved')"

	DocEntryTypeStable   = "urn:uuid:7edca82f-054d-47f2-a032-9b2a5b5186c1"
	DocEntryTypeOnDemand = "urn:uuid:34268e47-fdf5-41a6-ba33-82133c465248"
)

// SAML attribute code systems.
const (
	RoleCodeSystemSNOMED   = "2.16.840.1.113883.6.96"
	RoleCodeMedicalDoctor  = "224608005"
	PurposeOfUseCodeSystem = "2.16.840.1.113883.3.18.7.1"
)

// ContentTypeSOAP is the Content-Type for a plain SOAP 1.2 request.
const ContentTypeSOAP = "application/soap+xml; charset=utf-8"
