// Package inbound serves the responding side of the bridge: SOAP endpoints
// that accept cross-gateway requests from external communities, delegate the
// actual matching and document lookup to internal backend services over
// JSON, and render the wire response.
package inbound

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hie/bridge/internal/domain/documentquery"
	"github.com/hie/bridge/internal/domain/documentretrieval"
	"github.com/hie/bridge/internal/domain/exchange"
	"github.com/hie/bridge/internal/domain/patientdiscovery"
	"github.com/hie/bridge/internal/platform/backend"
	"github.com/hie/bridge/internal/platform/soap"
)

// Config names the backend endpoints answering each inbound transaction.
type Config struct {
	HomeCommunityID      string
	PatientDiscoveryURL  string
	DocumentQueryURL     string
	DocumentRetrievalURL string
}

// Service answers inbound IHE transactions. Each handler decodes the
// envelope, consults its backend, and returns the response envelope to send;
// backend failures become protocol-level error responses, never HTTP errors.
type Service struct {
	backend *backend.Client
	cfg     Config
	log     zerolog.Logger

	now   func() time.Time
	newID func() string
}

func NewService(client *backend.Client, cfg Config, log zerolog.Logger) *Service {
	return &Service{
		backend: client,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// discoveryBackendRequest is the JSON contract with the patient matching
// backend.
type discoveryBackendRequest struct {
	QueryID         string                    `json:"queryId"`
	SenderOID       string                    `json:"senderOid"`
	PatientResource *exchange.PatientResource `json:"patientResource"`
}

type discoveryBackendResponse struct {
	Matched        bool                      `json:"patientMatch"`
	LocalPatientID string                    `json:"localPatientId,omitempty"`
	LocalSystemOID string                    `json:"localSystemOid,omitempty"`
	Patient        *exchange.PatientResource `json:"patientResource,omitempty"`
}

// PatientDiscovery answers an inbound ITI-55 request. Deferred-mode
// requests, signalled either by the deferred action or by a non-realtime
// response modality, are refused with a sender fault before the backend is
// consulted.
func (s *Service) PatientDiscovery(ctx context.Context, recv *soap.ReceivedEnvelope) *soap.Envelope {
	respID := s.newID()
	relatesTo := recv.Header.MessageID

	if recv.Header.Action == soap.ActionITI55Deferred {
		return soap.NewFaultEnvelope(respID, relatesTo, soap.FaultCodeSender, soap.ReasonUnsupportedMode)
	}

	var body patientdiscovery.InboundRequestBody
	if err := recv.DecodeBody(&body); err != nil {
		s.log.Warn().Err(err).Msg("undecodable inbound discovery request")
		return soap.NewFaultEnvelope(respID, relatesTo, soap.FaultCodeSender, "malformed request body")
	}
	if body.Deferred() {
		return soap.NewFaultEnvelope(respID, relatesTo, soap.FaultCodeSender, soap.ReasonUnsupportedMode)
	}

	info := patientdiscovery.InboundRequestInfo{
		MessageID: recv.Header.MessageID,
		QueryID:   body.ControlActProcess.QueryByParameter.QueryID,
		SenderOID: body.Sender.Device.ID.Root,
	}

	var out discoveryBackendResponse
	res := patientdiscovery.InboundResult{}
	err := s.backend.Invoke(ctx, s.cfg.PatientDiscoveryURL, discoveryBackendRequest{
		QueryID:         info.QueryID.Extension,
		SenderOID:       info.SenderOID,
		PatientResource: body.PatientResource(),
	}, &out)
	if err != nil {
		s.log.Error().Err(err).Msg("patient discovery backend failed")
		res.ProcessingError = err.Error()
	} else {
		res.Matched = out.Matched
		res.LocalPatientID = out.LocalPatientID
		res.LocalSystemOID = out.LocalSystemOID
		res.Patient = out.Patient
	}

	ack := patientdiscovery.BuildAckBody(info, res, s.cfg.HomeCommunityID, respID, s.now())
	return soap.NewEnvelope(soap.Params{
		Action:    soap.ActionITI55Response,
		MessageID: respID,
		RelatesTo: relatesTo,
		Body:      ack,
	})
}

// queryBackendRequest is the JSON contract with the document registry
// backend.
type queryBackendRequest struct {
	QueryID   string                     `json:"queryId"`
	PatientID exchange.PatientIdentifier `json:"patientId"`
}

type queryBackendResponse struct {
	DocumentReferences []exchange.DocumentReference `json:"documentReference"`
}

// DocumentQuery answers an inbound ITI-38 request.
func (s *Service) DocumentQuery(ctx context.Context, recv *soap.ReceivedEnvelope) *soap.Envelope {
	respID := s.newID()
	relatesTo := recv.Header.MessageID

	q, err := documentquery.ParseInbound(recv)
	var respBody *documentquery.QueryResponseBody
	if err != nil {
		s.log.Warn().Err(err).Msg("undecodable inbound document query")
		respBody = documentquery.BuildInboundResponse(nil, err.Error())
	} else {
		var out queryBackendResponse
		err := s.backend.Invoke(ctx, s.cfg.DocumentQueryURL, queryBackendRequest{
			QueryID:   q.QueryID,
			PatientID: q.PatientID,
		}, &out)
		if err != nil {
			s.log.Error().Err(err).Msg("document query backend failed")
			respBody = documentquery.BuildInboundResponse(nil, err.Error())
		} else {
			respBody = documentquery.BuildInboundResponse(out.DocumentReferences, "")
		}
	}

	return soap.NewEnvelope(soap.Params{
		Action:    soap.ActionITI38Response,
		MessageID: respID,
		RelatesTo: relatesTo,
		Body:      respBody,
	})
}

// retrievalBackendRequest is the JSON contract with the document repository
// backend. Document bytes come back base64 encoded in Data.
type retrievalBackendRequest struct {
	DocumentReferences []exchange.DocumentReference `json:"documentReference"`
}

type retrievalBackendResponse struct {
	Documents []retrievedDocument `json:"documents"`
}

type retrievedDocument struct {
	Reference exchange.DocumentReference `json:"reference"`
	Data      []byte                     `json:"data"`
}

// DocumentRetrieval answers an inbound ITI-39 request.
func (s *Service) DocumentRetrieval(ctx context.Context, recv *soap.ReceivedEnvelope) *soap.Envelope {
	respID := s.newID()
	relatesTo := recv.Header.MessageID

	var req documentretrieval.InboundRequest
	var respBody *documentretrieval.RetrieveResponseOut
	if err := recv.DecodeBody(&req); err != nil {
		s.log.Warn().Err(err).Msg("undecodable inbound document retrieval")
		respBody = documentretrieval.BuildInboundResponse(nil, 0, err.Error())
	} else {
		refs := make([]exchange.DocumentReference, 0, len(req.DocumentRequests))
		for _, dr := range req.DocumentRequests {
			refs = append(refs, exchange.DocumentReference{
				HomeCommunityID:    strings.TrimPrefix(dr.HomeCommunityID, "urn:oid:"),
				RepositoryUniqueID: dr.RepositoryUniqueID,
				DocumentUniqueID:   dr.DocumentUniqueID,
			})
		}

		var out retrievalBackendResponse
		err := s.backend.Invoke(ctx, s.cfg.DocumentRetrievalURL, retrievalBackendRequest{DocumentReferences: refs}, &out)
		if err != nil {
			s.log.Error().Err(err).Msg("document retrieval backend failed")
			respBody = documentretrieval.BuildInboundResponse(nil, len(refs), err.Error())
		} else {
			docs := make([]documentretrieval.InboundDocument, 0, len(out.Documents))
			for _, d := range out.Documents {
				docs = append(docs, documentretrieval.InboundDocument{Reference: d.Reference, Data: d.Data})
			}
			respBody = documentretrieval.BuildInboundResponse(docs, len(refs), "")
		}
	}

	return soap.NewEnvelope(soap.Params{
		Action:    soap.ActionITI39Response,
		MessageID: respID,
		RelatesTo: relatesTo,
		Body:      respBody,
	})
}
