package outbound

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/hie/bridge/internal/domain/exchange"
	"github.com/hie/bridge/internal/platform/resultpub"
)

// GatewayResolver expands gateway directory OID references into dispatch
// gateways for one transaction type.
type GatewayResolver interface {
	ResolveGateways(ctx context.Context, tx exchange.TransactionType, oids []string) ([]exchange.Gateway, error)
}

// Service ties the dispatcher to the result publisher. Synchronous requests
// gather all gateway results before returning; bulk submissions are accepted
// per entry and their results flow out through the publisher as legs finish.
type Service struct {
	dispatcher *Dispatcher
	publisher  resultpub.Publisher
	resolver   GatewayResolver
	log        zerolog.Logger
}

// NewService wires the dispatcher, the result sinks, and an optional gateway
// resolver. A nil resolver disables directory OID references.
func NewService(dispatcher *Dispatcher, publisher resultpub.Publisher, resolver GatewayResolver, log zerolog.Logger) *Service {
	return &Service{dispatcher: dispatcher, publisher: publisher, resolver: resolver, log: log}
}

// ExpandGateways resolves directory OID references and appends them to the
// request's gateway list. It runs before validation so a request may name
// its targets entirely by OID.
func (s *Service) ExpandGateways(ctx context.Context, tx exchange.TransactionType, oids []string, gws *[]exchange.Gateway) error {
	if len(oids) == 0 {
		return nil
	}
	if s.resolver == nil {
		return errors.New("gateway directory is not configured")
	}
	resolved, err := s.resolver.ResolveGateways(ctx, tx, oids)
	if err != nil {
		return err
	}
	*gws = append(*gws, resolved...)
	return nil
}

// BulkOutcome reports how a bulk submission was triaged: entries accepted
// for dispatch versus entries rejected by validation.
type BulkOutcome struct {
	Processed int `json:"processed"`
	Rejected  int `json:"rejected"`
}

// PatientDiscovery runs an ITI-55 fan-out and waits for every leg.
func (s *Service) PatientDiscovery(ctx context.Context, req *exchange.PatientDiscoveryRequest) ([]exchange.GatewayCall, error) {
	ch, err := s.dispatcher.DispatchPatientDiscovery(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.collect(ctx, exchange.TransactionPatientDiscovery, ch), nil
}

// DocumentQuery runs an ITI-38 fan-out and waits for every leg.
func (s *Service) DocumentQuery(ctx context.Context, req *exchange.DocumentQueryRequest) []exchange.GatewayCall {
	return s.collect(ctx, exchange.TransactionDocumentQuery, s.dispatcher.DispatchDocumentQuery(ctx, req))
}

// DocumentRetrieval runs an ITI-39 fan-out and waits for every leg.
func (s *Service) DocumentRetrieval(ctx context.Context, req *exchange.DocumentRetrievalRequest) []exchange.GatewayCall {
	return s.collect(ctx, exchange.TransactionDocumentRetrieval, s.dispatcher.DispatchDocumentRetrieval(ctx, req))
}

// BulkPatientDiscovery validates each entry and dispatches the valid ones.
// Results are not returned; they are published as they complete.
func (s *Service) BulkPatientDiscovery(reqs []*exchange.PatientDiscoveryRequest) BulkOutcome {
	var out BulkOutcome
	for _, req := range reqs {
		if err := s.ExpandGateways(context.Background(), exchange.TransactionPatientDiscovery, req.GatewayOIDs, &req.Gateways); err != nil {
			s.log.Warn().Str("request_id", req.ID).Err(err).Msg("bulk patient discovery entry rejected")
			out.Rejected++
			continue
		}
		if v := exchange.ValidatePatientDiscovery(req); !v.OK {
			s.log.Warn().Str("request_id", req.ID).Str("reason", v.Reason).Msg("bulk patient discovery entry rejected")
			out.Rejected++
			continue
		}
		// Bulk dispatch outlives the submitting HTTP request.
		ch, err := s.dispatcher.DispatchPatientDiscovery(context.Background(), req)
		if err != nil {
			s.log.Warn().Str("request_id", req.ID).Err(err).Msg("bulk patient discovery entry rejected")
			out.Rejected++
			continue
		}
		out.Processed++
		go s.publishAll(context.Background(), exchange.TransactionPatientDiscovery, ch)
	}
	return out
}

// BulkDocumentQuery validates each entry and dispatches the valid ones.
func (s *Service) BulkDocumentQuery(reqs []*exchange.DocumentQueryRequest) BulkOutcome {
	var out BulkOutcome
	for _, req := range reqs {
		if err := s.ExpandGateways(context.Background(), exchange.TransactionDocumentQuery, req.GatewayOIDs, &req.Gateways); err != nil {
			s.log.Warn().Str("request_id", req.ID).Err(err).Msg("bulk document query entry rejected")
			out.Rejected++
			continue
		}
		if v := exchange.ValidateDocumentQuery(req); !v.OK {
			s.log.Warn().Str("request_id", req.ID).Str("reason", v.Reason).Msg("bulk document query entry rejected")
			out.Rejected++
			continue
		}
		out.Processed++
		ch := s.dispatcher.DispatchDocumentQuery(context.Background(), req)
		go s.publishAll(context.Background(), exchange.TransactionDocumentQuery, ch)
	}
	return out
}

// BulkDocumentRetrieval validates each entry and dispatches the valid ones.
func (s *Service) BulkDocumentRetrieval(reqs []*exchange.DocumentRetrievalRequest) BulkOutcome {
	var out BulkOutcome
	for _, req := range reqs {
		if err := s.ExpandGateways(context.Background(), exchange.TransactionDocumentRetrieval, req.GatewayOIDs, &req.Gateways); err != nil {
			s.log.Warn().Str("request_id", req.ID).Err(err).Msg("bulk document retrieval entry rejected")
			out.Rejected++
			continue
		}
		if v := exchange.ValidateDocumentRetrieval(req); !v.OK {
			s.log.Warn().Str("request_id", req.ID).Str("reason", v.Reason).Msg("bulk document retrieval entry rejected")
			out.Rejected++
			continue
		}
		out.Processed++
		ch := s.dispatcher.DispatchDocumentRetrieval(context.Background(), req)
		go s.publishAll(context.Background(), exchange.TransactionDocumentRetrieval, ch)
	}
	return out
}

// collect drains the result channel, publishing each result as it lands.
func (s *Service) collect(ctx context.Context, tx exchange.TransactionType, ch <-chan exchange.GatewayCall) []exchange.GatewayCall {
	var calls []exchange.GatewayCall
	for call := range ch {
		s.publish(ctx, tx, call)
		calls = append(calls, call)
	}
	return calls
}

func (s *Service) publishAll(ctx context.Context, tx exchange.TransactionType, ch <-chan exchange.GatewayCall) {
	for call := range ch {
		s.publish(ctx, tx, call)
	}
}

// publish hands a result to the configured sinks. Delivery failures are
// logged but never fail the gateway call itself.
func (s *Service) publish(ctx context.Context, tx exchange.TransactionType, call exchange.GatewayCall) {
	if err := s.publisher.Publish(ctx, string(tx), call); err != nil {
		s.log.Error().
			Err(err).
			Str("request_id", call.RequestID).
			Str("gateway", call.Gateway.OID).
			Msg("publishing gateway result failed")
	}
}
