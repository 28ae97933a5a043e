package outbound

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hie/bridge/internal/domain/documentquery"
	"github.com/hie/bridge/internal/domain/documentretrieval"
	"github.com/hie/bridge/internal/domain/exchange"
	"github.com/hie/bridge/internal/domain/patientdiscovery"
	"github.com/hie/bridge/internal/platform/soap"
)

// ErrDeferredMode rejects patient discovery requests asking for deferred
// processing; only synchronous request/response is supported.
var ErrDeferredMode = errors.New(soap.ReasonUnsupportedMode)

// Dispatcher fans one transaction request out to its target gateways, one
// goroutine per gateway. Results are emitted on a channel as each leg
// completes; a request to N gateways always yields exactly N results.
type Dispatcher struct {
	client     *Client
	correlator *Correlator
	processor  *documentretrieval.Processor
	legTimeout time.Duration
	log        zerolog.Logger

	now   func() time.Time
	newID func() string
}

// NewDispatcher wires a dispatcher. legTimeout bounds each gateway leg
// independently; a slow gateway never delays the others' results.
func NewDispatcher(client *Client, processor *documentretrieval.Processor, legTimeout time.Duration, log zerolog.Logger) *Dispatcher {
	if legTimeout <= 0 {
		legTimeout = 2 * time.Minute
	}
	return &Dispatcher{
		client:     client,
		correlator: NewCorrelator(log),
		processor:  processor,
		legTimeout: legTimeout,
		log:        log,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// DispatchPatientDiscovery fans an ITI-55 request out to every gateway.
// Deferred-mode requests are rejected before any leg is dispatched.
func (d *Dispatcher) DispatchPatientDiscovery(ctx context.Context, req *exchange.PatientDiscoveryRequest) (<-chan exchange.GatewayCall, error) {
	if req.ProcessingMode == exchange.ModeDeferred {
		return nil, ErrDeferredMode
	}
	return d.fanOut(ctx, req.Gateways, func(ctx context.Context, gw exchange.Gateway) exchange.GatewayCall {
		return d.patientDiscoveryLeg(ctx, req, gw)
	}), nil
}

// DispatchDocumentQuery fans an ITI-38 request out to every gateway.
func (d *Dispatcher) DispatchDocumentQuery(ctx context.Context, req *exchange.DocumentQueryRequest) <-chan exchange.GatewayCall {
	return d.fanOut(ctx, req.Gateways, func(ctx context.Context, gw exchange.Gateway) exchange.GatewayCall {
		return d.documentQueryLeg(ctx, req, gw)
	})
}

// DispatchDocumentRetrieval fans an ITI-39 request out to every gateway.
func (d *Dispatcher) DispatchDocumentRetrieval(ctx context.Context, req *exchange.DocumentRetrievalRequest) <-chan exchange.GatewayCall {
	return d.fanOut(ctx, req.Gateways, func(ctx context.Context, gw exchange.Gateway) exchange.GatewayCall {
		return d.documentRetrievalLeg(ctx, req, gw)
	})
}

func (d *Dispatcher) fanOut(ctx context.Context, gws []exchange.Gateway, leg func(context.Context, exchange.Gateway) exchange.GatewayCall) <-chan exchange.GatewayCall {
	out := make(chan exchange.GatewayCall, len(gws))
	var wg sync.WaitGroup
	for _, gw := range gws {
		wg.Add(1)
		go func(gw exchange.Gateway) {
			defer wg.Done()
			legCtx, cancel := context.WithTimeout(ctx, d.legTimeout)
			defer cancel()
			out <- leg(legCtx, gw)
		}(gw)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// newCall opens a gateway call: a fresh message id per leg, tracked in the
// correlator before the envelope goes on the wire.
func (d *Dispatcher) newCall(requestID, cxID, patientID string, gw exchange.Gateway, tx exchange.TransactionType) exchange.GatewayCall {
	call := exchange.GatewayCall{
		RequestID:        requestID,
		CxID:             cxID,
		PatientID:        patientID,
		Gateway:          gw,
		MessageID:        d.newID(),
		RequestTimestamp: d.now().UTC(),
		Transaction:      tx,
	}
	d.correlator.Track(call.MessageID, CallContext{
		RequestID:        requestID,
		CxID:             cxID,
		PatientID:        patientID,
		GatewayID:        gw.ID,
		Transaction:      tx,
		RequestTimestamp: call.RequestTimestamp,
	})
	return call
}

// call posts the envelope with a single retry on transport-level failures.
// Gateway answers, including faults, are never retried.
func (d *Dispatcher) call(ctx context.Context, gw exchange.Gateway, action string, env *soap.Envelope) (*soap.ReceivedEnvelope, *soap.MessageParts, error) {
	recv, parts, err := d.client.Call(ctx, gw.URL, action, env)
	if err != nil && ctx.Err() == nil {
		d.log.Warn().Err(err).Str("gateway", gw.OID).Msg("gateway call failed, retrying once")
		recv, parts, err = d.client.Call(ctx, gw.URL, action, env)
	}
	return recv, parts, err
}

// failTransport closes a leg that never produced a decodable response.
func (d *Dispatcher) failTransport(ctx context.Context, call *exchange.GatewayCall, err error) {
	d.correlator.Discard(call.MessageID)
	call.ResponseTimestamp = d.now().UTC()
	call.ResponseCode = exchange.ResponseFailure
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		call.OperationOutcome = exchange.TimeoutOutcome(call.RequestID, fmt.Sprintf("gateway %s did not respond: %v", call.Gateway.OID, err))
		return
	}
	call.OperationOutcome = exchange.TransportOutcome(call.RequestID, err.Error())
}

// correlate resolves the response back to its dispatch context. A response
// relating to nothing we sent is dropped and the leg closes as a failure.
func (d *Dispatcher) correlate(call *exchange.GatewayCall, recv *soap.ReceivedEnvelope) bool {
	call.ResponseTimestamp = d.now().UTC()
	relatesTo := recv.RelatesTo()
	if relatesTo == "" {
		relatesTo = call.MessageID
	}
	cc, ok := d.correlator.Resolve(relatesTo)
	if ok && cc.GatewayID != call.Gateway.ID {
		// The response echoes another leg's message id. Restore that
		// leg's context and treat this answer as uncorrelated.
		d.log.Warn().
			Str("gateway", call.Gateway.OID).
			Str("relates_to", relatesTo).
			Msg("response relates to another gateway's message, dropping")
		d.correlator.Track(relatesTo, cc)
		ok = false
	}
	if !ok {
		d.correlator.Discard(call.MessageID)
		call.ResponseCode = exchange.ResponseFailure
		call.OperationOutcome = exchange.SchemaOutcome(call.RequestID, "response does not relate to a pending request")
		return false
	}
	call.RequestTimestamp = cc.RequestTimestamp
	return true
}

// recoverLeg converts a panic inside a leg into an internal-error result so
// the caller still sees one result per gateway.
func (d *Dispatcher) recoverLeg(call *exchange.GatewayCall) {
	if r := recover(); r != nil {
		d.log.Error().Interface("panic", r).Str("gateway", call.Gateway.OID).Msg("dispatch leg panicked")
		d.correlator.Discard(call.MessageID)
		call.ResponseTimestamp = d.now().UTC()
		call.ResponseCode = exchange.ResponseFailure
		call.PatientMatch = nil
		call.PatientResource = nil
		call.DocumentRefs = nil
		call.OperationOutcome = exchange.InternalOutcome(call.RequestID, fmt.Sprintf("dispatch leg panicked: %v", r))
	}
}

func (d *Dispatcher) patientDiscoveryLeg(ctx context.Context, req *exchange.PatientDiscoveryRequest, gw exchange.Gateway) (call exchange.GatewayCall) {
	call = d.newCall(req.ID, req.CxID, req.PatientID, gw, exchange.TransactionPatientDiscovery)
	defer d.recoverLeg(&call)

	env := patientdiscovery.Envelope(req, gw, call.MessageID, d.now().UTC())
	recv, _, err := d.call(ctx, gw, soap.ActionITI55, env)
	if err != nil {
		d.failTransport(ctx, &call, err)
		return call
	}
	if !d.correlate(&call, recv) {
		return call
	}
	if f, ok := soap.ParseFault(recv); ok {
		call.ResponseCode = exchange.ResponseFailure
		call.OperationOutcome = exchange.SchemaOutcome(call.RequestID, "soap fault: "+f.ReasonText())
		return call
	}

	var body patientdiscovery.ResponseBody
	if err := recv.DecodeBody(&body); err != nil {
		call.ResponseCode = exchange.ResponseFailure
		call.OperationOutcome = exchange.SchemaOutcome(call.RequestID, err.Error())
		return call
	}

	res := patientdiscovery.Classify(&body)
	switch res.Outcome {
	case exchange.MatchOutcomeMatched:
		matched := true
		call.PatientMatch = &matched
		call.ResponseCode = exchange.ResponseSuccess
		call.ExternalPatient = res.ExternalPatient
		call.PatientResource = res.Patient
	case exchange.MatchOutcomeNoMatch:
		matched := false
		call.PatientMatch = &matched
		call.ResponseCode = exchange.ResponseSuccess
		call.OperationOutcome = exchange.NoMatchOutcome(call.RequestID)
	default:
		call.ResponseCode = exchange.ResponseFailure
		call.OperationOutcome = exchange.SchemaOutcome(call.RequestID, res.FaultDetail)
	}
	return call
}

func (d *Dispatcher) documentQueryLeg(ctx context.Context, req *exchange.DocumentQueryRequest, gw exchange.Gateway) (call exchange.GatewayCall) {
	call = d.newCall(req.ID, req.CxID, req.PatientID, gw, exchange.TransactionDocumentQuery)
	defer d.recoverLeg(&call)

	env := documentquery.Envelope(req, gw, call.MessageID, d.now().UTC())
	recv, _, err := d.call(ctx, gw, soap.ActionITI38, env)
	if err != nil {
		d.failTransport(ctx, &call, err)
		return call
	}
	if !d.correlate(&call, recv) {
		return call
	}
	if f, ok := soap.ParseFault(recv); ok {
		call.ResponseCode = exchange.ResponseFailure
		call.OperationOutcome = exchange.SchemaOutcome(call.RequestID, "soap fault: "+f.ReasonText())
		return call
	}

	var body documentquery.AdhocQueryResponse
	if err := recv.DecodeBody(&body); err != nil {
		call.ResponseCode = exchange.ResponseFailure
		call.OperationOutcome = exchange.SchemaOutcome(call.RequestID, err.Error())
		return call
	}

	call.ResponseCode = body.ResponseCode()
	call.OperationOutcome = exchange.RegistryOutcome(call.RequestID, body.RegistryErrors())
	if call.ResponseCode == exchange.ResponseFailure {
		if call.OperationOutcome == nil {
			call.OperationOutcome = exchange.SchemaOutcome(call.RequestID, "registry reported failure without error detail")
		}
		return call
	}

	call.DocumentRefs = body.DocumentReferences()
	if len(call.DocumentRefs) == 0 {
		// A query that succeeds but locates nothing is reported as a
		// failure so downstream consumers never see an empty success.
		call.ResponseCode = exchange.ResponseFailure
		call.OperationOutcome = exchange.NoDocumentsOutcome(call.RequestID)
	}
	return call
}

func (d *Dispatcher) documentRetrievalLeg(ctx context.Context, req *exchange.DocumentRetrievalRequest, gw exchange.Gateway) (call exchange.GatewayCall) {
	call = d.newCall(req.ID, req.CxID, req.PatientID, gw, exchange.TransactionDocumentRetrieval)
	defer d.recoverLeg(&call)

	env := documentretrieval.Envelope(req, gw, call.MessageID, d.now().UTC())
	recv, parts, err := d.call(ctx, gw, soap.ActionITI39, env)
	if err != nil {
		d.failTransport(ctx, &call, err)
		return call
	}
	if !d.correlate(&call, recv) {
		return call
	}
	if f, ok := soap.ParseFault(recv); ok {
		call.ResponseCode = exchange.ResponseFailure
		call.OperationOutcome = exchange.SchemaOutcome(call.RequestID, "soap fault: "+f.ReasonText())
		return call
	}

	var body documentretrieval.RetrieveResponseBody
	if err := recv.DecodeBody(&body); err != nil {
		call.ResponseCode = exchange.ResponseFailure
		call.OperationOutcome = exchange.SchemaOutcome(call.RequestID, err.Error())
		return call
	}

	call.ResponseCode = body.ResponseCode()
	call.OperationOutcome = exchange.RegistryOutcome(call.RequestID, body.RegistryErrors())
	if call.ResponseCode == exchange.ResponseFailure {
		if call.OperationOutcome == nil {
			call.OperationOutcome = exchange.SchemaOutcome(call.RequestID, "repository reported failure without error detail")
		}
		return call
	}

	refs, err := d.processor.Process(ctx, req, &body, parts)
	if err != nil {
		call.ResponseCode = exchange.ResponseFailure
		call.OperationOutcome = exchange.BackendOutcome(call.RequestID, err.Error())
		return call
	}
	call.DocumentRefs = refs
	if len(call.DocumentRefs) == 0 {
		call.ResponseCode = exchange.ResponseFailure
		call.OperationOutcome = exchange.NoDocumentsOutcome(call.RequestID)
	}
	return call
}
