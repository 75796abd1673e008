package monitor

import (
	"sync/atomic"

	"github.com/arguscam/argus/pkg/nn"
)

// InferenceRequest wraps a single named vision task: it holds the opaque
// engine request handle and the single-slot results callback. A request is
// created once and reused across frames; reconfiguring it for a new target
// resets only the seed observation and the final-frame flag, never the
// handle itself.
type InferenceRequest struct {
	mon       *Monitor
	sub       Submitter // non-owning: the submitter whose batch carries this request
	kind      nn.RequestKind
	engineReq nn.EngineRequest

	// gen stamps completions with the callback registration they belong to.
	// enable and disable bump it. A completion whose submission predates the
	// current registration is recognized as stale by the results goroutine
	// and dropped, instead of firing into a request that has since been
	// recycled to serve a different object.
	gen          atomic.Uint64
	submittedGen atomic.Uint64

	onResults func(results []nn.Observation, err error) // results goroutine only
}

func (m *Monitor) newInferenceRequest(kind nn.RequestKind) (*InferenceRequest, error) {
	engineReq, err := m.engine.NewRequest(kind)
	if err != nil {
		return nil, err
	}
	r := &InferenceRequest{
		mon:       m,
		kind:      kind,
		engineReq: engineReq,
	}
	engineReq.OnComplete(r.deliver)
	return r, nil
}

// deliver runs on an engine worker goroutine. It marshals the completion
// onto the results queue and touches no pipeline state.
func (r *InferenceRequest) deliver(results []nn.Observation, err error) {
	if r.mon.closed.Load() {
		return
	}
	msg := resultMsg{
		req:     r,
		gen:     r.submittedGen.Load(),
		results: results,
		err:     err,
	}
	select {
	case r.mon.resultQueue <- msg:
	default:
		// We do not expect this
		r.mon.Log.Warnf("Results queue is full - dropping a %v completion", r.kind)
	}
}

// markSubmitted records the generation this submission belongs to. Called by
// the submitter as it builds a batch.
func (r *InferenceRequest) markSubmitted() {
	r.submittedGen.Store(r.gen.Load())
}

// enable registers the results handler and arms delivery.
func (r *InferenceRequest) enable(cb func(results []nn.Observation, err error)) {
	r.gen.Add(1)
	r.onResults = cb
}

// disable deregisters the handler. No callback fires after disable returns:
// completions already in flight carry an older generation and are dropped.
func (r *InferenceRequest) disable() {
	r.gen.Add(1)
	r.onResults = nil
}

// reuse reconfigures a tracking request to pursue a new observation,
// clearing the final-frame flag left over from its previous target.
func (r *InferenceRequest) reuse(seed nn.Observation) {
	r.engineReq.SetObservation(seed)
	r.engineReq.SetFinalFrame(false)
}

// setFinalFrame tells the engine to stop pursuing this request's target
// after its current pass.
func (r *InferenceRequest) setFinalFrame() {
	r.engineReq.SetFinalFrame(true)
}
