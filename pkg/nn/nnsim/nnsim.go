// Package nnsim is an in-process simulated inference engine.
// It honors the nn.Engine contract (submissions return immediately,
// completions arrive later via each request's handler), without any real
// model underneath. Tests drive it manually, completing submissions with
// scripted results; the demo binary runs it in auto mode, where it invents
// plausible wandering detections.
package nnsim

import (
	"errors"
	"sync"

	"github.com/arguscam/argus/pkg/nn"
	"github.com/bmharper/cimg/v2"
)

var ErrClosed = errors.New("nnsim: engine is closed")

// Engine implements nn.Engine.
type Engine struct {
	mu          sync.Mutex
	closed      bool
	failSubmit  error // if set, every Submit returns this error
	requests    map[nn.RequestKind]int
	sequences   int
	submissions []*Submission
	auto        *autoGenerator // nil in manual mode
	autoBusy    sync.WaitGroup // in-flight auto-mode completion goroutines
}

// NewEngine creates a manual engine: submissions accumulate until the test
// completes them via Submission.Complete or Submission.Fail.
func NewEngine() *Engine {
	return &Engine{
		requests: map[nn.RequestKind]int{},
	}
}

// NewAutoEngine creates an engine that completes every submission by itself
// with generated detections. Used by the demo binary.
func NewAutoEngine(seed int64) *Engine {
	e := NewEngine()
	e.auto = newAutoGenerator(seed)
	return e
}

// FailSubmissions makes every subsequent Submit call return err.
// Pass nil to restore normal behavior.
func (e *Engine) FailSubmissions(err error) {
	e.mu.Lock()
	e.failSubmit = err
	e.mu.Unlock()
}

func (e *Engine) NewRequest(kind nn.RequestKind) (nn.EngineRequest, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	e.requests[kind]++
	return &Request{kind: kind}, nil
}

func (e *Engine) NewSequence() (nn.Sequence, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	e.sequences++
	return &Sequence{eng: e}, nil
}

func (e *Engine) Submit(batch []nn.EngineRequest, img *cimg.Image) error {
	return e.submit(batch, img, nil)
}

// Close honors the nn.Engine contract: once it returns, no further
// completions are delivered, so it must wait out any auto-mode goroutines
// still delivering.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.autoBusy.Wait()
}

func (e *Engine) submit(batch []nn.EngineRequest, img *cimg.Image, seq *Sequence) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.failSubmit != nil {
		err := e.failSubmit
		e.mu.Unlock()
		return err
	}
	sub := &Submission{
		Batch: append([]nn.EngineRequest{}, batch...),
		Image: img,
		Seq:   seq,
	}
	e.submissions = append(e.submissions, sub)
	if e.auto != nil {
		// Add while still holding the lock, so that a concurrent Close
		// cannot pass autoBusy.Wait before this completion is counted
		e.autoBusy.Add(1)
	}
	e.mu.Unlock()

	if e.auto != nil {
		go func() {
			defer e.autoBusy.Done()
			e.mu.Lock()
			closed := e.closed
			e.mu.Unlock()
			if !closed {
				e.auto.complete(sub)
			}
		}()
	}
	return nil
}

// RequestsCreated returns how many engine requests of the given kind have
// ever been created.
func (e *Engine) RequestsCreated(kind nn.RequestKind) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requests[kind]
}

// SequencesCreated returns how many sequence contexts have ever been created.
func (e *Engine) SequencesCreated() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sequences
}

// Submissions returns all submissions accepted so far, oldest first.
func (e *Engine) Submissions() []*Submission {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Submission{}, e.submissions...)
}

// TakeSubmissions returns all accepted submissions and clears the record.
func (e *Engine) TakeSubmissions() []*Submission {
	e.mu.Lock()
	defer e.mu.Unlock()
	subs := e.submissions
	e.submissions = nil
	return subs
}

// Submission is one accepted batch.
type Submission struct {
	Batch []nn.EngineRequest
	Image *cimg.Image
	Seq   *Sequence // nil for single-shot submissions
}

// Find returns the first request in the batch of the given kind, or nil.
func (s *Submission) Find(kind nn.RequestKind) nn.EngineRequest {
	for _, r := range s.Batch {
		if r.Kind() == kind {
			return r
		}
	}
	return nil
}

// Complete delivers results for one request in the batch. Delivery happens
// on the calling goroutine, standing in for an engine worker.
func (s *Submission) Complete(req nn.EngineRequest, results []nn.Observation) {
	req.(*Request).deliver(results, nil)
}

// Fail delivers a failure for one request in the batch.
func (s *Submission) Fail(req nn.EngineRequest, err error) {
	req.(*Request).deliver(nil, err)
}

// Request implements nn.EngineRequest.
type Request struct {
	kind nn.RequestKind

	mu         sync.Mutex
	obs        nn.Observation
	finalFrame bool
	onComplete func(results []nn.Observation, err error)

	walk *walkState // auto mode only
}

func (r *Request) Kind() nn.RequestKind {
	return r.kind
}

func (r *Request) SetObservation(obs nn.Observation) {
	r.mu.Lock()
	if obs.ID != r.obs.ID {
		// New target: discard any auto-mode walk state for the old one
		r.walk = nil
	}
	r.obs = obs
	r.mu.Unlock()
}

// Observation returns the current seed observation (test inspection).
func (r *Request) Observation() nn.Observation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.obs
}

func (r *Request) SetFinalFrame(final bool) {
	r.mu.Lock()
	r.finalFrame = final
	r.mu.Unlock()
}

// FinalFrame returns the current final-frame flag (test inspection).
func (r *Request) FinalFrame() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalFrame
}

func (r *Request) OnComplete(fn func(results []nn.Observation, err error)) {
	r.mu.Lock()
	r.onComplete = fn
	r.mu.Unlock()
}

func (r *Request) deliver(results []nn.Observation, err error) {
	r.mu.Lock()
	fn := r.onComplete
	r.mu.Unlock()
	if fn != nil {
		fn(results, err)
	}
}

// Sequence implements nn.Sequence.
type Sequence struct {
	eng    *Engine
	mu     sync.Mutex
	closed bool
}

func (s *Sequence) Submit(batch []nn.EngineRequest, img *cimg.Image) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("nnsim: submit on closed sequence")
	}
	s.mu.Unlock()
	return s.eng.submit(batch, img, s)
}

func (s *Sequence) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
