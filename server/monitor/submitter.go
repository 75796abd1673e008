package monitor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arguscam/argus/pkg/gen"
	"github.com/arguscam/argus/pkg/nn"
	"github.com/arguscam/argus/server/camera"
)

// Submitter bundles one or more inference requests for joint submission
// against a single frame. This is the engine's batching unit: all requests
// in a submitter go to the engine as one atomic batch.
type Submitter interface {
	Submit(frame *camera.Frame)
}

// ImageSubmitter submits its requests against single frames, with no
// cross-frame engine state. With target bounds set, it rescales every frame
// to a constant size first (the object detection model's fixed input
// contract); otherwise frames are submitted at their own resolution.
type ImageSubmitter struct {
	mon      *Monitor
	requests []*InferenceRequest // fixed after setup

	// Target bounds for the model input. Zero means identity.
	targetWidth  int
	targetHeight int

	lastErrAt time.Time // submission goroutine only
}

func newImageSubmitter(m *Monitor) *ImageSubmitter {
	return &ImageSubmitter{mon: m}
}

// newFixedImageSubmitter forces a constant input size regardless of the
// frame's aspect ratio. Non-uniform scaling is deliberate: results come back
// in normalized coordinates, so they map onto the original frame unchanged.
func newFixedImageSubmitter(m *Monitor, width, height int) *ImageSubmitter {
	return &ImageSubmitter{
		mon:          m,
		targetWidth:  width,
		targetHeight: height,
	}
}

func (s *ImageSubmitter) add(r *InferenceRequest) {
	r.sub = s
	s.requests = append(s.requests, r)
}

func (s *ImageSubmitter) adjustedBounds(width, height int) (int, int) {
	if s.targetWidth != 0 {
		return s.targetWidth, s.targetHeight
	}
	return width, height
}

func (s *ImageSubmitter) Submit(frame *camera.Frame) {
	if len(s.requests) == 0 {
		return
	}
	img := frame.Image
	nnWidth, nnHeight := s.adjustedBounds(img.Width, img.Height)
	if nnWidth != img.Width || nnHeight != img.Height {
		img = s.mon.prepareImageForNN(img, nnWidth, nnHeight)
		if img == nil {
			// Rescale failed (already logged). This frame is dropped for
			// this submitter; the next frame starts clean.
			return
		}
	}
	batch := make([]nn.EngineRequest, 0, len(s.requests))
	for _, r := range s.requests {
		r.markSubmitted()
		batch = append(batch, r.engineReq)
	}
	if err := s.mon.engine.Submit(batch, img); err != nil {
		s.fail(err)
	}
}

func (s *ImageSubmitter) fail(err error) {
	if time.Now().Sub(s.lastErrAt) > 15*time.Second {
		s.mon.Log.Errorf("Engine submission failed, dropping frame: %v", err)
		s.lastErrAt = time.Now()
	}
}

// SequenceSubmitter submits its requests through a persistent engine
// sequence, which accumulates the cross-frame correlation state that
// tracking depends on. Its request list changes as tracks start and stop.
type SequenceSubmitter struct {
	mon *Monitor

	lock     sync.Mutex
	seq      nn.Sequence
	requests []*InferenceRequest

	resets    atomic.Int64
	lastErrAt time.Time // submission goroutine only
}

func newSequenceSubmitter(m *Monitor) (*SequenceSubmitter, error) {
	seq, err := m.engine.NewSequence()
	if err != nil {
		return nil, err
	}
	return &SequenceSubmitter{
		mon: m,
		seq: seq,
	}, nil
}

func (s *SequenceSubmitter) Submit(frame *camera.Frame) {
	s.lock.Lock()
	seq := s.seq
	batch := make([]nn.EngineRequest, 0, len(s.requests))
	for _, r := range s.requests {
		r.markSubmitted()
		batch = append(batch, r.engineReq)
	}
	s.lock.Unlock()
	if len(batch) == 0 {
		return
	}
	if err := seq.Submit(batch, frame.Image); err != nil {
		s.fail(err)
	}
}

func (s *SequenceSubmitter) attach(r *InferenceRequest) {
	s.lock.Lock()
	r.sub = s
	s.requests = append(s.requests, r)
	s.lock.Unlock()
}

func (s *SequenceSubmitter) detach(r *InferenceRequest) {
	s.lock.Lock()
	s.requests = gen.DeleteFirst(s.requests, r)
	s.lock.Unlock()
}

// Reset replaces the persistent sequence context with a fresh one, giving
// the engine back its accumulated correlation state. Only legal while no
// tracking requests are attached; resetting under an in-flight track would
// corrupt its state.
func (s *SequenceSubmitter) Reset() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.requests) != 0 {
		return fmt.Errorf("sequence reset with %v tracking requests still attached", len(s.requests))
	}
	s.seq.Close()
	seq, err := s.mon.engine.NewSequence()
	if err != nil {
		return err
	}
	s.seq = seq
	s.resets.Add(1)
	return nil
}

func (s *SequenceSubmitter) fail(err error) {
	if time.Now().Sub(s.lastErrAt) > 15*time.Second {
		s.mon.Log.Errorf("Engine sequence submission failed, dropping frame: %v", err)
		s.lastErrAt = time.Now()
	}
}
