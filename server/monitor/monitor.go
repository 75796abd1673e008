// Package monitor runs the per-frame vision inference pipeline.
// Each camera frame is fanned out to object detection, face detection, face
// landmark, and object tracking requests on a black-box inference engine.
// Completions arrive asynchronously on engine worker goroutines, are
// serialized onto a single results goroutine, merged into one coherent
// state, and published as full-copy snapshots to the rendering layer.
package monitor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/arguscam/argus/pkg/nn"
	"github.com/arguscam/argus/server/camera"
	"github.com/cyclopcam/logs"
)

const (
	// The object detection model has a fixed input contract, regardless of
	// the camera's resolution or aspect ratio.
	nnFixedWidth  = 640
	nnFixedHeight = 640

	// Hard cap on simultaneously active tracks. The engine supports a
	// bounded number of concurrent tracking contexts, so we refuse new
	// tracks past the cap rather than evict existing ones.
	maxActiveTracks = 10

	// A track stays active only while its reported confidence is strictly
	// above this. A result at exactly the threshold recycles the track.
	minTrackConfidence = 0.3

	// SYNC-RESULT-QUEUE-SIZE
	resultQueueSize = 256

	// Ring buffer of recent positions kept per track (must be a power of 2)
	trackHistorySize = 32
)

// Monitor owns the whole pipeline: submitters, requests, the tracker pool,
// and the results goroutine. One Monitor serves one camera.
type Monitor struct {
	Log    logs.Log
	engine nn.Engine

	objectSub   *ImageSubmitter
	faceSub     *ImageSubmitter
	landmarkSub *ImageSubmitter
	trackSub    *SequenceSubmitter

	objectReq   *InferenceRequest
	faceReq     *InferenceRequest
	landmarkReq *InferenceRequest

	tracker *trackerPool

	// resultQueue carries every engine completion onto the results
	// goroutine, which is the only goroutine that mutates pipeline state.
	resultQueue   chan resultMsg
	resultStopped chan bool

	// Merged detection state. Owned by the results goroutine.
	objects         []nn.Observation
	faces           []nn.Observation
	landmarks       []nn.Observation
	lastResultErrAt time.Time

	// Most recent decoded frame. Written by OnFrame, read by the results
	// goroutine for the deferred landmark re-submission, and by the
	// rendering layer for display.
	frameLock sync.Mutex
	lastFrame *camera.Frame

	latestLock sync.Mutex
	latest     *RenderState

	watchersLock sync.RWMutex
	watchers     []chan *RenderState

	closed atomic.Bool

	framesIn                 atomic.Int64
	avgTimeNSPerFramePrep    atomic.Int64
	avgTimeNSPerFramePublish atomic.Int64
	lastStatsAt              time.Time // OnFrame goroutine only
}

// NewMonitor wires one submitter+request pair per detection kind, plus the
// tracking sequence, and starts the results goroutine.
func NewMonitor(logger logs.Log, engine nn.Engine) (*Monitor, error) {
	m := &Monitor{
		Log:           logger,
		engine:        engine,
		resultQueue:   make(chan resultMsg, resultQueueSize),
		resultStopped: make(chan bool),
		lastStatsAt:   time.Now(),
	}
	if err := m.setupPipeline(); err != nil {
		return nil, err
	}
	go m.resultLoop()
	return m, nil
}

// Close shuts the pipeline down. The engine is closed first, which
// guarantees no further completions, then the results goroutine is drained
// and stopped. Watcher channels are not closed; callers remove themselves.
func (m *Monitor) Close() {
	m.Log.Infof("Monitor shutting down")
	m.closed.Store(true)
	m.engine.Close()
	close(m.resultQueue)
	<-m.resultStopped
	m.Log.Infof("Monitor is closed")
}

// OnFrame is the pipeline ingress. The frame source calls it sequentially,
// one frame at a time, in order, from its delivery goroutine. Object
// detection, face detection and tracking are submitted against every frame,
// in that order; landmark detection is re-triggered from the face callback.
func (m *Monitor) OnFrame(frame *camera.Frame) {
	if m.closed.Load() {
		return
	}
	if frame.ID == 0 {
		frame.ID = m.framesIn.Add(1)
	} else {
		m.framesIn.Add(1)
	}

	// Cache the frame before submitting: the face callback needs it for the
	// deferred landmark pass, and the rendering layer for display.
	m.frameLock.Lock()
	m.lastFrame = frame
	m.frameLock.Unlock()

	m.objectSub.Submit(frame)
	m.faceSub.Submit(frame)
	m.trackSub.Submit(frame)

	if n := m.framesIn.Load(); n%300 == 0 && time.Now().Sub(m.lastStatsAt) > 10*time.Second {
		m.lastStatsAt = time.Now()
		m.Log.Infof("%v frames. Times per frame: %.1f ms prep, %.2f ms publish",
			n,
			float64(m.avgTimeNSPerFramePrep.Load())/1e6,
			float64(m.avgTimeNSPerFramePublish.Load())/1e6)
	}
}

// LatestFrame returns the most recent decoded frame, for the rendering layer.
func (m *Monitor) LatestFrame() *camera.Frame {
	m.frameLock.Lock()
	defer m.frameLock.Unlock()
	return m.lastFrame
}

// A completion marshalled from an engine worker onto the results goroutine
type resultMsg struct {
	req     *InferenceRequest
	gen     uint64 // generation stamped at submission time
	results []nn.Observation
	err     error
	barrier chan struct{} // non-nil only for Flush barriers
}

// resultLoop is the results goroutine: the single consumer of engine
// completions, and the sole mutator of tracker and orchestrator state.
func (m *Monitor) resultLoop() {
	for msg := range m.resultQueue {
		if msg.barrier != nil {
			close(msg.barrier)
			continue
		}
		// A stale generation means the request was disabled or recycled
		// after this completion's submission; drop the late result.
		if msg.gen != msg.req.gen.Load() {
			continue
		}
		cb := msg.req.onResults
		if cb == nil {
			continue
		}
		cb(msg.results, msg.err)
	}
	close(m.resultStopped)
}

func (m *Monitor) failResult(what string, err error) {
	if time.Now().Sub(m.lastResultErrAt) > 15*time.Second {
		m.Log.Errorf("Error from %v: %v", what, err)
		m.lastResultErrAt = time.Now()
	}
}
