// Package nn is the vision inference interface layer.
// The inference engine itself is a black box behind the Engine interface;
// this package defines the request kinds, the Observation result type, and
// the submit/completion contract that the pipeline is built on.
package nn

import (
	"github.com/bmharper/cimg/v2"
	"github.com/google/uuid"
)

// RequestKind names one vision task. The set is closed: a single engine
// request is configured for exactly one of these, and result handling
// switches exhaustively over them.
type RequestKind int

const (
	RequestObjectDetect  RequestKind = iota // Generic object detection (fixed-size model input)
	RequestFaceDetect                       // Face detection with pose/quality metadata
	RequestFaceLandmarks                    // Face landmark point-sets
	RequestTrackObject                      // Track one object across consecutive frames
)

func (k RequestKind) String() string {
	switch k {
	case RequestObjectDetect:
		return "object-detect"
	case RequestFaceDetect:
		return "face-detect"
	case RequestFaceLandmarks:
		return "face-landmarks"
	case RequestTrackObject:
		return "track-object"
	}
	return "unknown"
}

// Observation is a single inference output: a detected object, face,
// landmark set, or tracked object. The box is normalized to 0..1 relative
// to the submitted frame. Identity is assigned by the engine for fresh
// detections, and preserved by the tracker across frames for tracks.
type Observation struct {
	ID         uuid.UUID   `json:"id"`
	Kind       RequestKind `json:"kind"`
	Box        Rect        `json:"box"`
	Confidence float32     `json:"confidence"`

	// Object detections
	Label string `json:"label,omitempty"`

	// Face detections
	Roll    float32 `json:"roll,omitempty"`
	Yaw     float32 `json:"yaw,omitempty"`
	Pitch   float32 `json:"pitch,omitempty"`
	Quality float32 `json:"quality,omitempty"`

	// Face landmarks
	Landmarks []Point `json:"landmarks,omitempty"`
}

// Clone returns a deep copy (the Landmarks slice is the only reference field).
func (o Observation) Clone() Observation {
	c := o
	if o.Landmarks != nil {
		c.Landmarks = make([]Point, len(o.Landmarks))
		copy(c.Landmarks, o.Landmarks)
	}
	return c
}

// CloneObservations deep-copies a result list, so that consumers never hold
// references into live pipeline state.
func CloneObservations(src []Observation) []Observation {
	if src == nil {
		return nil
	}
	dst := make([]Observation, len(src))
	for i := range src {
		dst[i] = src[i].Clone()
	}
	return dst
}

// EngineRequest is an opaque handle to one engine-side inference request.
// A handle is created once and reused across many submissions; only the seed
// observation and the final-frame flag are mutable.
type EngineRequest interface {
	// Kind returns the task this handle was configured for.
	Kind() RequestKind

	// SetObservation replaces the seed observation. Only meaningful for
	// RequestTrackObject, where it tells the engine which object to pursue.
	SetObservation(obs Observation)

	// SetFinalFrame tells the engine to stop pursuing this request's target
	// after the next pass, releasing its per-target correlation state.
	SetFinalFrame(final bool)

	// OnComplete registers the single completion handler. The engine invokes
	// it exactly once per submission, from an engine worker goroutine, with
	// either a result list or an error. Handlers must not mutate shared
	// state directly; they are expected to marshal onto a processing queue.
	OnComplete(fn func(results []Observation, err error))
}

// Sequence is a persistent engine context that accumulates cross-frame
// correlation state (eg correlation filters for tracking). It must be closed
// to reclaim engine resources, and closing is only safe once no tracking
// requests reference it.
type Sequence interface {
	// Submit runs every request in batch against img, through this
	// sequence's accumulated state. Asynchronous: completions are delivered
	// later via each request's handler.
	Submit(batch []EngineRequest, img *cimg.Image) error
	Close() error
}

// Engine is the black-box inference engine.
// Submissions are asynchronous: Submit returns once the batch is accepted,
// and each request in the batch eventually invokes its completion handler on
// an engine worker goroutine. After Close returns, no further completions
// are delivered.
type Engine interface {
	NewRequest(kind RequestKind) (EngineRequest, error)
	NewSequence() (Sequence, error)

	// Submit runs a single-shot batch (no cross-frame state) against img.
	Submit(batch []EngineRequest, img *cimg.Image) error

	Close()
}
