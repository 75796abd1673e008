package nnsim

import (
	"math/rand"
	"sync"

	"github.com/arguscam/argus/pkg/nn"
	"github.com/google/uuid"
)

// autoGenerator invents detections for auto mode. Each request gets its own
// random walk so that boxes move smoothly between frames, which makes the
// overlay demo look like a real camera feed instead of noise.
type autoGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

type walkState struct {
	box    nn.Rect
	vx, vy float32
	life   int // frames until the target is allowed to fade
}

func newAutoGenerator(seed int64) *autoGenerator {
	return &autoGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *autoGenerator) complete(sub *Submission) {
	for _, er := range sub.Batch {
		req := er.(*Request)
		switch req.Kind() {
		case nn.RequestObjectDetect:
			req.deliver(g.objects(req), nil)
		case nn.RequestFaceDetect:
			req.deliver(g.faces(req), nil)
		case nn.RequestFaceLandmarks:
			req.deliver(g.landmarks(req), nil)
		case nn.RequestTrackObject:
			req.deliver(g.track(req), nil)
		}
	}
}

func (g *autoGenerator) float() float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float32()
}

func (g *autoGenerator) walkFor(req *Request, seedBox nn.Rect) walkState {
	g.mu.Lock()
	vx := (g.rng.Float32() - 0.5) * 0.02
	vy := (g.rng.Float32() - 0.5) * 0.02
	life := 30 + g.rng.Intn(60)
	g.mu.Unlock()

	req.mu.Lock()
	defer req.mu.Unlock()
	if req.walk == nil {
		req.walk = &walkState{box: seedBox, vx: vx, vy: vy, life: life}
	}
	w := req.walk
	w.box.Offset(w.vx, w.vy)
	// Bounce off the frame edges
	if w.box.X < 0 || w.box.X2() > 1 {
		w.vx = -w.vx
		w.box.X = min(max(w.box.X, 0), 1-w.box.Width)
	}
	if w.box.Y < 0 || w.box.Y2() > 1 {
		w.vy = -w.vy
		w.box.Y = min(max(w.box.Y, 0), 1-w.box.Height)
	}
	if w.life > 0 {
		w.life--
	}
	return *w
}

func (g *autoGenerator) objects(req *Request) []nn.Observation {
	w := g.walkFor(req, nn.Rect{X: 0.1, Y: 0.5, Width: 0.18, Height: 0.32})
	conf := 0.6 + g.float()*0.35
	return []nn.Observation{{
		ID:         uuid.New(),
		Kind:       nn.RequestObjectDetect,
		Box:        w.box,
		Confidence: conf,
		Label:      "person",
	}}
}

func (g *autoGenerator) faces(req *Request) []nn.Observation {
	w := g.walkFor(req, nn.Rect{X: 0.55, Y: 0.2, Width: 0.12, Height: 0.16})
	conf := 0.7 + g.float()*0.25
	roll := (g.float() - 0.5) * 20
	yaw := (g.float() - 0.5) * 40
	return []nn.Observation{{
		ID:         uuid.New(),
		Kind:       nn.RequestFaceDetect,
		Box:        w.box,
		Confidence: conf,
		Roll:       roll,
		Yaw:        yaw,
		Quality:    0.8,
	}}
}

func (g *autoGenerator) landmarks(req *Request) []nn.Observation {
	w := g.walkFor(req, nn.Rect{X: 0.55, Y: 0.2, Width: 0.12, Height: 0.16})
	b := w.box
	// Five-point layout: eyes, nose, mouth corners
	pts := []nn.Point{
		{X: b.X + 0.3*b.Width, Y: b.Y + 0.35*b.Height},
		{X: b.X + 0.7*b.Width, Y: b.Y + 0.35*b.Height},
		{X: b.X + 0.5*b.Width, Y: b.Y + 0.55*b.Height},
		{X: b.X + 0.35*b.Width, Y: b.Y + 0.75*b.Height},
		{X: b.X + 0.65*b.Width, Y: b.Y + 0.75*b.Height},
	}
	return []nn.Observation{{
		ID:         uuid.New(),
		Kind:       nn.RequestFaceLandmarks,
		Box:        b,
		Confidence: 0.9,
		Landmarks:  pts,
	}}
}

func (g *autoGenerator) track(req *Request) []nn.Observation {
	seed := req.Observation()
	w := g.walkFor(req, seed.Box)
	conf := 0.5 + g.float()*0.45
	if w.life == 0 {
		// Target has wandered off; report a lost track so the pipeline
		// recycles the slot.
		conf = 0.1
	}
	return []nn.Observation{{
		ID:         seed.ID,
		Kind:       nn.RequestTrackObject,
		Box:        w.box,
		Confidence: conf,
	}}
}
