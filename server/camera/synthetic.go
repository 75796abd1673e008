package camera

import (
	"sync/atomic"
	"time"

	"github.com/bmharper/cimg/v2"
)

// SyntheticSource generates frames internally: a gradient background with a
// block drifting across it. Used by the demo binary and benchmarks, where a
// physical camera is not available.
type SyntheticSource struct {
	Width  int
	Height int
	FPS    int

	nextID   int64
	mustStop atomic.Bool
	stopped  chan bool
}

func NewSyntheticSource(width, height, fps int) *SyntheticSource {
	return &SyntheticSource{
		Width:  width,
		Height: height,
		FPS:    fps,
	}
}

func (s *SyntheticSource) Start(deliver func(*Frame)) error {
	s.stopped = make(chan bool)
	go s.generate(deliver)
	return nil
}

func (s *SyntheticSource) Stop() {
	s.mustStop.Store(true)
	<-s.stopped
}

func (s *SyntheticSource) generate(deliver func(*Frame)) {
	tick := time.NewTicker(time.Second / time.Duration(s.FPS))
	defer tick.Stop()
	for phase := 0; !s.mustStop.Load(); phase++ {
		<-tick.C
		s.nextID++
		deliver(&Frame{
			Image: s.renderFrame(phase),
			ID:    s.nextID,
			PTS:   time.Now(),
		})
	}
	close(s.stopped)
}

func (s *SyntheticSource) renderFrame(phase int) *cimg.Image {
	img := cimg.NewImage(s.Width, s.Height, cimg.PixelFormatRGB)
	for y := 0; y < s.Height; y++ {
		row := img.Pixels[y*img.Stride : y*img.Stride+s.Width*3]
		shade := byte(40 + 100*y/s.Height)
		for x := 0; x < s.Width; x++ {
			row[x*3] = shade
			row[x*3+1] = shade
			row[x*3+2] = byte(60 + 80*x/s.Width)
		}
	}
	// Drifting block, wrapping at the right edge
	blockW, blockH := s.Width/8, s.Height/8
	bx := (phase * 3) % (s.Width - blockW)
	by := s.Height/2 - blockH/2
	for y := by; y < by+blockH; y++ {
		row := img.Pixels[y*img.Stride:]
		for x := bx; x < bx+blockW; x++ {
			row[x*3] = 220
			row[x*3+1] = 220
			row[x*3+2] = 80
		}
	}
	return img
}
