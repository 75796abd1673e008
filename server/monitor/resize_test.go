package monitor

import (
	"testing"
	"time"

	"github.com/arguscam/argus/pkg/nn"
	"github.com/bmharper/cimg/v2"
	"github.com/stretchr/testify/require"
)

func TestPrepareImageForNN(t *testing.T) {
	m, _ := newTestMonitor(t)

	// Downscale, upscale, and mixed (wide frame into a square input)
	cases := []struct {
		srcW, srcH int
		dstW, dstH int
	}{
		{1920, 1080, 640, 640},
		{320, 240, 640, 640},
		{640, 360, 640, 640},
	}
	for _, c := range cases {
		src := cimg.NewImage(c.srcW, c.srcH, cimg.PixelFormatRGB)
		out := m.prepareImageForNN(src, c.dstW, c.dstH)
		require.NotNil(t, out)
		require.Equal(t, c.dstW, out.Width)
		require.Equal(t, c.dstH, out.Height)
	}
}

func TestIdentitySubmitterSkipsRescale(t *testing.T) {
	m, eng := newTestMonitor(t)

	m.InjectTestFrame(640, 640, time.Now())
	subs := eng.TakeSubmissions()
	// At exactly the model's input size, both submitters pass the frame
	// through untouched, and share the same image.
	objSub := findSubmission(t, subs, nn.RequestObjectDetect)
	faceSub := findSubmission(t, subs, nn.RequestFaceDetect)
	require.Same(t, objSub.Image, faceSub.Image)
}
