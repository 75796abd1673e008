package monitor

import (
	"time"

	"github.com/arguscam/argus/pkg/perfstats"
	"github.com/bmharper/cimg/v2"
)

// prepareImageForNN rescales a frame to the submitter's model input bounds.
// Scaling may be non-uniform: the fixed-input object detection model takes
// 640x640 no matter what shape the camera delivers, and since all result
// boxes are normalized 0..1, they map back onto the original frame without
// any inverse transform.
// Returns nil if the rescale failed (logged; the frame is dropped).
func (m *Monitor) prepareImageForNN(img *cimg.Image, nnWidth, nnHeight int) (out *cimg.Image) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			m.Log.Errorf("Failed to rescale %vx%v frame to %vx%v: %v", img.Width, img.Height, nnWidth, nnHeight, r)
			out = nil
		}
	}()
	params := cimg.ResizeParams{CheapSRGBFilter: true}
	if nnWidth < img.Width || nnHeight < img.Height {
		// Box filter for downsampling, in case we have a massive ratio
		params.Filter = cimg.ResizeFilterBox
	} else {
		// Triangle is bilinear on upsampling
		params.Filter = cimg.ResizeFilterTriangle
	}
	out = cimg.ResizeNew(img, nnWidth, nnHeight, &params)
	perfstats.UpdateMovingAverage(&m.avgTimeNSPerFramePrep, time.Now().Sub(start).Nanoseconds())
	return out
}
