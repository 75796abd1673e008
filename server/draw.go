package server

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/arguscam/argus/pkg/nn"
	"github.com/arguscam/argus/server/monitor"
	"github.com/bmharper/cimg/v2"
	"github.com/fogleman/gg"
)

// RenderOverlay draws the published overlay state onto a copy of the frame
// and returns it as JPEG. state may be nil (plain frame).
func RenderOverlay(frame *cimg.Image, state *monitor.RenderState) ([]byte, error) {
	rgba := rgbToRGBA(frame)
	if state != nil {
		dc := gg.NewContextForRGBA(rgba)
		dc.SetLineWidth(2)

		for _, obj := range state.Objects {
			drawBox(dc, frame, obj.Box, 0.2, 0.9, 0.3)
			if obj.Label != "" {
				drawLabel(dc, frame, obj.Box, fmt.Sprintf("%v %.0f%%", obj.Label, obj.Confidence*100))
			}
		}
		for _, face := range state.Faces {
			drawBox(dc, frame, face.Box, 0.3, 0.5, 1.0)
		}
		for _, lm := range state.Landmarks {
			dc.SetRGB(1.0, 0.9, 0.2)
			for _, pt := range lm.Landmarks {
				dc.DrawCircle(float64(pt.X)*float64(frame.Width), float64(pt.Y)*float64(frame.Height), 2.5)
				dc.Fill()
			}
		}
		for _, tr := range state.Tracked {
			drawBox(dc, frame, tr.Box, 1.0, 0.3, 0.3)
			drawLabel(dc, frame, tr.Box, shortID(tr))
			if len(tr.Trail) >= 2 {
				dc.SetRGBA(1.0, 0.3, 0.3, 0.7)
				dc.MoveTo(float64(tr.Trail[0].X)*float64(frame.Width), float64(tr.Trail[0].Y)*float64(frame.Height))
				for _, pt := range tr.Trail[1:] {
					dc.LineTo(float64(pt.X)*float64(frame.Width), float64(pt.Y)*float64(frame.Height))
				}
				dc.Stroke()
			}
		}
	}

	buf := &bytes.Buffer{}
	if err := jpeg.Encode(buf, rgba, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawBox(dc *gg.Context, frame *cimg.Image, box nn.Rect, r, g, b float64) {
	dc.SetRGB(r, g, b)
	dc.DrawRectangle(
		float64(box.X)*float64(frame.Width),
		float64(box.Y)*float64(frame.Height),
		float64(box.Width)*float64(frame.Width),
		float64(box.Height)*float64(frame.Height))
	dc.Stroke()
}

func drawLabel(dc *gg.Context, frame *cimg.Image, box nn.Rect, text string) {
	x := float64(box.X) * float64(frame.Width)
	y := float64(box.Y)*float64(frame.Height) - 4
	if y < 12 {
		y = float64(box.Y2())*float64(frame.Height) + 14
	}
	dc.SetRGB(1, 1, 1)
	dc.DrawString(text, x, y)
}

func shortID(tr monitor.TrackedObject) string {
	id := tr.ID.String()[:8]
	if tr.Label != "" {
		return fmt.Sprintf("%v %v", tr.Label, id)
	}
	return id
}

// rgbToRGBA expands our 3-channel camera pixels into the RGBA layout that
// gg and image/jpeg consume.
func rgbToRGBA(src *cimg.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, src.Width, src.Height))
	for y := 0; y < src.Height; y++ {
		s := src.Pixels[y*src.Stride : y*src.Stride+src.Width*3]
		d := dst.Pix[y*dst.Stride : y*dst.Stride+src.Width*4]
		for x := 0; x < src.Width; x++ {
			d[x*4] = s[x*3]
			d[x*4+1] = s[x*3+1]
			d[x*4+2] = s[x*3+2]
			d[x*4+3] = 255
		}
	}
	return dst
}
