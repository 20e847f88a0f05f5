package mapstyle

import (
	"bytes"

	"github.com/fogleman/gg"
)

const patternSize = 50

// hatchPattern renders a diagonal hatch tile: a wide stripe at the given
// opacity and a finer stripe on top at 75% of it. It returns nil when the
// color cannot be parsed.
func hatchPattern(color string, opacity int) *Pattern {
	if opacity <= 0 {
		opacity = 100
	}
	r, g, b, a, ok := RGBA(color, opacity)
	if !ok {
		return nil
	}
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255

	dc := gg.NewContext(patternSize, patternSize)
	dc.SetRGBA(rf, gf, bf, a)
	dc.SetLineWidth(20)
	dc.MoveTo(0, 0)
	dc.LineTo(patternSize, patternSize)
	dc.MoveTo(-patternSize, 0)
	dc.LineTo(patternSize, patternSize*2)
	dc.MoveTo(0, -patternSize)
	dc.LineTo(patternSize*2, patternSize)
	dc.Stroke()

	dc.SetRGBA(rf, gf, bf, alpha(opacity)*.75)
	dc.SetLineWidth(15)
	dc.MoveTo(-15, 10)
	dc.LineTo(40, 65)
	dc.MoveTo(10, -15)
	dc.LineTo(65, 40)
	dc.Stroke()

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil
	}
	return &Pattern{Size: patternSize, PNG: buf.Bytes()}
}

func fillFor(color string, opacity int, striped bool) *Fill {
	if color == "" {
		return nil
	}
	if striped {
		if p := hatchPattern(color, opacity); p != nil {
			return &Fill{Pattern: p}
		}
	}
	return &Fill{Color: RGBAStyle(color, opacity)}
}

func strokeFor(d Descriptor, opacity int) *Stroke {
	if d.StrokeColor == "" {
		return nil
	}
	width := d.StrokeWidth
	if width == 0 {
		width = 1
	}
	s := &Stroke{
		Color: RGBAStyle(d.StrokeColor, opacity),
		Width: width,
	}
	if dash := DashArray(d.StrokeType, d.StrokeWidth); len(dash) > 0 {
		s.Dash = dash
		s.LineCap = "square"
		if d.StrokeType == StrokeDot {
			s.LineCap = "round"
		}
	}
	return s
}
