package mapstyle

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// arrowDirectives places arrowheads on line features. Each arrowhead points
// along its segment.
func arrowDirectives(d Descriptor, f *Feature, stroke *Stroke) []Directive {
	if stroke == nil || d.ArrowType == "" || d.ArrowType == ArrowNone || !f.HasGeometry() {
		return nil
	}
	var lines []orb.LineString
	switch g := f.Geometry.(type) {
	case orb.LineString:
		lines = []orb.LineString{g}
	case orb.MultiLineString:
		lines = g
	default:
		return nil
	}

	var segments [][2]orb.Point
	for _, ls := range lines {
		for i := 1; i < len(ls); i++ {
			segments = append(segments, [2]orb.Point{ls[i-1], ls[i]})
		}
	}
	if len(segments) == 0 {
		return nil
	}

	var out []Directive
	if d.ArrowType == ArrowStart || d.ArrowType == ArrowBoth {
		first := segments[0]
		out = append(out, arrow(d.ZIndex, stroke, first[1], first[0], first[0]))
	}
	if d.ArrowType == ArrowAlong {
		for _, s := range segments {
			mid := orb.Point{(s[0][0] + s[1][0]) / 2, (s[0][1] + s[1][1]) / 2}
			out = append(out, arrow(d.ZIndex, stroke, s[0], s[1], mid))
		}
	}
	if d.ArrowType == ArrowEnd || d.ArrowType == ArrowBoth || d.ArrowType == ArrowAlong {
		last := segments[len(segments)-1]
		out = append(out, arrow(d.ZIndex, stroke, last[0], last[1], last[1]))
	}
	return out
}

func arrow(z int, stroke *Stroke, from, to, at orb.Point) Directive {
	angle := math.Atan2(to[1]-from[1], to[0]-from[0])
	return Directive{
		Kind:     KindArrow,
		ZIndex:   z + 1,
		Geometry: geojson.NewGeometry(at),
		Symbol: &Symbol{
			Shape: &RegularShape{
				Points: 3,
				Radius: math.Max(1, stroke.Width) + 5,
				Angle:  math.Pi / 2,
				Fill:   &Fill{Color: stroke.Color},
			},
			Rotation: -angle,
		},
	}
}
