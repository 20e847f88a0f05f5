package mapstyle

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func selectionStroke(outer bool) *Stroke {
	if outer {
		return &Stroke{Color: "#fff", Width: 5, Dash: []float64{4, 10}, LineCap: "square"}
	}
	return &Stroke{Color: "#333", Width: 2.5, Dash: []float64{4, 10}, LineCap: "square"}
}

// selectionDirectives outlines the feature extent, grown by buffer on every
// side, with a light wide dash under a dark narrow one.
func selectionDirectives(f *Feature, buffer float64) []Directive {
	b := f.Bound()
	b.Min = orb.Point{b.Min[0] - buffer, b.Min[1] - buffer}
	b.Max = orb.Point{b.Max[0] + buffer, b.Max[1] + buffer}
	rect := orb.Polygon{orb.Ring{
		{b.Min[0], b.Min[1]},
		{b.Min[0], b.Max[1]},
		{b.Max[0], b.Max[1]},
		{b.Max[0], b.Min[1]},
		{b.Min[0], b.Min[1]},
	}}
	return []Directive{
		{Kind: KindSelection, ZIndex: SelectionZIndex, Geometry: geojson.NewGeometry(rect), Stroke: selectionStroke(true)},
		{Kind: KindSelection, ZIndex: SelectionZIndex, Geometry: geojson.NewGeometry(rect), Stroke: selectionStroke(false)},
	}
}
