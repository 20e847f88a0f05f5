package mapstyle

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// formattedSize returns the length of line features or the area of polygon
// features in map units, formatted for the resolver's locale.
func formattedSize(p *message.Printer, f *Feature) string {
	if !f.HasGeometry() {
		return ""
	}
	if f.Circle != nil {
		return formatArea(p, math.Pi*f.Circle.Radius*f.Circle.Radius)
	}
	switch g := f.Geometry.(type) {
	case orb.LineString, orb.MultiLineString:
		return formatLength(p, planar.Length(g))
	case orb.Ring, orb.Polygon, orb.MultiPolygon:
		return formatArea(p, math.Abs(planar.Area(g)))
	}
	return ""
}

func formatLength(p *message.Printer, meters float64) string {
	if meters >= 1000 {
		return p.Sprintf("%v km", number.Decimal(meters/1000, number.MaxFractionDigits(2)))
	}
	return p.Sprintf("%v m", number.Decimal(meters, number.MaxFractionDigits(2)))
}

func formatArea(p *message.Printer, sqm float64) string {
	if sqm >= 1_000_000 {
		return p.Sprintf("%v km²", number.Decimal(sqm/1_000_000, number.MaxFractionDigits(2)))
	}
	return p.Sprintf("%v m²", number.Decimal(sqm, number.MaxFractionDigits(2)))
}
