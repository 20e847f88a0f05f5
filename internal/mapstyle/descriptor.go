// Package mapstyle resolves declarative map styles into ordered draw
// directives.
//
// A style is described by a [Descriptor], either fixed for a whole layer or
// computed per feature by a [StyleFunc]. [Resolve] turns it into a list of
// [Directive] values in a fixed order: base shape, point symbol, arrows,
// label, selection highlight and finally the buffer.
package mapstyle

import (
	"math"

	"github.com/paulmach/orb"
)

// PointType is the symbol drawn at point geometries.
type PointType string

const (
	PointCircle   PointType = "circle"
	PointSquare   PointType = "square"
	PointStar     PointType = "star"
	PointTriangle PointType = "triangle"
	PointDiamond  PointType = "diamond"
	PointCross    PointType = "cross"
	PointArrow    PointType = "arrow"
	PointLabel    PointType = "label"
)

// ArrowType controls arrowheads on line geometries.
type ArrowType string

const (
	ArrowNone  ArrowType = "none"
	ArrowStart ArrowType = "start"
	ArrowEnd   ArrowType = "end"
	ArrowBoth  ArrowType = "both"
	ArrowAlong ArrowType = "along"
)

// Descriptor is a serializable description of how to draw a feature.
// Opacities are 0-100, where 0 means unset (fully opaque).
type Descriptor struct {
	StyleKey string `json:"styleKey,omitempty" yaml:"styleKey,omitempty" doc:"Optional identifier for the style"`
	ZIndex   int    `json:"zIndex" yaml:"zIndex" doc:"Base z-index of generated directives"`

	StrokeColor   string     `json:"strokeColor,omitempty" yaml:"strokeColor,omitempty" doc:"Stroke color (CSS hex)" example:"#cc0000"`
	StrokeOpacity int        `json:"strokeOpacity,omitempty" yaml:"strokeOpacity,omitempty" minimum:"0" maximum:"100"`
	StrokeWidth   float64    `json:"strokeWidth,omitempty" yaml:"strokeWidth,omitempty" minimum:"0"`
	StrokeType    StrokeType `json:"strokeType,omitempty" yaml:"strokeType,omitempty" enum:"solid,dash,dot,dash-dot"`

	FillColor   string `json:"fillColor,omitempty" yaml:"fillColor,omitempty" doc:"Fill color (CSS hex)"`
	FillOpacity int    `json:"fillOpacity,omitempty" yaml:"fillOpacity,omitempty" minimum:"0" maximum:"100"`
	StripedFill bool   `json:"stripedFill,omitempty" yaml:"stripedFill,omitempty" doc:"Fill with a diagonal hatch pattern"`

	PointType        PointType `json:"pointType,omitempty" yaml:"pointType,omitempty" enum:"circle,square,star,triangle,diamond,cross,arrow,label"`
	PointSize        *float64  `json:"pointSize,omitempty" yaml:"pointSize,omitempty"`
	PointRotation    float64   `json:"pointRotation,omitempty" yaml:"pointRotation,omitempty" doc:"Rotation in degrees"`
	PointFillColor   string    `json:"pointFillColor,omitempty" yaml:"pointFillColor,omitempty"`
	PointStrokeColor string    `json:"pointStrokeColor,omitempty" yaml:"pointStrokeColor,omitempty"`
	PointStrokeWidth *float64  `json:"pointStrokeWidth,omitempty" yaml:"pointStrokeWidth,omitempty"`

	Label             string   `json:"label,omitempty" yaml:"label,omitempty" doc:"Label template, may contain [COORDINATES], [LENGTH] or [AREA]"`
	LabelSize         *float64 `json:"labelSize,omitempty" yaml:"labelSize,omitempty"`
	LabelStyle        []string `json:"labelStyle,omitempty" yaml:"labelStyle,omitempty" doc:"Any of bold, italic"`
	LabelColor        string   `json:"labelColor,omitempty" yaml:"labelColor,omitempty"`
	LabelOutlineColor string   `json:"labelOutlineColor,omitempty" yaml:"labelOutlineColor,omitempty"`
	LabelRotation     float64  `json:"labelRotation,omitempty" yaml:"labelRotation,omitempty"`

	Buffer     float64   `json:"buffer,omitempty" yaml:"buffer,omitempty" doc:"Buffer distance in map units"`
	ArrowType  ArrowType `json:"arrowType,omitempty" yaml:"arrowType,omitempty" enum:"none,start,end,both,along"`
	IsSelected bool      `json:"isSelected,omitempty" yaml:"isSelected,omitempty"`
}

func (d Descriptor) hasLabelStyle(s string) bool {
	for _, v := range d.LabelStyle {
		if v == s {
			return true
		}
	}
	return false
}

// Feature is the geometry and attributes a style is resolved against.
// Circle is set instead of Geometry for circles drawn on the map, which
// have no GeoJSON representation.
type Feature struct {
	ID         string
	Geometry   orb.Geometry
	Circle     *Circle
	Properties map[string]any
}

// HasGeometry reports whether the feature carries anything drawable.
func (f *Feature) HasGeometry() bool {
	return f != nil && (f.Geometry != nil || f.Circle != nil)
}

// Bound returns the extent of the feature geometry.
func (f *Feature) Bound() orb.Bound {
	if f.Circle != nil {
		return f.Circle.Bound()
	}
	return f.Geometry.Bound()
}

// Circle is a center and radius in map units.
type Circle struct {
	Center orb.Point `json:"center"`
	Radius float64   `json:"radius"`
}

func (c Circle) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{c.Center[0] - c.Radius, c.Center[1] - c.Radius},
		Max: orb.Point{c.Center[0] + c.Radius, c.Center[1] + c.Radius},
	}
}

// Polygon approximates the circle with n segments.
func (c Circle) Polygon(n int) orb.Polygon {
	ring := make(orb.Ring, 0, n+1)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		ring = append(ring, orb.Point{
			c.Center[0] + c.Radius*math.Cos(a),
			c.Center[1] + c.Radius*math.Sin(a),
		})
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}

// StyleFunc computes a descriptor from feature attributes.
type StyleFunc func(f Feature) Descriptor

// Source is a static descriptor or a per-feature style function.
// The zero value means "no style" and resolves to the default style.
type Source struct {
	static *Descriptor
	fn     StyleFunc
}

// Static wraps a fixed descriptor.
func Static(d Descriptor) Source { return Source{static: &d} }

// FromFunc wraps a per-feature style function.
func FromFunc(fn StyleFunc) Source { return Source{fn: fn} }

// IsZero reports whether no style was supplied.
func (s Source) IsZero() bool { return s.static == nil && s.fn == nil }
