package mapstyle

import (
	"math"

	"github.com/paulmach/orb/geojson"
)

// DirectiveKind tags what a directive draws.
type DirectiveKind string

const (
	KindBase      DirectiveKind = "base"
	KindSymbol    DirectiveKind = "symbol"
	KindArrow     DirectiveKind = "arrow"
	KindLabel     DirectiveKind = "label"
	KindSelection DirectiveKind = "selection"
	KindBuffer    DirectiveKind = "buffer"
)

// SelectionZIndex keeps selection outlines above everything else.
const SelectionZIndex = math.MaxInt32

// Directive is one primitive drawing instruction. Geometry, when set,
// replaces the feature geometry for this directive only.
type Directive struct {
	Kind     DirectiveKind     `json:"kind"`
	ZIndex   int               `json:"zIndex"`
	Geometry *geojson.Geometry `json:"geometry,omitempty"`
	Stroke   *Stroke           `json:"stroke,omitempty"`
	Fill     *Fill             `json:"fill,omitempty"`
	Symbol   *Symbol           `json:"symbol,omitempty"`
	Text     *Text             `json:"text,omitempty"`
}

// Stroke is a line style. Color is a CSS color string.
type Stroke struct {
	Color   string    `json:"color"`
	Width   float64   `json:"width"`
	Dash    []float64 `json:"dash,omitempty"`
	LineCap string    `json:"lineCap,omitempty"`
}

// Fill is a solid color or a repeating raster pattern.
type Fill struct {
	Color   string   `json:"color,omitempty"`
	Pattern *Pattern `json:"pattern,omitempty"`
}

// Pattern is a square PNG tile repeated over the fill area.
type Pattern struct {
	Size int    `json:"size"`
	PNG  []byte `json:"png"`
}

// Symbol is a point marker: either a regular shape or an inline icon.
type Symbol struct {
	Shape    *RegularShape `json:"shape,omitempty"`
	Icon     *Icon         `json:"icon,omitempty"`
	Rotation float64       `json:"rotation"`
}

// RegularShape is a parametric polygon. Points == 0 draws a circle;
// Radius2 > 0 makes a star.
type RegularShape struct {
	Points  int     `json:"points"`
	Radius  float64 `json:"radius"`
	Radius2 float64 `json:"radius2,omitempty"`
	Angle   float64 `json:"angle"`
	Fill    *Fill   `json:"fill,omitempty"`
	Stroke  *Stroke `json:"stroke,omitempty"`
}

// Icon is an image marker referenced by URL, typically an SVG data URI.
type Icon struct {
	Src   string  `json:"src"`
	Scale float64 `json:"scale"`
}

// Text is a label.
type Text struct {
	Text             string     `json:"text"`
	Font             string     `json:"font"`
	Placement        string     `json:"placement,omitempty"`
	Fill             *Fill      `json:"fill,omitempty"`
	Stroke           *Stroke    `json:"stroke,omitempty"`
	Rotation         float64    `json:"rotation"`
	OffsetY          float64    `json:"offsetY"`
	Scale            float64    `json:"scale"`
	BackgroundStroke *Stroke    `json:"backgroundStroke,omitempty"`
	Padding          [4]float64 `json:"padding"`
}

// Clone returns a deep copy of the directive.
func (d Directive) Clone() Directive {
	out := d
	if d.Geometry != nil {
		g := *d.Geometry
		out.Geometry = &g
	}
	out.Stroke = d.Stroke.clone()
	out.Fill = d.Fill.clone()
	if d.Symbol != nil {
		s := *d.Symbol
		if s.Shape != nil {
			sh := *s.Shape
			sh.Fill = sh.Fill.clone()
			sh.Stroke = sh.Stroke.clone()
			s.Shape = &sh
		}
		if s.Icon != nil {
			ic := *s.Icon
			s.Icon = &ic
		}
		out.Symbol = &s
	}
	if d.Text != nil {
		t := *d.Text
		t.Fill = t.Fill.clone()
		t.Stroke = t.Stroke.clone()
		t.BackgroundStroke = t.BackgroundStroke.clone()
		out.Text = &t
	}
	return out
}

func (s *Stroke) clone() *Stroke {
	if s == nil {
		return nil
	}
	c := *s
	c.Dash = append([]float64(nil), s.Dash...)
	return &c
}

func (f *Fill) clone() *Fill {
	if f == nil {
		return nil
	}
	c := *f
	if f.Pattern != nil {
		p := *f.Pattern
		p.PNG = append([]byte(nil), f.Pattern.PNG...)
		c.Pattern = &p
	}
	return &c
}
