package mapstyle

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const bufferOpacityDecrease = 20

var defaultDescriptor = Descriptor{
	StyleKey:       "DEFAULT_STYLE",
	ZIndex:         0,
	StrokeColor:    defaultColor,
	PointType:      PointSquare,
	PointFillColor: defaultColor,
}

var defaultDirectives = newResolver(language.English).resolve(defaultDescriptor, nil, 0)

// DefaultDescriptor returns the descriptor used when no style is supplied.
func DefaultDescriptor() Descriptor { return defaultDescriptor }

// DefaultStyle returns the directives of the default style: a red square
// point with a red stroke at z-index 0. The result is a fresh copy.
func DefaultStyle() []Directive {
	out := make([]Directive, len(defaultDirectives))
	for i, d := range defaultDirectives {
		out[i] = d.Clone()
	}
	return out
}

// Resolver resolves styles, formatting measurements for one locale.
type Resolver struct {
	printer *message.Printer
}

func newResolver(tag language.Tag) *Resolver {
	return &Resolver{printer: message.NewPrinter(tag)}
}

// NewResolver creates a resolver that formats [LENGTH] and [AREA] labels
// for the given language.
func NewResolver(tag language.Tag) *Resolver { return newResolver(tag) }

var english = newResolver(language.English)

// Resolve resolves src for feature using English number formatting.
func Resolve(src Source, feature *Feature, resolutionHint float64) []Directive {
	return english.Resolve(src, feature, resolutionHint)
}

// Resolve turns a style source into ordered draw directives. feature may be
// nil, in which case geometry-dependent directives (arrows, selection,
// buffer) are skipped. resolutionHint sizes the selection outline.
func (r *Resolver) Resolve(src Source, feature *Feature, resolutionHint float64) []Directive {
	switch {
	case src.static != nil:
		return r.resolve(*src.static, feature, resolutionHint)
	case src.fn != nil:
		if feature == nil {
			return DefaultStyle()
		}
		return r.resolve(src.fn(*feature), feature, resolutionHint)
	}
	return DefaultStyle()
}

// StyleFor returns a draw-time style callback. The map resolution is turned
// into a 20 pixel selection hint.
func (r *Resolver) StyleFor(src Source) func(feature *Feature, resolution float64) []Directive {
	return func(feature *Feature, resolution float64) []Directive {
		return r.Resolve(src, feature, 20*resolution)
	}
}

// StyleFor is [Resolver.StyleFor] with English number formatting.
func StyleFor(src Source) func(feature *Feature, resolution float64) []Directive {
	return english.StyleFor(src)
}

func (r *Resolver) resolve(d Descriptor, f *Feature, hint float64) []Directive {
	base := Directive{
		Kind:   KindBase,
		ZIndex: d.ZIndex,
		Stroke: strokeFor(d, d.StrokeOpacity),
		Fill:   fillFor(d.FillColor, d.FillOpacity, d.StripedFill),
	}
	out := []Directive{base}
	if d.PointType != "" {
		out = append(out, symbolDirectives(d)...)
	}
	out = append(out, arrowDirectives(d, f, base.Stroke)...)
	if d.Label != "" {
		out = append(out, r.labelDirectives(d, f)...)
	}
	if d.IsSelected && (d.PointType == "" || d.Label == "") && f.HasGeometry() {
		out = append(out, selectionDirectives(f, 1.3*hint)...)
	}
	if d.Buffer > 0 && f.HasGeometry() {
		if b, ok := bufferDirective(d, f); ok {
			out = append(out, b)
		}
	}
	return out
}

// bufferOpacity lowers an opacity for buffer rendering. A result of zero
// keeps the original opacity.
func bufferOpacity(opacity int) int {
	o := opacity
	if o <= 0 {
		o = 100
	}
	o -= bufferOpacityDecrease
	if o <= 0 {
		return opacity
	}
	return o
}
