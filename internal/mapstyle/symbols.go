package mapstyle

import (
	"encoding/base64"
	"fmt"
	"math"
)

const (
	defaultColor      = "#cc0000"
	defaultSymbolSize = 5.0
	defaultFontSize   = 12.0
	defaultLabelColor = "#000000"
)

var iconPaths = map[PointType]string{
	PointArrow:   "M0 6.75v-3.5h5.297V0L10 5l-4.703 5V6.75H0Z",
	PointDiamond: "m5 0 3.5 4.997L5 10 1.5 4.997 5 0Z",
	PointCross:   "M7.026 3V.015h-4V3H.005v4h3.021v3.006h4V7h2.969V3H7.026Z",
}

func regularShape(t PointType, size float64) (RegularShape, bool) {
	switch t {
	case PointCircle:
		return RegularShape{Points: 0, Radius: size}, true
	case PointStar:
		return RegularShape{Points: 5, Radius: size, Radius2: size * .4}, true
	case PointSquare:
		return RegularShape{Points: 4, Radius: size, Angle: math.Pi / 4}, true
	case PointTriangle:
		return RegularShape{Points: 3, Radius: size}, true
	}
	return RegularShape{}, false
}

// symbolDirectives builds the marker for a point type. Diamond, cross and
// arrow are drawn as SVG icons, the other shapes parametrically.
func symbolDirectives(d Descriptor) []Directive {
	if d.PointType == PointLabel {
		return nil
	}
	size := numberOr(d.PointSize, defaultSymbolSize)
	fillColor := d.PointFillColor
	if fillColor == "" {
		fillColor = defaultColor
	}
	strokeColor := d.PointStrokeColor
	if strokeColor == "" {
		strokeColor = defaultColor
	}
	strokeWidth := numberOr(d.PointStrokeWidth, 1)
	rotation := Radians(d.PointRotation)

	if path, ok := iconPaths[d.PointType]; ok {
		svgStrokeWidth := 1 + strokeWidth/10
		svg := fmt.Sprintf(`<svg width="10" height="10" viewBox="0 0 10 10" xmlns="http://www.w3.org/2000/svg">`+
			`<path d="%s" fill="%s" stroke="%s" stroke-width="%g" /></svg>`, path, fillColor, strokeColor, svgStrokeWidth)
		return []Directive{{
			Kind:   KindSymbol,
			ZIndex: d.ZIndex,
			Symbol: &Symbol{
				Icon: &Icon{
					Src:   "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg)),
					Scale: (size + svgStrokeWidth) / 6,
				},
				Rotation: rotation,
			},
		}}
	}

	shape, ok := regularShape(d.PointType, size)
	if !ok {
		return nil
	}
	shape.Fill = &Fill{Color: fillColor}
	if strokeWidth != 0 {
		shape.Stroke = &Stroke{Color: strokeColor, Width: strokeWidth}
	}
	return []Directive{{
		Kind:   KindSymbol,
		ZIndex: d.ZIndex,
		Symbol: &Symbol{Shape: &shape, Rotation: rotation},
	}}
}
