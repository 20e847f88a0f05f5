package mapstyle

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

const selectionPadding = 10

func (r *Resolver) labelDirectives(d Descriptor, f *Feature) []Directive {
	symbolSize := numberOr(d.PointSize, defaultSymbolSize)
	labelSize := numberOr(d.LabelSize, defaultSymbolSize)
	scale := 1 + labelSize/defaultFontSize
	offsetY := 0.0
	if d.PointType != PointLabel {
		offsetY = 14 + (symbolSize - defaultSymbolSize) + scale*2
	}

	font := make([]string, 0, 4)
	if d.hasLabelStyle("italic") {
		font = append(font, "italic")
	}
	if d.hasLabelStyle("bold") {
		font = append(font, "bold")
	}
	font = append(font, "8px", "Inter, sans-serif")

	color := d.LabelColor
	if color == "" {
		color = defaultLabelColor
	}
	text := &Text{
		Text:     r.replaceSpecialValues(d.Label, f),
		Font:     strings.Join(font, " "),
		Fill:     &Fill{Color: color},
		Rotation: Radians(d.LabelRotation),
		OffsetY:  offsetY,
		Scale:    scale,
	}
	if f.HasGeometry() && isLine(f.Geometry) {
		text.Placement = "line"
	}
	if d.LabelOutlineColor != "" {
		text.Stroke = &Stroke{Color: d.LabelOutlineColor, Width: 2}
	}

	selected := d.IsSelected && d.PointType != ""
	if selected {
		top := float64(selectionPadding)
		if d.PointType != PointLabel {
			top = offsetY + symbolSize + selectionPadding
		}
		text.BackgroundStroke = selectionStroke(false)
		text.Padding = [4]float64{top, selectionPadding, selectionPadding, selectionPadding}
	}
	base := Directive{Kind: KindLabel, ZIndex: d.ZIndex, Text: text}
	if !selected {
		return []Directive{base}
	}
	outer := base.Clone()
	outer.ZIndex = d.ZIndex - 1
	outer.Text.BackgroundStroke = selectionStroke(true)
	return []Directive{base, outer}
}

func (r *Resolver) replaceSpecialValues(label string, f *Feature) string {
	if strings.Contains(label, "[COORDINATES]") {
		coords := ""
		if f.HasGeometry() {
			if p, ok := f.Geometry.(orb.Point); ok {
				coords = strconv.FormatFloat(p[0], 'f', -1, 64) + " " + strconv.FormatFloat(p[1], 'f', -1, 64)
			}
		}
		label = strings.ReplaceAll(label, "[COORDINATES]", coords)
	}
	if strings.Contains(label, "[LENGTH]") || strings.Contains(label, "[AREA]") {
		size := formattedSize(r.printer, f)
		label = strings.NewReplacer("[LENGTH]", size, "[AREA]", size).Replace(label)
	}
	return label
}

func isLine(g orb.Geometry) bool {
	switch g.(type) {
	case orb.LineString, orb.MultiLineString:
		return true
	}
	return false
}
