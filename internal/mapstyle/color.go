package mapstyle

import (
	"fmt"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGBA parses a CSS hex color. Opacity is 0-100; 0 means fully opaque,
// matching how descriptors leave opacity unset.
func RGBA(color string, opacity int) (r, g, b uint8, a float64, ok bool) {
	c, err := colorful.Hex(normalizeHex(color))
	if err != nil {
		return 0, 0, 0, 0, false
	}
	r, g, b = c.RGB255()
	return r, g, b, alpha(opacity), true
}

// RGBAStyle returns the CSS rgba() form of a hex color at the given opacity.
// Colors that are not hex are returned unchanged.
func RGBAStyle(color string, opacity int) string {
	r, g, b, a, ok := RGBA(color, opacity)
	if !ok {
		return color
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, strconv.FormatFloat(a, 'f', -1, 64))
}

func alpha(opacity int) float64 {
	if opacity <= 0 {
		opacity = 100
	}
	if opacity > 100 {
		opacity = 100
	}
	return float64(opacity) / 100
}

// normalizeHex expands #rgb shorthand, which colorful.Hex also accepts, and
// adds a missing leading '#'.
func normalizeHex(color string) string {
	color = strings.TrimSpace(color)
	if color == "" {
		return color
	}
	if !strings.HasPrefix(color, "#") {
		color = "#" + color
	}
	return strings.ToLower(color)
}
