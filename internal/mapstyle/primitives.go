package mapstyle

import "math"

// StrokeType names a dash pattern.
type StrokeType string

const (
	StrokeSolid   StrokeType = "solid"
	StrokeDash    StrokeType = "dash"
	StrokeDot     StrokeType = "dot"
	StrokeDashDot StrokeType = "dash-dot"
)

// DashArray returns the dash pattern for a stroke type scaled by width.
// An empty slice means a solid line.
func DashArray(t StrokeType, width float64) []float64 {
	if width <= 0 {
		width = 1
	}
	switch t {
	case StrokeDash:
		return []float64{4 * width, 4 * width}
	case StrokeDot:
		return []float64{1, 3 * width}
	case StrokeDashDot:
		return []float64{4 * width, 3 * width, 1, 3 * width}
	default:
		return []float64{}
	}
}

// Radians converts a rotation in degrees. Zero stays exactly zero.
func Radians(degrees float64) float64 {
	if degrees == 0 {
		return 0
	}
	return degrees / (180 / math.Pi)
}

func numberOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// Float returns a pointer to v, for optional descriptor fields.
func Float(v float64) *float64 { return &v }
