package mapstyle

import (
	"errors"
	"math"

	"github.com/akavel/polyclip-go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

const (
	// quadrantSegments is the number of segments used for a quarter circle
	// in joins and caps.
	quadrantSegments = 8
	circleSegments   = 50
)

var errInvalidGeometry = errors.New("invalid geometry")

func bufferDirective(d Descriptor, f *Feature) (Directive, bool) {
	var src orb.Geometry = f.Geometry
	if f.Circle != nil {
		src = f.Circle.Polygon(circleSegments)
	}
	g, err := Buffer(src, d.Buffer)
	if err != nil {
		return Directive{}, false
	}
	return Directive{
		Kind:     KindBuffer,
		ZIndex:   d.ZIndex - 1,
		Geometry: geojson.NewGeometry(g),
		Stroke:   strokeFor(d, bufferOpacity(d.StrokeOpacity)),
		Fill:     fillFor(d.FillColor, bufferOpacity(d.FillOpacity), d.StripedFill),
	}, true
}

// Buffer grows g by dist in every direction with round joins and caps.
// The result is the union of the input area with a rectangle around every
// edge and a disc around every vertex, so concave input yields a simple
// polygon. Polygon holes shrink and vanish once they close. The result is
// a Polygon or MultiPolygon. Empty, non-finite or degenerate input returns
// an error.
func Buffer(g orb.Geometry, dist float64) (orb.Geometry, error) {
	if g == nil || dist <= 0 || math.IsNaN(dist) || math.IsInf(dist, 0) {
		return nil, errInvalidGeometry
	}
	region, err := bufferRegion(g, dist)
	if err != nil {
		return nil, err
	}
	polys := fromClip(region)
	switch len(polys) {
	case 0:
		return nil, errInvalidGeometry
	case 1:
		return polys[0], nil
	}
	return orb.MultiPolygon(polys), nil
}

func bufferRegion(g orb.Geometry, dist float64) (polyclip.Polygon, error) {
	switch g := g.(type) {
	case orb.Point:
		if !finite(g) {
			return nil, errInvalidGeometry
		}
		return polyclip.Polygon{disc(g, dist)}, nil
	case orb.MultiPoint:
		return unionParts(len(g), func(i int) (polyclip.Polygon, error) { return bufferRegion(g[i], dist) })
	case orb.LineString:
		pts, err := clean(g)
		if err != nil {
			return nil, err
		}
		return union(edgePieces(dropCollinear(pts), dist)), nil
	case orb.MultiLineString:
		return unionParts(len(g), func(i int) (polyclip.Polygon, error) { return bufferRegion(g[i], dist) })
	case orb.Ring:
		return bufferRegion(orb.Polygon{g}, dist)
	case orb.Bound:
		return bufferRegion(g.ToPolygon(), dist)
	case orb.Polygon:
		return bufferPolygon(g, dist)
	case orb.MultiPolygon:
		return unionParts(len(g), func(i int) (polyclip.Polygon, error) { return bufferRegion(g[i], dist) })
	case orb.Collection:
		return unionParts(len(g), func(i int) (polyclip.Polygon, error) { return bufferRegion(g[i], dist) })
	}
	return nil, errInvalidGeometry
}

func unionParts(n int, fn func(i int) (polyclip.Polygon, error)) (polyclip.Polygon, error) {
	if n == 0 {
		return nil, errInvalidGeometry
	}
	parts := make([]polyclip.Polygon, 0, n)
	for i := 0; i < n; i++ {
		p, err := fn(i)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return union(parts), nil
}

func bufferPolygon(p orb.Polygon, dist float64) (polyclip.Polygon, error) {
	if len(p) == 0 {
		return nil, errInvalidGeometry
	}
	shell, err := closedRing(p[0])
	if err != nil {
		return nil, err
	}
	area := polyclip.Polygon{contour(shell[:len(shell)-1])}
	pieces := edgePieces(dropCollinear(shell), dist)
	for _, h := range p[1:] {
		hole, err := closedRing(h)
		if err != nil {
			continue
		}
		area = append(area, contour(hole[:len(hole)-1]))
		pieces = append(pieces, edgePieces(dropCollinear(hole), dist)...)
	}
	return union(append([]polyclip.Polygon{area}, pieces...)), nil
}

// edgePieces returns a disc around every point and a rectangle of half
// width dist around every segment of the path.
func edgePieces(pts []orb.Point, dist float64) []polyclip.Polygon {
	out := make([]polyclip.Polygon, 0, 2*len(pts))
	for i, p := range pts {
		out = append(out, polyclip.Polygon{disc(p, dist)})
		if i == 0 {
			continue
		}
		a := pts[i-1]
		out = append(out, polyclip.Polygon{contour([]orb.Point{
			offsetPoint(a, p, a, dist),
			offsetPoint(a, p, p, dist),
			offsetPoint(a, p, p, -dist),
			offsetPoint(a, p, a, -dist),
		})})
	}
	return out
}

func union(parts []polyclip.Polygon) polyclip.Polygon {
	if len(parts) == 0 {
		return nil
	}
	acc := parts[0]
	for _, p := range parts[1:] {
		acc = acc.Construct(polyclip.UNION, p)
	}
	return acc
}

// fromClip turns clipper contours into polygons. A contour nested inside
// an odd number of others is a hole of the smallest shell around it.
func fromClip(p polyclip.Polygon) []orb.Polygon {
	var rings []orb.Ring
	for _, c := range p {
		if len(c) < 3 {
			continue
		}
		r := make(orb.Ring, 0, len(c)+1)
		for _, pt := range c {
			r = append(r, orb.Point{pt.X, pt.Y})
		}
		r = append(r, r[0])
		if planar.Area(r) == 0 {
			continue
		}
		rings = append(rings, r)
	}

	contains := func(outer, inner orb.Ring) bool {
		return planar.RingContains(outer, inner[0])
	}
	var shells []int
	holes := map[int][]orb.Ring{}
	for i, r := range rings {
		depth := 0
		for j, o := range rings {
			if i != j && contains(o, r) {
				depth++
			}
		}
		if depth%2 == 0 {
			if r.Orientation() != orb.CCW {
				r.Reverse()
			}
			shells = append(shells, i)
			continue
		}
		parent := -1
		for j, o := range rings {
			if i == j || !contains(o, r) {
				continue
			}
			if parent < 0 || math.Abs(planar.Area(o)) < math.Abs(planar.Area(rings[parent])) {
				parent = j
			}
		}
		if r.Orientation() != orb.CW {
			r.Reverse()
		}
		holes[parent] = append(holes[parent], r)
	}

	out := make([]orb.Polygon, 0, len(shells))
	for _, i := range shells {
		out = append(out, append(orb.Polygon{rings[i]}, holes[i]...))
	}
	return out
}

func contour(pts []orb.Point) polyclip.Contour {
	c := make(polyclip.Contour, 0, len(pts))
	for _, p := range pts {
		c = append(c, polyclip.Point{X: p[0], Y: p[1]})
	}
	return c
}

// disc is a circle polygon around c with vertices at fixed angles, so discs
// around the same point coincide exactly.
func disc(c orb.Point, r float64) polyclip.Contour {
	ring := circle(c, r)[0]
	return contour(ring[:len(ring)-1])
}

// arc returns points on a circle from angle start sweeping counterclockwise
// by sweep, both ends included.
func arc(center orb.Point, r, start, sweep float64) []orb.Point {
	steps := int(math.Ceil(math.Abs(sweep) / (math.Pi / 2 / quadrantSegments)))
	if steps < 1 {
		steps = 1
	}
	pts := make([]orb.Point, 0, steps+1)
	for i := 0; i <= steps; i++ {
		a := start + sweep*float64(i)/float64(steps)
		pts = append(pts, orb.Point{center[0] + r*math.Cos(a), center[1] + r*math.Sin(a)})
	}
	return pts
}

func circle(c orb.Point, r float64) orb.Polygon {
	ring := orb.Ring(arc(c, r, 0, 2*math.Pi))
	ring[len(ring)-1] = ring[0]
	return orb.Polygon{ring}
}

// offsetPoint moves p by dist along the right normal of segment ab.
func offsetPoint(a, b, p orb.Point, dist float64) orb.Point {
	dx, dy := b[0]-a[0], b[1]-a[1]
	l := math.Hypot(dx, dy)
	return orb.Point{p[0] + dist*dy/l, p[1] - dist*dx/l}
}

// dropCollinear removes interior points that continue straight on, which
// would otherwise leave rectangles sharing an edge.
func dropCollinear(pts []orb.Point) []orb.Point {
	if len(pts) < 3 {
		return pts
	}
	out := []orb.Point{pts[0]}
	for i := 1; i < len(pts)-1; i++ {
		a, b, c := out[len(out)-1], pts[i], pts[i+1]
		ux, uy := b[0]-a[0], b[1]-a[1]
		vx, vy := c[0]-b[0], c[1]-b[1]
		cross := ux*vy - uy*vx
		if math.Abs(cross) <= 1e-12*math.Hypot(ux, uy)*math.Hypot(vx, vy) && ux*vx+uy*vy > 0 {
			continue
		}
		out = append(out, b)
	}
	return append(out, pts[len(pts)-1])
}

func closedRing(r orb.Ring) (orb.Ring, error) {
	pts, err := clean(orb.LineString(r))
	if err != nil {
		return nil, err
	}
	if !pts[0].Equal(pts[len(pts)-1]) {
		pts = append(pts, pts[0])
	}
	if len(pts) < 4 {
		return nil, errInvalidGeometry
	}
	return orb.Ring(pts), nil
}

// clean drops repeated points and rejects empty or non-finite input.
func clean(ls orb.LineString) ([]orb.Point, error) {
	if len(ls) == 0 {
		return nil, errInvalidGeometry
	}
	out := make([]orb.Point, 0, len(ls))
	for _, p := range ls {
		if !finite(p) {
			return nil, errInvalidGeometry
		}
		if len(out) > 0 && out[len(out)-1].Equal(p) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func finite(p orb.Point) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
