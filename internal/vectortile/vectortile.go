// Package vectortile encodes drawing-layer features as Mapbox Vector Tiles.
//
// Feature geometries are WGS84 longitude/latitude. Each encoded feature
// carries the resolved base style of its drawing layer as properties, so
// a client can draw the tile without resolving styles itself.
package vectortile

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"

	"github.com/joeblew999/plat-viewer/internal/mapstyle"
)

// MaxZoom is the highest zoom level tiles are produced for.
const MaxZoom = 22

// Style properties added to every encoded feature.
const (
	PropStroke      = "_stroke"
	PropStrokeWidth = "_strokeWidth"
	PropFill        = "_fill"
	PropLabel       = "_label"
	PropZIndex      = "_zIndex"
)

const circleSegments = 64

// Resolution returns the web mercator resolution in meters per pixel of a
// 256 pixel tile at zoom z.
func Resolution(z maptile.Zoom) float64 {
	return 2 * math.Pi * 6378137 / 256 / math.Exp2(float64(z))
}

// Encode builds the gzipped MVT of one tile. It returns nil without error
// when no feature touches the tile.
func Encode(tile maptile.Tile, layerName string, features []mapstyle.Feature, style mapstyle.Source) ([]byte, error) {
	if tile.Z > MaxZoom {
		return nil, fmt.Errorf("zoom %d above %d", tile.Z, MaxZoom)
	}
	bound := tile.Bound()
	styleAt := mapstyle.StyleFor(style)
	res := Resolution(tile.Z)

	fc := geojson.NewFeatureCollection()
	for i := range features {
		f := &features[i]
		g := geometry(f)
		if g == nil || !intersects(g, bound) {
			continue
		}
		// mvt clips and projects in place
		out := geojson.NewFeature(orb.Clone(g))
		out.ID = f.ID
		for k, v := range f.Properties {
			out.Properties[k] = v
		}
		styleProperties(out.Properties, styleAt(f, res))
		fc.Append(out)
	}
	if len(fc.Features) == 0 {
		return nil, nil
	}

	layer := mvt.NewLayer(layerName, fc)
	if eps := simplifyEpsilon(tile.Z); eps > 0 {
		layer.Simplify(simplify.DouglasPeucker(eps))
	}
	layer.Clip(bound)
	layer.ProjectToTile(tile)
	layer.RemoveEmpty(0.5, 0.5)
	if len(layer.Features) == 0 {
		return nil, nil
	}
	return mvt.MarshalGzipped(mvt.Layers{layer})
}

// Covering returns the tiles at zoom that intersect the bound.
func Covering(bound orb.Bound, zoom maptile.Zoom) []maptile.Tile {
	lo := maptile.At(bound.Min, zoom)
	hi := maptile.At(bound.Max, zoom)
	minX, maxX := min(lo.X, hi.X), max(lo.X, hi.X)
	minY, maxY := min(lo.Y, hi.Y), max(lo.Y, hi.Y)

	var tiles []maptile.Tile
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			tiles = append(tiles, maptile.New(x, y, zoom))
		}
	}
	return tiles
}

func geometry(f *mapstyle.Feature) orb.Geometry {
	if f.Circle != nil {
		return f.Circle.Polygon(circleSegments)
	}
	return f.Geometry
}

// styleProperties copies the base stroke and fill, and the first label,
// from the resolved directives.
func styleProperties(props geojson.Properties, directives []mapstyle.Directive) {
	for _, d := range directives {
		switch d.Kind {
		case mapstyle.KindBase:
			if d.Stroke != nil {
				props[PropStroke] = d.Stroke.Color
				props[PropStrokeWidth] = d.Stroke.Width
			}
			if d.Fill != nil && d.Fill.Color != "" {
				props[PropFill] = d.Fill.Color
			}
			props[PropZIndex] = d.ZIndex
		case mapstyle.KindLabel:
			if _, ok := props[PropLabel]; !ok && d.Text != nil {
				props[PropLabel] = d.Text.Text
			}
		}
	}
}

// intersects refines the bounding box test for points and polygons.
func intersects(g orb.Geometry, bound orb.Bound) bool {
	if !g.Bound().Intersects(bound) {
		return false
	}
	switch g := g.(type) {
	case orb.Point:
		return bound.Contains(g)
	case orb.MultiPoint:
		for _, p := range g {
			if bound.Contains(p) {
				return true
			}
		}
		return false
	case orb.Polygon:
		for _, ring := range g {
			for _, p := range ring {
				if bound.Contains(p) {
					return true
				}
			}
		}
		// polygon may contain the whole tile
		corners := append(bound.ToRing(), bound.Center())
		for _, p := range corners {
			if planar.PolygonContains(g, p) {
				return true
			}
		}
		return false
	case orb.MultiPolygon:
		for _, p := range g {
			if intersects(p, bound) {
				return true
			}
		}
		return false
	}
	return true
}

// simplifyEpsilon is the Douglas-Peucker tolerance in degrees for a zoom
// level. Nothing is simplified from zoom 14 on.
func simplifyEpsilon(z maptile.Zoom) float64 {
	switch {
	case z >= 14:
		return 0
	case z >= 10:
		return 0.00001
	case z >= 6:
		return 0.0001
	case z >= 4:
		return 0.0005
	default:
		return 0.001
	}
}
