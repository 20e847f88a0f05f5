package layermanager

import (
	"maps"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/joeblew999/plat-viewer/internal/layer"
	"github.com/joeblew999/plat-viewer/internal/mapstyle"
)

// Group is one of the independently ordered layer partitions. Groups are
// stacked background, base, vector from bottom to top.
type Group string

const (
	GroupBackground Group = "background"
	GroupBase       Group = "base"
	GroupVector     Group = "vector"
)

// engineLayer is the mutable render object the manager owns for one id.
type engineLayer struct {
	spec    layer.Spec
	group   Group
	natural int
	zIndex  int
	opacity float64
	visible bool

	// image-service
	params map[string]string
	// tiled-service
	tileURLs []string
	// vector
	features []mapstyle.Feature
	style    mapstyle.Source
	managed  bool
}

// newEngineLayer builds the render object for a spec. It returns nil for
// specs that cannot be rendered, such as a tiled layer without usable
// capabilities.
func newEngineLayer(spec layer.Spec, group Group) *engineLayer {
	l := &engineLayer{
		spec:    spec,
		group:   group,
		opacity: spec.Alpha(),
		visible: spec.Visible,
	}
	switch spec.Kind {
	case layer.KindImage:
		if spec.URL == "" {
			return nil
		}
		l.params = map[string]string{
			"LAYERS":      spec.Layers,
			"FORMAT":      "image/png",
			"TRANSPARENT": "TRUE",
		}
		if usesCQL(spec) && spec.Filter != "" {
			l.params["CQL_FILTER"] = spec.Filter
		}
	case layer.KindTiled:
		urls, ok := tileURLs(spec)
		if !ok {
			return nil
		}
		l.tileURLs = urls
	case layer.KindVector:
	default:
		return nil
	}
	return l
}

func tileURLs(spec layer.Spec) ([]string, bool) {
	caps, err := layer.ParseWMTSCapabilities(spec.Capabilities)
	if err != nil {
		return nil, false
	}
	urls, err := caps.TileURLs(spec.Layers)
	if err != nil {
		return nil, false
	}
	return urls, true
}

// usesCQL reports whether the server understands the CQL_FILTER parameter.
// Only GeoServer WMS layers are filtered for now.
func usesCQL(spec layer.Spec) bool {
	return spec.Kind == layer.KindImage && spec.ServerType == layer.ServerGeoServer
}

// update applies a re-issued spec with the same kind in place: opacity,
// visibility, filter and source. It reports whether anything changed.
func (l *engineLayer) update(spec layer.Spec) bool {
	changed := false
	if a := spec.Alpha(); a != l.opacity {
		l.opacity = a
		changed = true
	}
	if spec.Visible != l.visible {
		l.visible = spec.Visible
		changed = true
	}
	switch spec.Kind {
	case layer.KindImage:
		if usesCQL(spec) && spec.Filter != l.spec.Filter {
			if spec.Filter == "" {
				delete(l.params, "CQL_FILTER")
			} else {
				l.params["CQL_FILTER"] = spec.Filter
			}
			changed = true
		}
		if spec.Layers != l.spec.Layers {
			l.params["LAYERS"] = spec.Layers
			changed = true
		}
		if spec.URL != l.spec.URL {
			changed = true
		}
	case layer.KindTiled:
		if spec.URL != l.spec.URL || spec.Layers != l.spec.Layers || spec.Capabilities != l.spec.Capabilities {
			if urls, ok := tileURLs(spec); ok {
				l.tileURLs = urls
				changed = true
			}
		}
	}
	l.spec = spec
	return changed
}

// Layer is a read-only snapshot of a managed layer.
type Layer struct {
	ID       string            `json:"id"`
	Name     string            `json:"name,omitempty"`
	Group    Group             `json:"group" enum:"background,base,vector"`
	Kind     layer.Kind        `json:"kind"`
	ZIndex   int               `json:"zIndex"`
	Opacity  float64           `json:"opacity" doc:"Opacity 0-1"`
	Visible  bool              `json:"visible"`
	URL      string            `json:"url,omitempty" doc:"Image request URL or service URL"`
	Params   map[string]string `json:"params,omitempty" doc:"Image request parameters"`
	TileURLs []string          `json:"tileUrls,omitempty" doc:"Tile URL templates"`
	Features int               `json:"features,omitempty" doc:"Number of vector features"`
}

func (l *engineLayer) snapshot() Layer {
	s := Layer{
		ID:       l.spec.ID,
		Name:     l.spec.Name,
		Group:    l.group,
		Kind:     l.spec.Kind,
		ZIndex:   l.zIndex,
		Opacity:  l.opacity,
		Visible:  l.visible,
		URL:      l.spec.URL,
		Params:   maps.Clone(l.params),
		TileURLs: slices.Clone(l.tileURLs),
		Features: len(l.features),
	}
	if l.spec.Kind == layer.KindImage {
		s.URL = l.requestURL()
	}
	return s
}

// requestURL is the image request URL with every parameter applied in
// key order.
func (l *engineLayer) requestURL() string {
	keys := make([]string, 0, len(l.params))
	for k := range l.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	u := l.spec.URL
	for _, k := range keys {
		u = layer.SetParam(u, k, l.params[k])
	}
	return u
}

// fingerprint identifies the parts of a spec whose change requires a
// re-render: the id, a set opacity and, for service layers, the filter.
func fingerprint(spec layer.Spec) string {
	parts := []string{spec.ID}
	if spec.Opacity != 0 {
		parts = append(parts, strconv.Itoa(spec.Opacity))
	}
	if spec.IsService() && spec.Filter != "" {
		parts = append(parts, spec.Filter)
	}
	return strings.Join(parts, "_")
}
