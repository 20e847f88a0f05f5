// Package layer describes renderable map layers and translates
// application layers and their OGC services into them.
package layer

// Kind discriminates the layer variants.
type Kind string

const (
	KindTiled  Kind = "tiled-service"
	KindImage  Kind = "image-service"
	KindVector Kind = "vector"
)

// ServerType is the vendor behind a service. It decides which filter
// parameter a server understands.
type ServerType string

const (
	ServerGeneric   ServerType = "generic"
	ServerGeoServer ServerType = "geoserver"
	ServerMapServer ServerType = "mapserver"
)

// Spec is an immutable description of a renderable layer. ID is unique
// across all layer groups. Re-issuing an ID with new content updates the
// layer in place unless Kind changes.
type Spec struct {
	ID         string     `json:"id" doc:"Stable layer identifier" example:"12"`
	Name       string     `json:"name,omitempty" doc:"Display name"`
	Kind       Kind       `json:"kind" enum:"tiled-service,image-service,vector" doc:"Layer variant"`
	Visible    bool       `json:"visible" doc:"Whether the layer is drawn"`
	Opacity    int        `json:"opacity" minimum:"0" maximum:"100" default:"100" doc:"Opacity 0-100"`
	URL        string     `json:"url,omitempty" doc:"Service base URL"`
	Filter     string     `json:"filter,omitempty" doc:"Server-side filter predicate (CQL)"`
	ServerType ServerType `json:"serverType,omitempty" enum:"generic,geoserver,mapserver"`
	ZIndexHint *int       `json:"zIndexHint,omitempty" doc:"Explicit z-index within the group"`

	// Layers is the WMS LAYERS value or the WMTS layer identifier.
	Layers string `json:"layers,omitempty"`
	// Capabilities is the WMTS capabilities document.
	Capabilities string `json:"-"`
	// UpdateWhileAnimating applies to vector layers only.
	UpdateWhileAnimating bool `json:"updateWhileAnimating,omitempty"`
}

// IsService reports whether the layer is backed by a remote map service.
func (s Spec) IsService() bool {
	return s.Kind == KindTiled || s.Kind == KindImage
}

// Alpha returns the opacity as a 0-1 fraction, clamped.
func (s Spec) Alpha() float64 {
	switch {
	case s.Opacity <= 0:
		return 0
	case s.Opacity >= 100:
		return 1
	}
	return float64(s.Opacity) / 100
}
