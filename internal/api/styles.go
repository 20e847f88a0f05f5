package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-viewer/internal/mapstyle"
)

// ResolveBody is a style and the feature to resolve it against.
type ResolveBody struct {
	Style      *mapstyle.Descriptor `json:"style,omitempty" doc:"Style descriptor, the default style when omitted"`
	Geometry   *geojson.Geometry    `json:"geometry,omitempty" doc:"GeoJSON geometry of the feature"`
	Circle     *mapstyle.Circle     `json:"circle,omitempty" doc:"Circle geometry, used instead of geometry"`
	Properties map[string]any       `json:"properties,omitempty"`
	Resolution float64              `json:"resolution,omitempty" minimum:"0" doc:"Map resolution in map units per pixel"`
}

// RegisterStyles registers style resolution routes.
func (h *APIHandler) RegisterStyles(api huma.API) {
	huma.Post(api, "/api/v1/styles/resolve", h.ResolveStyle, huma.OperationTags("styles"))
	huma.Get(api, "/api/v1/styles/default", h.DefaultStyle, huma.OperationTags("styles"))
}

func (h *APIHandler) ResolveStyle(ctx context.Context, input *struct{ Body ResolveBody }) (*struct {
	Body []mapstyle.Directive
}, error) {
	b := input.Body
	var feature *mapstyle.Feature
	if b.Geometry != nil || b.Circle != nil {
		feature = &mapstyle.Feature{Circle: b.Circle, Properties: b.Properties}
		if b.Geometry != nil && b.Circle == nil {
			feature.Geometry = b.Geometry.Geometry()
		}
	}
	var src mapstyle.Source
	if b.Style != nil {
		src = mapstyle.Static(*b.Style)
	}
	return &struct{ Body []mapstyle.Directive }{Body: mapstyle.StyleFor(src)(feature, b.Resolution)}, nil
}

func (h *APIHandler) DefaultStyle(ctx context.Context, input *struct{}) (*struct {
	Body mapstyle.Descriptor
}, error) {
	return &struct{ Body mapstyle.Descriptor }{Body: mapstyle.DefaultDescriptor()}, nil
}
