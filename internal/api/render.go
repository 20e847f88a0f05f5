package api

import (
	"context"
	"slices"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-viewer/internal/layer"
	"github.com/joeblew999/plat-viewer/internal/layermanager"
	"github.com/joeblew999/plat-viewer/internal/layertree"
	"github.com/joeblew999/plat-viewer/internal/legend"
)

// legendOptions are sent to GeoServer for legend images.
var legendOptions = layer.GeoServerLegendOptions{
	"fontAntiAliasing": "true",
	"forceLabels":      "on",
}

// RegisterRender registers render stack and legend routes.
func (h *APIHandler) RegisterRender(api huma.API) {
	huma.Get(api, "/api/v1/render", h.GetRenderStack, huma.OperationTags("render"))
	huma.Get(api, "/api/v1/legend", h.GetLegend, huma.OperationTags("render"))
	huma.Get(api, "/api/v1/legend/{id}", h.GetLegendImage, huma.OperationTags("render"))
}

func (h *APIHandler) GetRenderStack(ctx context.Context, input *struct{}) (*struct {
	Body []layermanager.Layer
}, error) {
	layers := []layermanager.Layer{}
	if h.svc.Session != nil {
		layers = append(layers, h.svc.Session.Manager().Layers()...)
	}
	return &struct{ Body []layermanager.Layer }{Body: layers}, nil
}

type ScaleInput struct {
	Scale float64 `query:"scale" minimum:"0" doc:"Current map scale denominator, 0 when unknown"`
}

func (h *APIHandler) GetLegend(ctx context.Context, input *ScaleInput) (*struct{ Body []legend.Info }, error) {
	if h.svc.State == nil || h.svc.Legend == nil {
		return &struct{ Body []legend.Info }{Body: []legend.Info{}}, nil
	}
	return &struct{ Body []legend.Info }{Body: h.svc.Legend.Info(h.visibleLayers(), input.Scale)}, nil
}

// visibleLayers lists the visible application layers in tree order.
func (h *APIHandler) visibleLayers() []layer.AppLayer {
	st := h.svc.State.Snapshot()
	var out []layer.AppLayer
	for _, id := range layertree.AppLayerIDs(st.LayerTree, "") {
		i := slices.IndexFunc(st.Layers, func(l layer.AppLayer) bool { return l.ID == id })
		if i >= 0 && st.Layers[i].Visible {
			out = append(out, st.Layers[i])
		}
	}
	return out
}

type LegendImageOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

func (h *APIHandler) GetLegendImage(ctx context.Context, input *struct {
	IDInput
	ScaleInput
}) (*LegendImageOutput, error) {
	if h.svc.State == nil || h.svc.Legend == nil {
		return nil, huma.Error404NotFound("service not available")
	}
	l, ok := h.svc.State.Layer(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("layer not found")
	}
	infos := h.svc.Legend.Info([]layer.AppLayer{l}, input.Scale)
	if infos[0].URL == "" {
		return nil, huma.Error404NotFound("layer has no legend")
	}
	images := h.svc.Legend.Images(ctx, infos, h.rewriteLegendURL)
	if err := images[0].Err; err != nil {
		return nil, huma.Error502BadGateway("legend unavailable", err)
	}
	return &LegendImageOutput{ContentType: "image/png", Body: images[0].PNG}, nil
}

// rewriteLegendURL adds legend options for GeoServer backed layers.
func (h *APIHandler) rewriteLegendURL(l layer.AppLayer, u string) string {
	for _, svc := range h.svc.State.Snapshot().Services {
		if svc.ID == l.ServiceID && svc.ServerType == layer.ServerGeoServer && layer.IsGetLegendGraphicRequest(u) {
			return layer.AddGeoServerLegendOptions(u, legendOptions)
		}
	}
	return u
}

