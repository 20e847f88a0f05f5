package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

// Version is reported by /health and /api/v1/info.
const Version = "0.1.0"

type InfoBody struct {
	Name          string `json:"name" doc:"Service name" example:"plat-viewer"`
	Version       string `json:"version"`
	App           string `json:"app,omitempty" doc:"Name of the loaded application"`
	DataDir       string `json:"dataDir,omitempty" doc:"Directory of the persisted state"`
	FeatureStore  bool   `json:"featureStore" doc:"Whether drawing features can be stored"`
	Services      int    `json:"services" doc:"Configured map services"`
	Layers        int    `json:"layers" doc:"Configured application layers"`
	DrawingLayers int    `json:"drawingLayers"`
	Rendered      int    `json:"rendered" doc:"Layers attached to the map"`
}

// RegisterInfo registers the service information route.
func (h *APIHandler) RegisterInfo(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

func (h *APIHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	body := InfoBody{
		Name:         "plat-viewer",
		Version:      Version,
		DataDir:      h.svc.DataDir,
		FeatureStore: h.svc.Features != nil,
	}
	if h.svc.State != nil {
		st := h.svc.State.Snapshot()
		body.App = st.Name
		body.Services = len(st.Services)
		body.Layers = len(st.Layers)
		body.DrawingLayers = len(st.DrawingLayers)
	}
	if h.svc.Session != nil {
		body.Rendered = len(h.svc.Session.Manager().Layers())
	}
	return &struct{ Body InfoBody }{Body: body}, nil
}
