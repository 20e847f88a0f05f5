// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-viewer/internal/humastar"
	"github.com/joeblew999/plat-viewer/internal/layer"
	"github.com/joeblew999/plat-viewer/internal/layertree"
	"github.com/joeblew999/plat-viewer/internal/legend"
	"github.com/joeblew999/plat-viewer/internal/service"
	"github.com/joeblew999/plat-viewer/internal/viewer"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	State    *service.AppStateService
	Features *service.FeatureStore
	Session  *viewer.Session
	Legend   *legend.Service
	DataDir  string
}

// RegisterRoutes registers every REST route on api.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
}

// Types

type IDInput struct {
	ID int `path:"id" doc:"Application layer ID" example:"12"`
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"0.1.0"`
}

// LayerBody is an application layer with its hypermedia actions.
type LayerBody struct {
	layer.AppLayer
	Filter string `json:"filter,omitempty" doc:"Active filter predicate"`
}

var layerActions = []humastar.ActionDef{
	{Rel: "visibility", Pattern: "/api/v1/layers/%s/visibility", Method: "PUT", Title: "Show or hide"},
	{Rel: "opacity", Pattern: "/api/v1/layers/%s/opacity", Method: "PUT", Title: "Set opacity"},
	{Rel: "filter", Pattern: "/api/v1/layers/%s/filter", Method: "PUT", Title: "Set filter"},
	{Rel: "refresh", Pattern: "/api/v1/layers/%s/refresh", Method: "POST", Title: "Reload"},
}

// Actions implements humastar.Actor.
func (b LayerBody) Actions() []humastar.Action {
	return humastar.ActionsFor(strconv.Itoa(b.ID), layerActions)
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	if svc == nil {
		svc = &Services{}
	}
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterLayers registers application layer routes.
func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.ListLayers, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}", h.GetLayer, huma.OperationTags("layers"))
	huma.Put(api, "/api/v1/layers/{id}/visibility", h.PutVisibility, huma.OperationTags("layers"))
	huma.Put(api, "/api/v1/layers/{id}/opacity", h.PutOpacity, huma.OperationTags("layers"))
	huma.Put(api, "/api/v1/layers/{id}/filter", h.PutFilter, huma.OperationTags("layers"))
	huma.Post(api, "/api/v1/layers/{id}/refresh", h.RefreshLayer, huma.OperationTags("layers"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

type ListLayersInput struct {
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Items to skip"`
	Limit  int `query:"limit" minimum:"1" maximum:"500" default:"50" doc:"Page size"`
}

func (h *APIHandler) ListLayers(ctx context.Context, input *ListLayersInput) (*struct {
	Body humastar.PageBody[layer.AppLayer]
}, error) {
	var layers []layer.AppLayer
	if h.svc.State != nil {
		layers = h.svc.State.Snapshot().Layers
	}
	return &struct {
		Body humastar.PageBody[layer.AppLayer]
	}{Body: humastar.Paginate(layers, input.Offset, input.Limit)}, nil
}

func (h *APIHandler) GetLayer(ctx context.Context, input *IDInput) (*struct{ Body LayerBody }, error) {
	if h.svc.State == nil {
		return nil, huma.Error404NotFound("service not available")
	}
	l, ok := h.svc.State.Layer(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("layer not found")
	}
	body := LayerBody{AppLayer: l, Filter: h.svc.State.Snapshot().Filters[strconv.Itoa(input.ID)]}
	return &struct{ Body LayerBody }{Body: body}, nil
}

func (h *APIHandler) PutVisibility(ctx context.Context, input *struct {
	IDInput
	Body struct {
		Visible bool `json:"visible" doc:"Whether the layer is shown"`
	}
}) (*struct{ Body MessageBody }, error) {
	return h.update(func(s *service.AppStateService) error {
		return s.SetLayerVisibility(input.ID, input.Body.Visible)
	}, "Visibility updated")
}

func (h *APIHandler) PutOpacity(ctx context.Context, input *struct {
	IDInput
	Body struct {
		Opacity int `json:"opacity" minimum:"0" maximum:"100" doc:"Opacity 0-100"`
	}
}) (*struct{ Body MessageBody }, error) {
	return h.update(func(s *service.AppStateService) error {
		return s.SetLayerOpacity(input.ID, input.Body.Opacity)
	}, "Opacity updated")
}

func (h *APIHandler) PutFilter(ctx context.Context, input *struct {
	IDInput
	Body struct {
		Filter string `json:"filter" doc:"CQL predicate, empty to clear" example:"type = 'A'"`
	}
}) (*struct{ Body MessageBody }, error) {
	return h.update(func(s *service.AppStateService) error {
		return s.SetFilter(input.ID, input.Body.Filter)
	}, "Filter updated")
}

func (h *APIHandler) RefreshLayer(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	if h.svc.Session == nil {
		return nil, huma.Error503ServiceUnavailable("viewer not available")
	}
	id := strconv.Itoa(input.ID)
	if _, ok := h.svc.Session.Manager().GetLayer(id); !ok {
		return nil, huma.Error404NotFound("layer is not rendered")
	}
	h.svc.Session.Manager().RefreshLayer(id)
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Layer refreshed"}}, nil
}

func (h *APIHandler) update(fn func(*service.AppStateService) error, msg string) (*struct{ Body MessageBody }, error) {
	if h.svc.State == nil {
		return nil, huma.Error400BadRequest("service not available")
	}
	if err := fn(h.svc.State); err != nil {
		return nil, stateError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: msg}}, nil
}

// stateError maps state service errors onto HTTP errors.
func stateError(err error) error {
	switch {
	case errors.Is(err, service.ErrLayerNotFound), errors.Is(err, layertree.ErrNodeNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, layertree.ErrCyclicMove):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, layertree.ErrInvalidMove):
		return huma.Error422UnprocessableEntity(err.Error())
	}
	return huma.Error500InternalServerError("state update failed", err)
}
