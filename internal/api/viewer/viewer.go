// Package viewer contains Datastar SSE handlers for the map viewer UI: the
// table of contents and the render stack.
package viewer

import (
	"context"
	"errors"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-viewer/internal/humastar"
	"github.com/joeblew999/plat-viewer/internal/layertree"
	"github.com/joeblew999/plat-viewer/internal/service"
	"github.com/joeblew999/plat-viewer/internal/templates"
	"github.com/joeblew999/plat-viewer/internal/viewer"
)

// Handler streams the viewer state and applies UI actions.
type Handler struct {
	humastar.Handler
	state   *service.AppStateService
	session *viewer.Session
}

// NewHandler creates a viewer handler.
func NewHandler(state *service.AppStateService, session *viewer.Session, renderer *templates.Renderer) *Handler {
	return &Handler{
		Handler: humastar.Handler{Renderer: renderer},
		state:   state,
		session: session,
	}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	tags := huma.OperationTags("viewer")
	huma.Get(api, "/api/v1/viewer/events", h.Events, tags)
	huma.Post(api, "/api/v1/viewer/layers/{id}/toggle", h.ToggleLayer, tags)
	huma.Post(api, "/api/v1/viewer/nodes/{id}/toggle", h.ToggleNode, tags)
	huma.Post(api, "/api/v1/viewer/background", h.SelectBackground, tags)
}

type backgroundOption struct {
	ID       string
	Label    string
	Selected bool
}

// Events patches the table of contents and the render stack once, then
// again after every snapshot the session applies.
func (h *Handler) Events(ctx context.Context, input *struct{}) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		applied := h.session.Applied().Subscribe()
		defer h.session.Applied().Unsubscribe(applied)

		h.push(sse)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-applied:
				if !ok {
					return
				}
				h.push(sse)
			}
		}
	}), nil
}

func (h *Handler) push(sse humastar.SSE) {
	st := h.state.Snapshot()
	toc := layertree.RenderOrder(st.LayerTree, st.Layers)
	if len(toc) == 0 {
		sse.Patch(h.RenderEach("toc-node", nil, humastar.EmptyState{Title: "No layers", Message: "The application has no layers."}), "#toc")
	} else {
		html, err := h.Renderer.Render("toc", toc)
		if err != nil {
			sse.Error(err.Error())
			return
		}
		sse.Patch(html, "#toc")
	}

	var stack []any
	for _, l := range h.session.Manager().Layers() {
		stack = append(stack, l)
	}
	sse.Patch(h.RenderEach("render-layer", stack, humastar.EmptyState{Title: "Nothing rendered", Message: "No layer is attached to the map."}), "#render")

	selected := st.SelectedBackground
	var options []any
	for i, n := range layertree.RenderOrder(st.BackgroundTree, st.Layers) {
		if selected == "" && i == 0 {
			selected = n.ID
		}
		options = append(options, backgroundOption{ID: n.ID, Label: n.Label, Selected: n.ID == selected})
	}
	sse.Patch(h.RenderEach("background-option", options, humastar.EmptyState{Title: "No backgrounds"}), "#background")
	sse.Signals(map[string]any{"background": selected})
}

// ToggleLayer flips the visibility of an application layer.
func (h *Handler) ToggleLayer(ctx context.Context, input *struct {
	ID int `path:"id"`
}) (*huma.StreamResponse, error) {
	l, ok := h.state.Layer(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("layer not found")
	}
	if err := h.state.SetLayerVisibility(input.ID, !l.Visible); err != nil {
		return nil, huma.Error500InternalServerError("toggle layer", err)
	}
	return h.Stream(func(sse humastar.SSE) {
		sse.Success("Layer " + strconv.Itoa(input.ID) + " toggled")
	}), nil
}

// ToggleNode expands or collapses a group of the layer tree.
func (h *Handler) ToggleNode(ctx context.Context, input *struct {
	ID string `path:"id"`
}) (*huma.StreamResponse, error) {
	if err := h.state.ToggleExpanded(service.TreeLayers, input.ID); err != nil {
		if errors.Is(err, layertree.ErrNodeNotFound) {
			return nil, huma.Error404NotFound(err.Error())
		}
		return nil, huma.Error500InternalServerError("toggle node", err)
	}
	return h.Stream(func(sse humastar.SSE) {}), nil
}

// SelectBackground reads the "background" signal and selects that node.
func (h *Handler) SelectBackground(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := humastar.DecodeSignals[struct {
		Background string `json:"background"`
	}](input)
	if err != nil {
		return nil, err
	}
	node := signals.Background
	if node == "" {
		return nil, huma.Error400BadRequest("Background is required")
	}
	if err := h.state.SelectBackground(node); err != nil {
		if errors.Is(err, layertree.ErrNodeNotFound) {
			return nil, huma.Error404NotFound(err.Error())
		}
		return nil, huma.Error500InternalServerError("select background", err)
	}
	return h.Stream(func(sse humastar.SSE) {
		sse.Success("Background selected")
	}), nil
}
