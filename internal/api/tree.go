package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-viewer/internal/layertree"
	"github.com/joeblew999/plat-viewer/internal/service"
)

type TreeInput struct {
	Tree service.TreeKind `path:"tree" enum:"layers,background" doc:"Layer tree"`
}

type TreeBody struct {
	Tree     service.TreeKind       `json:"tree"`
	Selected string                 `json:"selected,omitempty" doc:"Selected background node"`
	Nodes    []layertree.RenderNode `json:"nodes" doc:"Render tree, root excluded"`
}

type MoveBody struct {
	NodeID   string             `json:"nodeId" required:"true" doc:"Node to move"`
	TargetID string             `json:"targetId" required:"true" doc:"Sibling or new parent"`
	Position layertree.Position `json:"position" enum:"before,after,inside" default:"before"`
}

// RegisterTrees registers layer tree routes.
func (h *APIHandler) RegisterTrees(api huma.API) {
	huma.Get(api, "/api/v1/trees/{tree}", h.GetTree, huma.OperationTags("trees"))
	huma.Post(api, "/api/v1/trees/{tree}/move", h.MoveNode, huma.OperationTags("trees"))
	huma.Post(api, "/api/v1/trees/{tree}/nodes/{node}/toggle", h.ToggleNode, huma.OperationTags("trees"))
	huma.Put(api, "/api/v1/background", h.SelectBackground, huma.OperationTags("trees"))
}

func (h *APIHandler) GetTree(ctx context.Context, input *TreeInput) (*struct{ Body TreeBody }, error) {
	if h.svc.State == nil {
		return nil, huma.Error404NotFound("service not available")
	}
	st := h.svc.State.Snapshot()
	body := TreeBody{Tree: input.Tree}
	switch input.Tree {
	case service.TreeBackground:
		body.Nodes = layertree.RenderOrder(st.BackgroundTree, st.Layers)
		body.Selected = st.SelectedBackground
	default:
		body.Nodes = layertree.RenderOrder(st.LayerTree, st.Layers)
	}
	if body.Nodes == nil {
		body.Nodes = []layertree.RenderNode{}
	}
	return &struct{ Body TreeBody }{Body: body}, nil
}

func (h *APIHandler) MoveNode(ctx context.Context, input *struct {
	TreeInput
	Body MoveBody
}) (*struct{ Body MessageBody }, error) {
	b := input.Body
	return h.update(func(s *service.AppStateService) error {
		return s.MoveNode(input.Tree, b.NodeID, b.TargetID, b.Position)
	}, "Node moved")
}

func (h *APIHandler) ToggleNode(ctx context.Context, input *struct {
	TreeInput
	Node string `path:"node" doc:"Node ID"`
}) (*struct{ Body MessageBody }, error) {
	return h.update(func(s *service.AppStateService) error {
		return s.ToggleExpanded(input.Tree, input.Node)
	}, "Node toggled")
}

func (h *APIHandler) SelectBackground(ctx context.Context, input *struct {
	Body struct {
		NodeID string `json:"nodeId" required:"true" doc:"Background node"`
	}
}) (*struct{ Body MessageBody }, error) {
	return h.update(func(s *service.AppStateService) error {
		return s.SelectBackground(input.Body.NodeID)
	}, "Background selected")
}
