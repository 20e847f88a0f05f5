package api

import (
	"context"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/plat-viewer/internal/logging"
	"github.com/joeblew999/plat-viewer/internal/mapstyle"
	"github.com/joeblew999/plat-viewer/internal/service"
	"github.com/joeblew999/plat-viewer/internal/vectortile"
)

type DrawingIDInput struct {
	ID string `path:"id" doc:"Drawing layer ID" example:"sketch"`
}

// RegisterDrawing registers drawing layer and feature routes.
func (h *APIHandler) RegisterDrawing(api huma.API) {
	huma.Get(api, "/api/v1/drawing", h.ListDrawingLayers, huma.OperationTags("drawing"))
	huma.Get(api, "/api/v1/drawing/{id}", h.GetDrawingLayer, huma.OperationTags("drawing"))
	huma.Put(api, "/api/v1/drawing/{id}", h.PutDrawingLayer, huma.OperationTags("drawing"))
	huma.Delete(api, "/api/v1/drawing/{id}", h.DeleteDrawingLayer, huma.OperationTags("drawing"))
	huma.Get(api, "/api/v1/drawing/{id}/features", h.GetFeatures, huma.OperationTags("drawing"))
	huma.Put(api, "/api/v1/drawing/{id}/features", h.PutFeatures, huma.OperationTags("drawing"))
	huma.Get(api, "/api/v1/vector/{id}/{z}/{x}/{y}", h.GetVectorTile, huma.OperationTags("drawing"))
}

func (h *APIHandler) ListDrawingLayers(ctx context.Context, input *struct{}) (*struct {
	Body []service.DrawingLayer
}, error) {
	layers := []service.DrawingLayer{}
	if h.svc.State != nil {
		layers = append(layers, h.svc.State.Snapshot().DrawingLayers...)
	}
	return &struct{ Body []service.DrawingLayer }{Body: layers}, nil
}

func (h *APIHandler) GetDrawingLayer(ctx context.Context, input *DrawingIDInput) (*struct {
	Body service.DrawingLayer
}, error) {
	d, err := h.drawingLayer(input.ID)
	if err != nil {
		return nil, err
	}
	return &struct{ Body service.DrawingLayer }{Body: d}, nil
}

func (h *APIHandler) PutDrawingLayer(ctx context.Context, input *struct {
	DrawingIDInput
	Body service.DrawingLayer
}) (*struct{ Body service.DrawingLayer }, error) {
	if h.svc.State == nil {
		return nil, huma.Error400BadRequest("service not available")
	}
	d := input.Body
	d.ID = input.ID
	saved, err := h.svc.State.UpsertDrawingLayer(d)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return &struct{ Body service.DrawingLayer }{Body: saved}, nil
}

func (h *APIHandler) DeleteDrawingLayer(ctx context.Context, input *DrawingIDInput) (*struct{ Body MessageBody }, error) {
	if h.svc.State == nil {
		return nil, huma.Error400BadRequest("service not available")
	}
	if err := h.svc.State.RemoveDrawingLayer(input.ID); err != nil {
		return nil, stateError(err)
	}
	if h.svc.Features != nil {
		if err := h.svc.Features.Delete(ctx, input.ID); err != nil {
			return nil, huma.Error500InternalServerError("delete features", err)
		}
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Drawing layer deleted"}}, nil
}

func (h *APIHandler) GetFeatures(ctx context.Context, input *DrawingIDInput) (*struct {
	ContentType string `header:"Content-Type"`
	Body        *geojson.FeatureCollection
}, error) {
	fc, err := h.features(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &struct {
		ContentType string `header:"Content-Type"`
		Body        *geojson.FeatureCollection
	}{ContentType: "application/geo+json", Body: fc}, nil
}

func (h *APIHandler) PutFeatures(ctx context.Context, input *struct {
	DrawingIDInput
	RawBody []byte
}) (*struct{ Body MessageBody }, error) {
	if _, err := h.drawingLayer(input.ID); err != nil {
		return nil, err
	}
	if h.svc.Features == nil {
		return nil, huma.Error503ServiceUnavailable("feature store not available")
	}
	fc, err := geojson.UnmarshalFeatureCollection(input.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid feature collection: " + err.Error())
	}
	if err := h.svc.Features.Save(ctx, input.ID, fc); err != nil {
		return nil, huma.Error500InternalServerError("save features", err)
	}
	logging.FromContext(ctx).Debug("features saved", "layer", input.ID, "count", len(fc.Features))
	// Features are not part of the state; nudge the viewer to reload them.
	h.svc.State.Resend(service.Event{Resource: service.ResourceDrawing, Action: "updated", ID: input.ID})
	return &struct{ Body MessageBody }{Body: MessageBody{
		Message: strconv.Itoa(len(fc.Features)) + " features saved",
	}}, nil
}

type VectorTileInput struct {
	DrawingIDInput
	Z uint32 `path:"z" maximum:"22" doc:"Zoom level"`
	X uint32 `path:"x" doc:"Tile column"`
	Y string `path:"y" pattern:"^[0-9]+(\\.mvt)?$" doc:"Tile row, optionally with .mvt suffix" example:"42.mvt"`
}

type VectorTileOutput struct {
	Status          int
	ContentType     string `header:"Content-Type"`
	ContentEncoding string `header:"Content-Encoding"`
	Body            []byte
}

func (h *APIHandler) GetVectorTile(ctx context.Context, input *VectorTileInput) (*VectorTileOutput, error) {
	d, err := h.drawingLayer(input.ID)
	if err != nil {
		return nil, err
	}
	y, err := strconv.ParseUint(strings.TrimSuffix(input.Y, ".mvt"), 10, 32)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid tile row")
	}
	if input.X >= 1<<input.Z || y >= 1<<input.Z {
		return nil, huma.Error400BadRequest("tile out of range")
	}
	tile := maptile.New(input.X, uint32(y), maptile.Zoom(input.Z))
	fc, err := h.features(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	data, err := vectortile.Encode(tile, d.ID, service.StyleFeatures(fc), mapstyle.Static(d.Style))
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	if data == nil {
		return &VectorTileOutput{Status: 204}, nil
	}
	return &VectorTileOutput{
		Status:          200,
		ContentType:     "application/vnd.mapbox-vector-tile",
		ContentEncoding: "gzip",
		Body:            data,
	}, nil
}

func (h *APIHandler) drawingLayer(id string) (service.DrawingLayer, error) {
	if h.svc.State == nil {
		return service.DrawingLayer{}, huma.Error404NotFound("service not available")
	}
	d, ok := h.svc.State.DrawingLayer(id)
	if !ok {
		return service.DrawingLayer{}, huma.Error404NotFound("drawing layer not found")
	}
	return d, nil
}

func (h *APIHandler) features(ctx context.Context, id string) (*geojson.FeatureCollection, error) {
	if _, err := h.drawingLayer(id); err != nil {
		return nil, err
	}
	if h.svc.Features == nil {
		return geojson.NewFeatureCollection(), nil
	}
	fc, err := h.svc.Features.Load(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("load features", err)
	}
	return fc, nil
}
