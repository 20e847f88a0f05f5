package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-viewer/internal/db"
	"github.com/joeblew999/plat-viewer/internal/humastar"
	"github.com/joeblew999/plat-viewer/internal/layer"
	"github.com/joeblew999/plat-viewer/internal/layermanager"
	"github.com/joeblew999/plat-viewer/internal/layertree"
	"github.com/joeblew999/plat-viewer/internal/legend"
	"github.com/joeblew999/plat-viewer/internal/mapstyle"
	"github.com/joeblew999/plat-viewer/internal/service"
	"github.com/joeblew999/plat-viewer/internal/viewer"
)

func intPtr(v int) *int { return &v }

func testState() service.AppState {
	return service.AppState{
		Services: []layer.Service{
			{ID: "wms", Protocol: layer.ProtocolWMS, URL: "https://example.com/wms", ServerType: layer.ServerGeoServer},
		},
		Layers: []layer.AppLayer{
			{ID: 1, LayerName: "roads", Visible: true, Opacity: 100, ServiceID: "wms"},
			{ID: 2, LayerName: "rivers", Visible: true, Opacity: 100, ServiceID: "wms"},
			{ID: 3, LayerName: "parcels", Visible: true, Opacity: 100, ServiceID: "wms"},
			{ID: 10, LayerName: "streets", Opacity: 100, ServiceID: "wms"},
		},
		LayerTree: []layertree.Node{
			{ID: "root", Root: true, ChildrenIDs: []string{"g1", "l3"}},
			{ID: "g1", Name: "Network", Expanded: true, ChildrenIDs: []string{"l1", "g2"}},
			{ID: "g2", Name: "Water", Expanded: true, ChildrenIDs: []string{"l2"}},
			{ID: "l1", AppLayerID: intPtr(1)},
			{ID: "l2", AppLayerID: intPtr(2)},
			{ID: "l3", AppLayerID: intPtr(3)},
		},
		BackgroundTree: []layertree.Node{
			{ID: "bg", Root: true, ChildrenIDs: []string{"streets"}},
			{ID: "streets", AppLayerID: intPtr(10)},
		},
	}
}

func setup(t *testing.T) (humatest.TestAPI, *Services) {
	t.Helper()
	ctx := context.Background()

	conn, err := db.Open(db.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	features, err := service.NewFeatureStore(ctx, conn)
	require.NoError(t, err)

	state := service.NewAppStateService(t.TempDir(), nil)
	require.NoError(t, state.Replace(testState()))

	manager := layermanager.New()
	session := viewer.New(state, features, manager, nil, nil)
	require.NoError(t, session.Apply(ctx, state.Snapshot()))

	svc := &Services{
		State:    state,
		Features: features,
		Session:  session,
		Legend:   legend.NewService(manager, nil, nil),
	}

	links := humastar.LinkSet{}
	config := huma.DefaultConfig("test", "1.0.0")
	config.Transformers = append(config.Transformers, links.Transformer())
	_, api := humatest.New(t, config)
	RegisterRoutes(api, svc)
	links.Build(api)
	return api, svc
}

func decode[T any](t *testing.T, resp interface{ Bytes() []byte }) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	api, _ := setup(t)
	resp := api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ok", decode[HealthBody](t, resp.Body).Status)
}

func TestListLayersPaging(t *testing.T) {
	api, _ := setup(t)

	resp := api.Get("/api/v1/layers?offset=1&limit=2")
	require.Equal(t, http.StatusOK, resp.Code)
	page := decode[humastar.PageBody[layer.AppLayer]](t, resp.Body)
	assert.Equal(t, 4, page.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, 2, page.Data[0].ID)

	links := resp.Result().Header.Values("Link")
	assert.Contains(t, links, `</api/v1/layers?limit=2&offset=3>; rel="next"`)
	assert.Contains(t, links, `</api/v1/layers?limit=2&offset=0>; rel="prev"`)

	resp = api.Get("/api/v1/layers?offset=10")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decode[humastar.PageBody[layer.AppLayer]](t, resp.Body).Data)
}

func TestGetLayerActions(t *testing.T) {
	api, svc := setup(t)
	require.NoError(t, svc.State.SetFilter(1, "kind = 'A'"))

	resp := api.Get("/api/v1/layers/1")
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode[LayerBody](t, resp.Body)
	assert.Equal(t, "roads", body.LayerName)
	assert.Equal(t, "kind = 'A'", body.Filter)

	assert.Contains(t, strings.Join(resp.Result().Header.Values("Link"), ","), `rel="visibility"`)

	resp = api.Get("/api/v1/layers/99")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestLayerUpdates(t *testing.T) {
	api, svc := setup(t)

	resp := api.Put("/api/v1/layers/1/visibility", map[string]any{"visible": false})
	require.Equal(t, http.StatusOK, resp.Code)
	l, _ := svc.State.Layer(1)
	assert.False(t, l.Visible)

	resp = api.Put("/api/v1/layers/1/opacity", map[string]any{"opacity": 40})
	require.Equal(t, http.StatusOK, resp.Code)
	l, _ = svc.State.Layer(1)
	assert.Equal(t, 40, l.Opacity)

	resp = api.Put("/api/v1/layers/1/opacity", map[string]any{"opacity": 140})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = api.Put("/api/v1/layers/99/visibility", map[string]any{"visible": true})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRefreshLayer(t *testing.T) {
	api, _ := setup(t)

	resp := api.Post("/api/v1/layers/1/refresh")
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = api.Post("/api/v1/layers/99/refresh")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestTreeMove(t *testing.T) {
	api, svc := setup(t)

	resp := api.Get("/api/v1/trees/layers")
	require.Equal(t, http.StatusOK, resp.Code)
	tree := decode[TreeBody](t, resp.Body)
	require.Len(t, tree.Nodes, 2)
	assert.Equal(t, "g1", tree.Nodes[0].ID)

	resp = api.Post("/api/v1/trees/layers/move", map[string]any{
		"nodeId": "l3", "targetId": "g1", "position": "before",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	ids := layertree.AppLayerIDs(svc.State.Snapshot().LayerTree, "")
	assert.Equal(t, []int{3, 1, 2}, ids)

	resp = api.Post("/api/v1/trees/layers/move", map[string]any{
		"nodeId": "g1", "targetId": "g2", "position": "inside",
	})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = api.Post("/api/v1/trees/layers/move", map[string]any{
		"nodeId": "nope", "targetId": "g1", "position": "before",
	})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestToggleAndBackground(t *testing.T) {
	api, svc := setup(t)

	resp := api.Post("/api/v1/trees/layers/nodes/g1/toggle")
	require.Equal(t, http.StatusOK, resp.Code)
	n, _ := layertree.New(svc.State.Snapshot().LayerTree).Node("g1")
	assert.False(t, n.Expanded)

	resp = api.Put("/api/v1/background", map[string]any{"nodeId": "streets"})
	require.Equal(t, http.StatusOK, resp.Code)
	resp = api.Get("/api/v1/trees/background")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "streets", decode[TreeBody](t, resp.Body).Selected)

	resp = api.Put("/api/v1/background", map[string]any{"nodeId": "nope"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRenderStack(t *testing.T) {
	api, _ := setup(t)

	resp := api.Get("/api/v1/render")
	require.Equal(t, http.StatusOK, resp.Code)
	layers := decode[[]layermanager.Layer](t, resp.Body)
	require.NotEmpty(t, layers)
	assert.Equal(t, layermanager.GroupBackground, layers[0].Group)
}

func TestLegendInfo(t *testing.T) {
	api, _ := setup(t)

	resp := api.Get("/api/v1/legend")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "GetLegendGraphic")
}

func TestResolveStyle(t *testing.T) {
	api, _ := setup(t)

	resp := api.Post("/api/v1/styles/resolve", map[string]any{
		"style":    map[string]any{"zIndex": 3, "pointType": "star", "strokeColor": "#00ff00"},
		"geometry": map[string]any{"type": "Point", "coordinates": []float64{1, 2}},
	})
	require.Equal(t, http.StatusOK, resp.Code)
	directives := decode[[]mapstyle.Directive](t, resp.Body)
	require.NotEmpty(t, directives)
	assert.Equal(t, mapstyle.KindBase, directives[0].Kind)
	assert.Equal(t, 3, directives[0].ZIndex)

	var kinds []mapstyle.DirectiveKind
	for _, d := range directives {
		kinds = append(kinds, d.Kind)
	}
	assert.Contains(t, kinds, mapstyle.KindSymbol)

	resp = api.Post("/api/v1/styles/resolve", map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[[]mapstyle.Directive](t, resp.Body), len(mapstyle.DefaultStyle()))
}

func TestDrawingFeaturesAndTiles(t *testing.T) {
	api, svc := setup(t)

	resp := api.Put("/api/v1/drawing/sketch", map[string]any{
		"name": "Sketch", "visible": true, "opacity": 100,
		"style": map[string]any{"zIndex": 0, "strokeColor": "#0000ff"},
	})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = api.Put("/api/v1/drawing/sketch/features", strings.NewReader(`{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "geometry": {"type": "Point", "coordinates": [10, 10]}, "properties": {"name": "a"}},
			{"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[0, 0], [20, 20]]}, "properties": {}}
		]
	}`))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "2 features saved")

	resp = api.Get("/api/v1/drawing/sketch/features")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/geo+json", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Body.String(), "LineString")

	resp = api.Get("/api/v1/vector/sketch/0/0/0.mvt")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "gzip", resp.Header().Get("Content-Encoding"))
	assert.NotEmpty(t, resp.Body.Bytes())

	resp = api.Get("/api/v1/vector/sketch/10/0/0")
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = api.Get("/api/v1/vector/sketch/1/5/0")
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = api.Put("/api/v1/drawing/sketch/features", strings.NewReader(`{"type": "nope"`))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = api.Delete("/api/v1/drawing/sketch")
	require.Equal(t, http.StatusOK, resp.Code)
	_, ok := svc.State.DrawingLayer("sketch")
	assert.False(t, ok)
	ids, err := svc.Features.LayerIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)

	resp = api.Get("/api/v1/drawing/sketch/features")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestInfo(t *testing.T) {
	api, _ := setup(t)
	resp := api.Get("/api/v1/info")
	require.Equal(t, http.StatusOK, resp.Code)
	info := decode[InfoBody](t, resp.Body)
	assert.Equal(t, "plat-viewer", info.Name)
	assert.True(t, info.FeatureStore)
	assert.Equal(t, 4, info.Layers)
	assert.Positive(t, info.Rendered)
}
