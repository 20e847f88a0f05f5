package viewer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-viewer/internal/db"
	"github.com/joeblew999/plat-viewer/internal/layer"
	"github.com/joeblew999/plat-viewer/internal/layermanager"
	"github.com/joeblew999/plat-viewer/internal/layertree"
	"github.com/joeblew999/plat-viewer/internal/mapstyle"
	"github.com/joeblew999/plat-viewer/internal/service"
)

func intPtr(v int) *int { return &v }

func demoState() service.AppState {
	return service.AppState{
		Services: []layer.Service{
			{ID: "wms", Protocol: layer.ProtocolWMS, URL: "https://example.com/wms", ServerType: layer.ServerGeoServer},
		},
		Layers: []layer.AppLayer{
			{ID: 1, LayerName: "roads", Visible: true, Opacity: 100, ServiceID: "wms"},
			{ID: 2, LayerName: "rivers", Visible: true, Opacity: 100, ServiceID: "wms"},
			{ID: 3, LayerName: "orphan", Visible: true, Opacity: 100, ServiceID: "missing"},
			{ID: 10, LayerName: "streets", Visible: false, Opacity: 100, ServiceID: "wms"},
			{ID: 11, LayerName: "aerial", Visible: false, Opacity: 100, ServiceID: "wms"},
		},
		LayerTree: []layertree.Node{
			{ID: "root", Root: true, ChildrenIDs: []string{"l1", "l2", "l3"}},
			{ID: "l1", AppLayerID: intPtr(1)},
			{ID: "l2", AppLayerID: intPtr(2)},
			{ID: "l3", AppLayerID: intPtr(3)},
		},
		BackgroundTree: []layertree.Node{
			{ID: "bg", Root: true, ChildrenIDs: []string{"streets", "aerial"}},
			{ID: "streets", AppLayerID: intPtr(10)},
			{ID: "aerial", AppLayerID: intPtr(11)},
		},
	}
}

func newTestSession(t *testing.T) (*Session, *service.AppStateService) {
	t.Helper()
	state := service.NewAppStateService(t.TempDir(), nil)
	require.NoError(t, state.Replace(demoState()))
	return New(state, nil, layermanager.New(), nil, nil), state
}

func zIndex(t *testing.T, m *layermanager.Manager, id string) int {
	t.Helper()
	l, ok := m.GetLayer(id)
	require.True(t, ok, "layer %s", id)
	return l.ZIndex
}

func TestApplyRendersLaterTreeLayersOnTop(t *testing.T) {
	s, state := newTestSession(t)
	require.NoError(t, s.Apply(context.Background(), state.Snapshot()))

	m := s.Manager()
	assert.Greater(t, zIndex(t, m, "2"), zIndex(t, m, "1"))
	_, ok := m.GetLayer("3")
	assert.False(t, ok, "layer without service is not rendered")
}

func TestApplyBackgroundSelection(t *testing.T) {
	s, state := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.Apply(ctx, state.Snapshot()))

	background := func() []layermanager.Layer {
		var out []layermanager.Layer
		for _, l := range s.Manager().Layers() {
			if l.Group == layermanager.GroupBackground {
				out = append(out, l)
			}
		}
		return out
	}

	bg := background()
	require.Len(t, bg, 1)
	assert.Equal(t, "10", bg[0].ID)
	assert.True(t, bg[0].Visible)
	assert.Less(t, bg[0].ZIndex, zIndex(t, s.Manager(), "1"))

	require.NoError(t, state.SelectBackground("aerial"))
	require.NoError(t, s.Apply(ctx, state.Snapshot()))
	bg = background()
	require.Len(t, bg, 1)
	assert.Equal(t, "11", bg[0].ID)
}

func TestApplyVisibilityAndFilter(t *testing.T) {
	s, state := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.Apply(ctx, state.Snapshot()))

	require.NoError(t, state.SetLayerVisibility(1, false))
	require.NoError(t, state.SetFilter(2, "kind = 'river'"))
	require.NoError(t, s.Apply(ctx, state.Snapshot()))

	l1, _ := s.Manager().GetLayer("1")
	assert.False(t, l1.Visible)
	l2, _ := s.Manager().GetLayer("2")
	assert.Equal(t, "kind = 'river'", l2.Params["CQL_FILTER"])
}

func TestApplyLoadedLayerWithoutOpacityIsOpaque(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
services:
  - id: wms
    protocol: wms
    url: https://example.com/wms
layers:
  - id: 1
    layerName: roads
    visible: true
    serviceId: wms
layerTree:
  - id: root
    root: true
    childrenIds: [l1]
  - id: l1
    appLayerId: 1
`), 0644))

	state := service.NewAppStateService(t.TempDir(), nil)
	require.NoError(t, state.LoadYAML(path))
	s := New(state, nil, layermanager.New(), nil, nil)
	require.NoError(t, s.Apply(context.Background(), state.Snapshot()))

	l, ok := s.Manager().GetLayer("1")
	require.True(t, ok)
	assert.Equal(t, 1.0, l.Opacity)
	assert.True(t, l.Visible)
}

func TestApplyIsIdempotent(t *testing.T) {
	s, state := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.Apply(ctx, state.Snapshot()))
	before := s.Manager().Mutations()

	require.NoError(t, s.Apply(ctx, state.Snapshot()))
	assert.Equal(t, before, s.Manager().Mutations())
}

func TestApplyDrawingLayers(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(db.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	store, err := service.NewFeatureStore(ctx, conn)
	require.NoError(t, err)

	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{1, 1}))
	fc.Append(geojson.NewFeature(orb.LineString{{0, 0}, {1, 1}}))
	require.NoError(t, store.Save(ctx, "sketch", fc))

	state := service.NewAppStateService(t.TempDir(), nil)
	require.NoError(t, state.Replace(demoState()))
	_, err = state.UpsertDrawingLayer(service.DrawingLayer{
		ID: "sketch", Name: "Sketch", Visible: true, Opacity: 100,
		Style: mapstyle.Descriptor{StrokeColor: "#0000ff"},
	})
	require.NoError(t, err)

	s := New(state, store, layermanager.New(), nil, nil)
	require.NoError(t, s.Apply(ctx, state.Snapshot()))

	l, ok := s.Manager().GetLayer("sketch")
	require.True(t, ok)
	assert.Equal(t, layermanager.GroupVector, l.Group)
	assert.Equal(t, 2, l.Features)
	assert.Greater(t, l.ZIndex, zIndex(t, s.Manager(), "2"))
	assert.False(t, s.Manager().VectorStyle("sketch").IsZero())

	require.NoError(t, state.RemoveDrawingLayer("sketch"))
	require.NoError(t, s.Apply(ctx, state.Snapshot()))
	_, ok = s.Manager().GetLayer("sketch")
	assert.False(t, ok)
}

func TestRunAppliesStateChanges(t *testing.T) {
	s, state := newTestSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	applied := s.Applied().Subscribe()
	defer s.Applied().Unsubscribe(applied)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitApplied := func() {
		t.Helper()
		select {
		case <-applied:
		case <-time.After(5 * time.Second):
			t.Fatal("snapshot not applied")
		}
	}
	waitApplied()

	require.NoError(t, state.MoveNode(service.TreeLayers, "l2", "l1", layertree.Before))
	require.Eventually(t, func() bool {
		a, okA := s.Manager().GetLayer("1")
		b, okB := s.Manager().GetLayer("2")
		return okA && okB && a.ZIndex > b.ZIndex
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRunAppliesEveryCommitInOrder(t *testing.T) {
	s, state := newTestSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	applied := s.Applied().Subscribe()
	defer s.Applied().Unsubscribe(applied)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitApplied := func() {
		t.Helper()
		select {
		case <-applied:
		case <-time.After(5 * time.Second):
			t.Fatal("snapshot not applied")
		}
	}
	waitApplied()
	before := s.Manager().Mutations()

	// hold the session while the commits queue up behind it
	s.mu.Lock()
	for _, o := range []int{30, 60, 90} {
		require.NoError(t, state.SetLayerOpacity(1, o))
	}
	s.mu.Unlock()

	for range 3 {
		waitApplied()
	}
	assert.Equal(t, before+3, s.Manager().Mutations())
	l, ok := s.Manager().GetLayer("1")
	require.True(t, ok)
	assert.Equal(t, 0.9, l.Opacity)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
