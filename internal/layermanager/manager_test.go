package layermanager

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-viewer/internal/layer"
	"github.com/joeblew999/plat-viewer/internal/mapstyle"
)

const capabilities = `<Capabilities xmlns:ows="http://www.opengis.net/ows/1.1"><Contents><Layer>
<ows:Identifier>tiles</ows:Identifier>
<TileMatrixSetLink><TileMatrixSet>EPSG:3857</TileMatrixSet></TileMatrixSetLink>
<ResourceURL resourceType="tile" format="image/png" template="https://t.example.com/{TileMatrix}/{TileCol}/{TileRow}.png"/>
</Layer></Contents></Capabilities>`

func wms(id string, opacity int) layer.Spec {
	return layer.Spec{ID: id, Kind: layer.KindImage, Visible: true, Opacity: opacity, URL: "https://example.com/wms", Layers: "l" + id}
}

func wmts(id string) layer.Spec {
	return layer.Spec{ID: id, Kind: layer.KindTiled, Visible: true, Opacity: 100, URL: "https://t.example.com/wmts", Layers: "tiles", Capabilities: capabilities}
}

func vector(id string) layer.Spec {
	return layer.Spec{ID: id, Kind: layer.KindVector, Visible: true, Opacity: 100}
}

func zIndex(t *testing.T, m *Manager, id string) int {
	t.Helper()
	for _, l := range m.Layers() {
		if l.ID == id {
			return l.ZIndex
		}
	}
	t.Fatalf("layer %q not found", id)
	return 0
}

// assertStacking checks that every group sits entirely above the one
// below it.
func assertStacking(t *testing.T, m *Manager) {
	t.Helper()
	maxZ := map[Group]int{}
	minZ := map[Group]int{}
	for _, l := range m.Layers() {
		if z, ok := maxZ[l.Group]; !ok || l.ZIndex > z {
			maxZ[l.Group] = l.ZIndex
		}
		if z, ok := minZ[l.Group]; !ok || l.ZIndex < z {
			minZ[l.Group] = l.ZIndex
		}
	}
	if _, ok := minZ[GroupBase]; ok {
		if bg, ok := maxZ[GroupBackground]; ok {
			assert.Greater(t, minZ[GroupBase], bg, "base above background")
		}
	}
	if _, ok := minZ[GroupVector]; ok {
		for _, g := range []Group{GroupBackground, GroupBase} {
			if z, ok := maxZ[g]; ok {
				assert.Greater(t, minZ[GroupVector], z, "vector above %s", g)
			}
		}
	}
}

func TestSetLayersFirstRendersOnTop(t *testing.T) {
	m := New()
	m.SetBackgroundLayers([]layer.Spec{wmts("bg")})
	m.SetLayers([]layer.Spec{wms("1", 100), wms("2", 50)})

	assert.Equal(t, 0, zIndex(t, m, "bg"))
	assert.Equal(t, 2, zIndex(t, m, "1"))
	assert.Equal(t, 1, zIndex(t, m, "2"))
	assertStacking(t, m)

	l, ok := m.GetLayer("2")
	require.True(t, ok)
	assert.Equal(t, 0.5, l.Opacity)
}

func TestSetLayersSameFingerprintIsNoop(t *testing.T) {
	m := New()
	m.SetLayers([]layer.Spec{wms("1", 100), wms("2", 50)})
	before := m.Mutations()
	require.Positive(t, before)

	// visibility and name do not take part in the fingerprint
	again := []layer.Spec{wms("1", 100), wms("2", 50)}
	again[0].Name = "renamed"
	again[1].Visible = false
	m.SetLayers(again)
	assert.Equal(t, before, m.Mutations())
	l, ok := m.GetLayer("2")
	require.True(t, ok)
	assert.True(t, l.Visible)

	// a real change updates survivors in place, visibility included
	changed := []layer.Spec{wms("1", 100), wms("2", 60)}
	changed[1].Visible = false
	m.SetLayers(changed)
	assert.Greater(t, m.Mutations(), before)
	l, ok = m.GetLayer("2")
	require.True(t, ok)
	assert.False(t, l.Visible)
	assert.Equal(t, 0.6, l.Opacity)
}

func TestSetLayersDiff(t *testing.T) {
	m := New()
	m.SetLayers([]layer.Spec{wms("1", 100), wms("2", 100), wms("3", 100)})
	m.SetLayers([]layer.Spec{wms("3", 40), wms("4", 100)})

	_, ok := m.GetLayer("1")
	assert.False(t, ok)
	_, ok = m.GetLayer("2")
	assert.False(t, ok)

	l, ok := m.GetLayer("3")
	require.True(t, ok)
	assert.Equal(t, 0.4, l.Opacity)
	assert.Equal(t, 1, l.ZIndex)
	assert.Equal(t, 0, zIndex(t, m, "4"))
}

func TestFilterUpdatedInPlaceForGeoServer(t *testing.T) {
	m := New()
	geo := wms("1", 100)
	geo.ServerType = layer.ServerGeoServer
	plain := wms("2", 100)
	m.SetLayers([]layer.Spec{geo, plain})

	geo.Filter = "name = 'x'"
	plain.Filter = "name = 'x'"
	m.SetLayers([]layer.Spec{geo, plain})

	l, _ := m.GetLayer("1")
	assert.Equal(t, "name = 'x'", l.Params["CQL_FILTER"])
	assert.Equal(t, "name = 'x'", layer.GetParamCaseInsensitive(l.URL, "CQL_FILTER"))
	l, _ = m.GetLayer("2")
	assert.NotContains(t, l.Params, "CQL_FILTER")

	geo.Filter = ""
	m.SetLayers([]layer.Spec{geo, plain})
	l, _ = m.GetLayer("1")
	assert.NotContains(t, l.Params, "CQL_FILTER")
}

func TestKindChangeRecreates(t *testing.T) {
	m := New()
	m.SetLayers([]layer.Spec{wms("1", 100)})
	tiled := wmts("1")
	tiled.Opacity = 90
	m.SetLayers([]layer.Spec{tiled})

	l, ok := m.GetLayer("1")
	require.True(t, ok)
	assert.Equal(t, layer.KindTiled, l.Kind)
	assert.Equal(t, []string{"https://t.example.com/{TileMatrix}/{TileCol}/{TileRow}.png"}, l.TileURLs)
	assert.Len(t, m.Layers(), 1)
}

func TestUnrenderableLayersAreSkipped(t *testing.T) {
	m := New()
	broken := wmts("1")
	broken.Capabilities = "not xml"
	m.SetLayers([]layer.Spec{broken, wms("2", 100)})

	_, ok := m.GetLayer("1")
	assert.False(t, ok)
	_, ok = m.AddLayer(broken)
	assert.False(t, ok)
	assert.Len(t, m.Layers(), 1)
}

func TestZIndexHint(t *testing.T) {
	m := New()
	m.SetBackgroundLayers([]layer.Spec{wmts("bg1"), wmts("bg2")})
	hinted := wms("1", 100)
	hint := 7
	hinted.ZIndexHint = &hint
	negative := wms("2", 100)
	neg := -3
	negative.ZIndexHint = &neg
	m.SetLayers([]layer.Spec{hinted, negative})

	assert.Equal(t, 9, zIndex(t, m, "1"))
	assert.Equal(t, 2, zIndex(t, m, "2"))
	assertStacking(t, m)
}

func TestVectorLayersStayOnTop(t *testing.T) {
	m := New()
	_, ok := m.AddLayer(vector("draw"))
	require.True(t, ok)
	m.SetLayers([]layer.Spec{wms("1", 100), wms("2", 100)})
	assertStacking(t, m)

	m.SetBackgroundLayers([]layer.Spec{wmts("a"), wmts("b"), wmts("c")})
	assertStacking(t, m)

	_, ok = m.AddLayer(wms("3", 100))
	require.True(t, ok)
	assertStacking(t, m)
	assert.Greater(t, zIndex(t, m, "3"), zIndex(t, m, "1"))

	hint := 50
	top := wms("4", 100)
	top.ZIndexHint = &hint
	m.AddLayer(top)
	assertStacking(t, m)

	m.AddLayer(vector("draw2"))
	assertStacking(t, m)
	assert.Greater(t, zIndex(t, m, "draw2"), zIndex(t, m, "draw"))

	// SetLayers does not drop caller-owned vector layers
	m.SetLayers([]layer.Spec{wms("1", 100)})
	_, ok = m.GetLayer("draw")
	assert.True(t, ok)
	assertStacking(t, m)
}

func TestVectorSpecsInSetLayers(t *testing.T) {
	m := New()
	m.SetLayers([]layer.Spec{vector("v1"), wms("1", 100)})
	l, ok := m.GetLayer("v1")
	require.True(t, ok)
	assert.Equal(t, GroupVector, l.Group)
	assertStacking(t, m)

	m.SetLayers([]layer.Spec{wms("1", 100)})
	_, ok = m.GetLayer("v1")
	assert.False(t, ok)
}

func TestRemoveLayerIsIdempotent(t *testing.T) {
	m := New()
	m.SetLayers([]layer.Spec{wms("1", 100)})
	m.AddLayer(vector("v"))
	m.RemoveLayer("1")
	m.RemoveLayer("1")
	m.RemoveLayers([]string{"v", "missing"})
	assert.Empty(t, m.Layers())
}

func TestVisibilityAndOpacity(t *testing.T) {
	m := New()
	m.SetLayers([]layer.Spec{wms("1", 100)})
	before := m.Mutations()

	m.SetLayerVisibility("1", true)
	assert.Equal(t, before, m.Mutations())
	m.SetLayerVisibility("1", false)
	m.SetLayerOpacity("1", 25)
	m.SetLayerOpacity("missing", 25)

	l, _ := m.GetLayer("1")
	assert.False(t, l.Visible)
	assert.Equal(t, 0.25, l.Opacity)
	assert.Equal(t, before+2, m.Mutations())
}

func TestSetLayerOrder(t *testing.T) {
	m := New()
	m.SetBackgroundLayers([]layer.Spec{wmts("bg")})
	m.SetLayers([]layer.Spec{wms("1", 100), wms("2", 100), wms("3", 100)})
	m.SetLayerOrder([]string{"1", "missing", "3", "2"})

	assert.Equal(t, 1, zIndex(t, m, "1"))
	assert.Equal(t, 2, zIndex(t, m, "3"))
	assert.Equal(t, 3, zIndex(t, m, "2"))
	assertStacking(t, m)
}

func TestRefreshLayerUsesMonotonicTimestamps(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	m := New(WithClock(func() time.Time { return now }))
	m.SetLayers([]layer.Spec{wms("img", 100), wmts("tiled"), vector("v")})

	m.RefreshLayer("tiled")
	first, _ := m.GetLayer("tiled")
	m.RefreshLayer("tiled")
	second, _ := m.GetLayer("tiled")
	require.Len(t, second.TileURLs, 1)
	assert.Equal(t, "1700000000000", layer.GetParamCaseInsensitive(first.TileURLs[0], "CACHE"))
	assert.Equal(t, "1700000000001", layer.GetParamCaseInsensitive(second.TileURLs[0], "CACHE"))
	assert.Contains(t, second.TileURLs[0], "{TileMatrix}")

	m.RefreshLayer("img")
	img, _ := m.GetLayer("img")
	assert.Equal(t, "1700000000002", img.Params["CACHE"])

	before := m.Mutations()
	m.RefreshLayer("v")
	m.RefreshLayer("missing")
	assert.Equal(t, before, m.Mutations())
}

func TestGetLegendURL(t *testing.T) {
	m := New()
	m.SetLayers([]layer.Spec{wms("1", 100), wmts("2")})
	u := m.GetLegendURL("1")
	assert.True(t, layer.IsGetLegendGraphicRequest(u))
	assert.Equal(t, "l1", layer.GetParamCaseInsensitive(u, "LAYER"))
	assert.Equal(t, "1.1.0", layer.GetParamCaseInsensitive(u, "SLD_VERSION"))
	assert.Equal(t, "", m.GetLegendURL("2"))
	assert.Equal(t, "", m.GetLegendURL("missing"))
}

func TestVectorFeaturesAndStyle(t *testing.T) {
	m := New()
	m.AddLayer(vector("v"))
	f := []mapstyle.Feature{{ID: "a", Geometry: orb.Point{1, 2}}}
	assert.True(t, m.SetVectorFeatures("v", f))
	assert.False(t, m.SetVectorFeatures("missing", f))

	got, ok := m.VectorFeatures("v")
	require.True(t, ok)
	assert.Equal(t, f, got)
	l, _ := m.GetLayer("v")
	assert.Equal(t, 1, l.Features)

	assert.True(t, m.VectorStyle("v").IsZero())
	m.SetVectorStyle("v", mapstyle.Static(mapstyle.Descriptor{StrokeColor: "#000000"}))
	assert.False(t, m.VectorStyle("v").IsZero())
}

func TestDestroyIsIdempotent(t *testing.T) {
	m := New()
	m.SetBackgroundLayers([]layer.Spec{wmts("bg")})
	m.SetLayers([]layer.Spec{wms("1", 100)})
	m.AddLayer(vector("v"))

	m.Destroy()
	m.Destroy()
	assert.Empty(t, m.Layers())

	// a destroyed manager accepts the same snapshot again
	m.SetLayers([]layer.Spec{wms("1", 100)})
	assert.Len(t, m.Layers(), 1)
}
