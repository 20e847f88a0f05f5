package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct {
	ID       string
	Label    string
	Type     string
	Layer    *struct{ ID int }
	Checked  bool
	Expanded bool
	Children []node
}

func TestDefaultRendersTOC(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	html, err := r.Render("toc", []node{{
		ID: "g", Label: "Group", Type: "level", Expanded: true,
		Children: []node{{ID: "l1", Label: "Roads", Type: "layer", Checked: true, Layer: &struct{ ID int }{ID: 1}}},
	}})
	require.NoError(t, err)
	assert.Contains(t, html, `id="toc-g"`)
	assert.Contains(t, html, "Roads")
	assert.Contains(t, html, "checked")
	assert.Contains(t, html, "/api/v1/viewer/layers/1/toggle")
}

func TestCollapsedGroupHidesChildren(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	html, err := r.Render("toc-node", node{ID: "g", Label: "Group", Type: "level",
		Children: []node{{ID: "l1", Label: "Roads", Type: "layer"}}})
	require.NoError(t, err)
	assert.NotContains(t, html, "Roads")
}

func TestRenderLayerPercent(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)
	html, err := r.Render("render-layer", map[string]any{
		"ID": "1", "Group": "base", "ZIndex": 3, "Kind": "image-service", "Opacity": 0.4, "Visible": false,
	})
	require.NoError(t, err)
	assert.Contains(t, html, "40%")
	assert.Contains(t, html, "hidden")

	_, err = r.Render("missing", nil)
	assert.Error(t, err)
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.html"),
		[]byte(`{{define "empty-state"}}custom {{.Title}}{{end}}`), 0o644))

	r, err := New(dir)
	require.NoError(t, err)
	html, err := r.Render("empty-state", map[string]string{"Title": "x"})
	require.NoError(t, err)
	assert.Equal(t, "custom x", html)

	_, err = r.Render("toc", nil)
	assert.NoError(t, err, "built-in fragments stay available")

	_, err = New(t.TempDir())
	assert.Error(t, err)
}
