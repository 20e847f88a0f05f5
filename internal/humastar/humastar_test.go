package humastar

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{2, 3}, Paginate(items, 1, 2).Data)
	assert.Equal(t, []int{5}, Paginate(items, 4, 2).Data)
	assert.Equal(t, 5, Paginate(items, 4, 2).Total)
	assert.NotNil(t, Paginate(items, 9, 2).Data)
	assert.Empty(t, Paginate(items, 9, 2).Data)
}

func TestPaginationLinks(t *testing.T) {
	u, err := url.Parse("/items?q=x")
	require.NoError(t, err)

	p := PageBody[int]{Total: 25, Offset: 10, Limit: 10}
	assert.Equal(t, []string{
		`</items?limit=10&offset=0&q=x>; rel="first"`,
		`</items?limit=10&offset=0&q=x>; rel="prev"`,
		`</items?limit=10&offset=20&q=x>; rel="next"`,
		`</items?limit=10&offset=20&q=x>; rel="last"`,
	}, p.PaginationLinks(u))

	empty := PageBody[int]{Limit: 10}
	assert.Equal(t, []string{
		`</items?limit=10&offset=0&q=x>; rel="first"`,
		`</items?limit=10&offset=0&q=x>; rel="last"`,
	}, empty.PaginationLinks(u))

	assert.Nil(t, PageBody[int]{}.PaginationLinks(u))
}

func TestActionsFor(t *testing.T) {
	actions := ActionsFor("7", []ActionDef{
		{Rel: "refresh", Pattern: "/api/v1/layers/%s/refresh", Method: "POST", Title: "Reload"},
	})
	require.Len(t, actions, 1)
	assert.Equal(t, `</api/v1/layers/7/refresh>; rel="refresh"; method="POST"; title="Reload"`, actions[0].LinkHeader())
}

func TestDecodeSignals(t *testing.T) {
	type form struct {
		Node    string `json:"node"`
		Opacity int    `json:"opacity"`
	}
	v, err := DecodeSignals[form](&SignalsInput{RawBody: []byte(`{"node":"l1","opacity":40,"other":true}`)})
	require.NoError(t, err)
	assert.Equal(t, form{Node: "l1", Opacity: 40}, v)

	_, err = DecodeSignals[form](&SignalsInput{RawBody: []byte("{")})
	var se huma.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.GetStatus())
}

type thing struct {
	ID string `json:"id"`
}

func TestLinkSet(t *testing.T) {
	links := LinkSet{}
	config := huma.DefaultConfig("test", "1.0.0")
	config.Transformers = append(config.Transformers, links.Transformer())
	_, api := humatest.New(t, config)

	tagged := huma.OperationTags("things")
	huma.Get(api, "/health", func(ctx context.Context, _ *struct{}) (*struct{ Body thing }, error) {
		return &struct{ Body thing }{}, nil
	}, huma.OperationTags("health"))
	huma.Get(api, "/things", func(ctx context.Context, _ *struct{}) (*struct{ Body []thing }, error) {
		return &struct{ Body []thing }{Body: []thing{}}, nil
	}, tagged)
	huma.Get(api, "/things/{id}", func(ctx context.Context, in *struct {
		ID string `path:"id"`
	}) (*struct{ Body thing }, error) {
		return &struct{ Body thing }{Body: thing{ID: in.ID}}, nil
	}, tagged)
	huma.Get(api, "/events", func(ctx context.Context, _ *struct{}) (*struct{ Body thing }, error) {
		return &struct{ Body thing }{}, nil
	}, huma.OperationTags("viewer"))
	links.Build(api)

	assert.Contains(t, links.Root(), `</things>; rel="things"`)
	assert.NotContains(t, links.Root(), `</events>; rel="events"`)

	resp := api.Get("/things/a")
	require.Equal(t, http.StatusOK, resp.Code)
	got := resp.Result().Header.Values("Link")
	assert.Contains(t, got, `</things>; rel="collection"`)
	assert.Contains(t, got, `</things/a>; rel="self"`)

	resp = api.Get("/things")
	assert.Contains(t, resp.Result().Header.Values("Link"), `</things/{id}>; rel="item"`)
}

func TestParseLinkHeader(t *testing.T) {
	rel, href := parseLinkHeader(`</a/b>; rel="up"`)
	assert.Equal(t, "up", rel)
	assert.Equal(t, "/a/b", href)

	rel, _ = parseLinkHeader("/nothing")
	assert.Empty(t, rel)
}
