package humastar

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// EntryPoint is the operation that links to every collection.
const EntryPoint = "/health"

// LinkSet holds RFC 8288 Link header values keyed by operation path.
//
// Create it before the API so its Transformer can go into the huma config,
// then call Build once every route is registered.
type LinkSet map[string][]string

// Build walks the OpenAPI spec and generates hypermedia links between
// collections, items and the entry point. Operations tagged "viewer" are
// Datastar endpoints and are left out.
func (ls LinkSet) Build(api huma.API) {
	oapi := api.OpenAPI()
	clear(ls)

	var collections, items []string
	tags := map[string][]string{}
	for p, pi := range oapi.Paths {
		t := primaryTags(pi)
		if slices.Contains(t, "viewer") {
			continue
		}
		tags[p] = t
		if strings.Contains(p, "{") {
			items = append(items, p)
		} else {
			collections = append(collections, p)
		}
	}
	// map iteration order is random; keep headers stable
	slices.Sort(collections)
	slices.Sort(items)

	for _, item := range items {
		parent := path.Dir(item)
		if _, ok := oapi.Paths[parent]; ok {
			ls.add(item, parent, "collection")
			ls.add(item, parent, "up")
		}
		pi := oapi.Paths[item]
		if pi.Put != nil || pi.Patch != nil {
			ls.add(item, item, "edit")
		}
	}

	for _, coll := range collections {
		for _, item := range items {
			if path.Dir(item) == coll {
				ls.add(coll, item, "item")
			}
		}
		if oapi.Paths[coll].Post != nil {
			ls.add(coll, coll, "create-form")
		}
		if coll != EntryPoint {
			ls.add(coll, EntryPoint, "up")
			ls.add(EntryPoint, coll, lastSegment(coll))
		}
		for _, other := range collections {
			if other != coll && sharedTag(tags[coll], tags[other]) {
				ls.add(coll, other, lastSegment(other))
			}
		}
	}

	ls.add(EntryPoint, "/openapi.json", "describedby")
	ls.add(EntryPoint, "/openapi.json", "service-desc")
	ls.add(EntryPoint, "/docs", "service-doc")

	for _, p := range append(collections, items...) {
		if ref := responseSchemaRef(oapi.Paths[p]); ref != "" {
			ls.add(p, "/openapi.json#/components/schemas/"+ref, "describedby")
		}
	}

	for p, pi := range oapi.Paths {
		headers, ok := ls[p]
		if !ok {
			continue
		}
		for _, op := range operationsOf(pi) {
			if op != nil {
				injectResponseLinks(op, headers)
			}
		}
	}
}

// Transformer returns a Huma Transformer that adds the generated links, a
// self link for item paths, pagination links from Pager bodies and action
// links from Actor bodies.
func (ls LinkSet) Transformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}
		for _, link := range ls[op.Path] {
			ctx.AppendHeader("Link", link)
		}
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}
		if p, ok := v.(Pager); ok {
			u := ctx.URL()
			for _, link := range p.PaginationLinks(&u) {
				ctx.AppendHeader("Link", link)
			}
		}
		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}
		return v, nil
	}
}

// Root returns the entry point links, for non-Huma handlers such as "/".
func (ls LinkSet) Root() []string {
	return ls[EntryPoint]
}

func (ls LinkSet) add(from, to, rel string) {
	val := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
	if !slices.Contains(ls[from], val) {
		ls[from] = append(ls[from], val)
	}
}

func primaryTags(pi *huma.PathItem) []string {
	for _, op := range operationsOf(pi) {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func operationsOf(pi *huma.PathItem) []*huma.Operation {
	return []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete}
}

func sharedTag(a, b []string) bool {
	for _, t := range a {
		if slices.Contains(b, t) {
			return true
		}
	}
	return false
}

func lastSegment(p string) string {
	return path.Base(strings.TrimRight(p, "/"))
}

// injectResponseLinks documents the links on the operation's success
// response.
func injectResponseLinks(op *huma.Operation, headers []string) {
	var resp *huma.Response
	for code, r := range op.Responses {
		if strings.HasPrefix(code, "2") {
			resp = r
			break
		}
	}
	if resp == nil {
		return
	}
	if resp.Links == nil {
		resp.Links = map[string]*huma.Link{}
	}
	for _, h := range headers {
		rel, href := parseLinkHeader(h)
		if rel == "" {
			continue
		}
		resp.Links[rel] = &huma.Link{
			OperationRef: href,
			Description:  "Related: " + rel,
		}
	}
}

func responseSchemaRef(pi *huma.PathItem) string {
	if pi.Get == nil {
		return ""
	}
	for code, resp := range pi.Get.Responses {
		if !strings.HasPrefix(code, "2") {
			continue
		}
		for _, mt := range resp.Content {
			if mt.Schema != nil && mt.Schema.Ref != "" {
				return path.Base(mt.Schema.Ref)
			}
		}
	}
	return ""
}

// parseLinkHeader splits `<url>; rel="name"`.
func parseLinkHeader(h string) (rel, href string) {
	target, params, ok := strings.Cut(h, ";")
	if !ok {
		return "", ""
	}
	href = strings.Trim(strings.TrimSpace(target), "<>")
	params = strings.TrimSpace(params)
	if v, ok := strings.CutPrefix(params, "rel="); ok {
		rel = strings.Trim(v, `"`)
	}
	return rel, href
}
