package humastar

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Action is a link to an operation that applies to a resource, written as
//
//	<href>; rel="refresh"; method="POST"; title="Reload"
type Action struct {
	Rel    string
	Href   string
	Method string
	Title  string
}

// Actor is implemented by response bodies that advertise actions.
type Actor interface {
	Actions() []Action
}

// LinkHeader formats the action as a Link header value.
func (a Action) LinkHeader() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<%s>; rel=%q`, a.Href, a.Rel)
	if a.Method != "" {
		fmt.Fprintf(&b, `; method=%q`, a.Method)
	}
	if a.Title != "" {
		fmt.Fprintf(&b, `; title=%q`, a.Title)
	}
	return b.String()
}

// ActionDef is an action template; Pattern holds one %s for the resource id.
type ActionDef struct {
	Rel     string
	Pattern string
	Method  string
	Title   string
}

// ActionsFor instantiates defs for one resource.
func ActionsFor(id string, defs []ActionDef) []Action {
	out := make([]Action, len(defs))
	for i, d := range defs {
		out[i] = Action{Rel: d.Rel, Href: fmt.Sprintf(d.Pattern, id), Method: d.Method, Title: d.Title}
	}
	return out
}

// Pager is implemented by paged response bodies.
type Pager interface {
	PaginationLinks(u *url.URL) []string
}

// PageBody is one page of a collection.
type PageBody[T any] struct {
	Total  int `json:"total" doc:"Total number of items"`
	Offset int `json:"offset" doc:"Index of the first item"`
	Limit  int `json:"limit" doc:"Page size"`
	Data   []T `json:"data" doc:"Items"`
}

// Paginate cuts the page starting at offset out of items. Data is never nil.
func Paginate[T any](items []T, offset, limit int) PageBody[T] {
	p := PageBody[T]{Total: len(items), Offset: offset, Limit: limit, Data: []T{}}
	if offset < len(items) && limit > 0 {
		p.Data = items[offset:min(offset+limit, len(items))]
	}
	return p
}

// PaginationLinks returns first, prev, next and last links. Other query
// parameters of u are kept.
func (p PageBody[T]) PaginationLinks(u *url.URL) []string {
	if p.Limit <= 0 {
		return nil
	}
	link := func(offset int, rel string) string {
		q := u.Query()
		q.Set("offset", strconv.Itoa(offset))
		q.Set("limit", strconv.Itoa(p.Limit))
		return fmt.Sprintf(`<%s?%s>; rel=%q`, u.Path, q.Encode(), rel)
	}

	links := []string{link(0, "first")}
	if p.Offset > 0 {
		links = append(links, link(max(p.Offset-p.Limit, 0), "prev"))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, link(p.Offset+p.Limit, "next"))
	}
	last := max((p.Total-1)/p.Limit*p.Limit, 0)
	return append(links, link(last, "last"))
}
