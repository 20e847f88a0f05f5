package layer

import (
	"net/url"
	"sort"
	"strings"
)

// OGC URL helpers.
//
// Service URLs may carry WMTS template placeholders such as {TileMatrix},
// which net/url would escape on re-encoding. The helpers below therefore
// edit the query string as text and only use net/url to validate input and
// escape values. Any URL that cannot be handled is returned unchanged.

var ogcParams = []string{"SERVICE", "REQUEST", "VERSION"}

// FilterOGCParams removes SERVICE, REQUEST and VERSION parameters so a
// configured service URL can be reused for other request types.
func FilterOGCParams(u string) string {
	if !valid(u) {
		return u
	}
	for _, p := range ogcParams {
		u = DeleteParam(u, p)
	}
	return u
}

// SetParam replaces every occurrence of key, matched case-insensitively,
// with a single key=value pair appended to the query.
func SetParam(u, key, value string) string {
	if !valid(u) {
		return u
	}
	u = DeleteParam(u, key)
	base, query, frag := splitURL(u)
	pair := url.QueryEscape(key) + "=" + url.QueryEscape(value)
	if query == "" {
		query = pair
	} else {
		query += "&" + pair
	}
	return joinURL(base, query, frag)
}

// DeleteParam removes key, matched case-insensitively, from the query.
func DeleteParam(u, key string) string {
	base, query, frag := splitURL(u)
	if query == "" {
		return u
	}
	parts := strings.Split(query, "&")
	kept := parts[:0]
	for _, p := range parts {
		if p == "" {
			continue
		}
		name, _, _ := strings.Cut(p, "=")
		if n, err := url.QueryUnescape(name); err == nil {
			name = n
		}
		if strings.EqualFold(name, key) {
			continue
		}
		kept = append(kept, p)
	}
	return joinURL(base, strings.Join(kept, "&"), frag)
}

// GetParamCaseInsensitive returns the first value of key, or "".
func GetParamCaseInsensitive(u, key string) string {
	_, query, _ := splitURL(u)
	for _, p := range strings.Split(query, "&") {
		name, value, _ := strings.Cut(p, "=")
		if n, err := url.QueryUnescape(name); err == nil {
			name = n
		}
		if !strings.EqualFold(name, key) {
			continue
		}
		if v, err := url.QueryUnescape(value); err == nil {
			return v
		}
		return value
	}
	return ""
}

// LegendGraphicURL builds a WMS GetLegendGraphic request for a layer.
// Extra parameters are added in key order.
func LegendGraphicURL(serviceURL, layerName string, extra map[string]string) string {
	if !valid(serviceURL) || serviceURL == "" || layerName == "" {
		return ""
	}
	u := FilterOGCParams(serviceURL)
	for _, kv := range [][2]string{
		{"SERVICE", "WMS"},
		{"VERSION", "1.3.0"},
		{"REQUEST", "GetLegendGraphic"},
		{"FORMAT", "image/png"},
		{"LAYER", layerName},
	} {
		u = SetParam(u, kv[0], kv[1])
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		u = SetParam(u, k, extra[k])
	}
	return u
}

// IsGetLegendGraphicRequest reports whether u is a GetLegendGraphic call.
func IsGetLegendGraphicRequest(u string) bool {
	return strings.EqualFold(GetParamCaseInsensitive(u, "REQUEST"), "GetLegendGraphic")
}

// GeoServerLegendOptions are vendor options for GeoServer legends.
type GeoServerLegendOptions map[string]string

// AddGeoServerLegendOptions sets LEGEND_OPTIONS from opts, formatted as
// key:value pairs separated by semicolons in key order.
func AddGeoServerLegendOptions(u string, opts GeoServerLegendOptions) string {
	if len(opts) == 0 || !valid(u) {
		return u
	}
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + ":" + opts[k]
	}
	return SetParam(u, "LEGEND_OPTIONS", strings.Join(pairs, ";"))
}

// valid reports whether u parses as a URL once template braces are
// removed.
func valid(u string) bool {
	_, err := url.Parse(strings.NewReplacer("{", "", "}", "").Replace(u))
	return err == nil
}

func splitURL(u string) (base, query, frag string) {
	base, frag, _ = strings.Cut(u, "#")
	base, query, _ = strings.Cut(base, "?")
	return base, query, frag
}

func joinURL(base, query, frag string) string {
	u := base
	if query != "" {
		u += "?" + query
	}
	if frag != "" {
		u += "#" + frag
	}
	return u
}
