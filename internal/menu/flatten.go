package menu

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/dgnsrekt/sitedoc/internal/types"
)

// Separator joins the labels of nested menu levels.
const Separator = " > "

// Flatten walks nodes depth-first, left to right, and returns one entry per
// node that carries a link. Branch labels accumulate as "a > b > c". A node
// with both a link and children emits itself before its children.
func Flatten(nodes []Node, baseURL string) []types.PageEntry {
	var out []types.PageEntry
	flattenInto(&out, nodes, baseURL, "")
	return out
}

func flattenInto(out *[]types.PageEntry, nodes []Node, baseURL, parent string) {
	for _, n := range nodes {
		if n.IsText() {
			*out = append(*out, types.PageEntry{Name: n.Text, URL: ResolveURL(baseURL, n.Text)})
			continue
		}

		name := n.Label()
		if parent != "" {
			name = parent + Separator + name
		}
		link := n.Link()
		if link == "" && len(n.Children) == 0 {
			slog.Warn("menu entry has neither a link nor children, skipping", "name", name)
			continue
		}
		if link != "" {
			*out = append(*out, types.PageEntry{Name: name, URL: ResolveURL(baseURL, link)})
		}
		if len(n.Children) > 0 {
			flattenInto(out, n.Children, baseURL, name)
		}
	}
}

// ResolveURL returns ref unchanged when it starts with "http" and otherwise
// resolves it against base. Unparseable input is returned as is.
func ResolveURL(base, ref string) string {
	if strings.HasPrefix(ref, "http") {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		slog.Warn("menu base url invalid", "base_url", base, "error", err)
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		slog.Warn("menu link invalid", "url", ref, "error", err)
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
