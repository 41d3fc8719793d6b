package menu

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dgnsrekt/sitedoc/internal/types"
)

// DOMSource loads a page and returns its rendered HTML.
type DOMSource interface {
	DocumentHTML(ctx context.Context, pageURL string) (string, error)
}

// Scrape loads startURL through src and extracts the links matching
// menuSelector in document order. When containerSelector is set the search
// is limited to the first matching container. Failures are logged and give
// an empty result.
func Scrape(ctx context.Context, src DOMSource, startURL, menuSelector, containerSelector string) []types.PageEntry {
	html, err := src.DocumentHTML(ctx, startURL)
	if err != nil {
		slog.Error("menu scrape failed", "url", startURL, "error", err)
		return nil
	}
	entries, err := ExtractLinks(html, startURL, menuSelector, containerSelector)
	if err != nil {
		slog.Error("menu scrape failed", "url", startURL, "error", err)
		return nil
	}
	slog.Info("menu scraped", "url", startURL, "selector", menuSelector, "pages", len(entries))
	return entries
}

// ExtractLinks parses html and returns the menu entries it contains.
func ExtractLinks(html, startURL, menuSelector, containerSelector string) ([]types.PageEntry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var items *goquery.Selection
	if containerSelector != "" {
		container := doc.Find(containerSelector).First()
		if container.Length() == 0 {
			slog.Warn("menu container not found", "selector", containerSelector)
			return nil, nil
		}
		items = container.Find(menuSelector)
	} else {
		items = doc.Find(menuSelector)
	}

	var out []types.PageEntry
	items.Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || !isMenuHref(href) {
			return
		}

		link := startURL + href
		if !strings.HasPrefix(href, "#") {
			link = ResolveURL(startURL, href)
		}

		name := strings.Join(strings.Fields(visibleText(s)), " ")
		if name == "" {
			name = strings.TrimSpace(s.AttrOr("title", ""))
		}
		if name == "" {
			name = link
		}
		out = append(out, types.PageEntry{Name: name, URL: link})
	})
	return out, nil
}

// hiddenSelector matches markup whose text never renders.
const hiddenSelector = `script, style, noscript, template, [hidden], [aria-hidden="true"]`

// visibleText returns the text of s without script, style and explicitly
// hidden descendants. Elements hidden only through CSS still count.
func visibleText(s *goquery.Selection) string {
	c := s.Clone()
	c.Find(hiddenSelector).Remove()
	return c.Text()
}

func isMenuHref(href string) bool {
	return strings.HasPrefix(href, "http") || strings.HasPrefix(href, "/") || strings.HasPrefix(href, "#")
}
