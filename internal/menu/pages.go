package menu

import (
	"context"

	"github.com/dgnsrekt/sitedoc/internal/types"
)

// Source describes where the page list comes from: an explicit tree, or a
// selector to scrape from the base page.
type Source struct {
	BaseURL       string
	Pages         []Node
	MenuSelector  string
	MenuContainer string
}

// Resolve returns the ordered page list for s. An explicit tree wins over
// scraping. An empty result is a configuration error.
func Resolve(ctx context.Context, s Source, dom DOMSource) ([]types.PageEntry, error) {
	var pages []types.PageEntry
	switch {
	case len(s.Pages) > 0:
		pages = Flatten(s.Pages, s.BaseURL)
	case s.MenuSelector != "":
		if dom == nil {
			return nil, types.NewError(types.CodeConfiguration, "menu_selector needs a browser", nil)
		}
		pages = Scrape(ctx, dom, s.BaseURL, s.MenuSelector, s.MenuContainer)
	default:
		return nil, types.NewError(types.CodeConfiguration, "config provides neither pages nor menu_selector", nil)
	}

	if len(pages) == 0 {
		return nil, types.NewError(types.CodeConfiguration, "no pages resolved from config", nil)
	}
	return pages, nil
}

// NeedsBrowser reports whether resolving s requires a live page.
func (s Source) NeedsBrowser() bool {
	return len(s.Pages) == 0 && s.MenuSelector != ""
}
