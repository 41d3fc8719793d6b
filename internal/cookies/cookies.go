// Package cookies normalises user-supplied cookies into types.Cookie.
package cookies

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/dgnsrekt/sitedoc/internal/types"
)

// DefaultPath is used for cookies that do not name a path.
const DefaultPath = "/"

type jsonCookie struct {
	Name   *string `json:"name"`
	Value  *string `json:"value"`
	Domain string  `json:"domain"`
	Path   *string `json:"path"`
}

// Parse accepts either the path of a JSON file holding a list of
// {name, value, domain?, path?} objects, or a "name1=value1; name2=value2"
// string. Missing domains and paths default to domain and path.
func Parse(input, domain, path string) ([]types.Cookie, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	if path == "" {
		path = DefaultPath
	}

	if info, err := os.Stat(input); err == nil && info.Mode().IsRegular() {
		return parseFile(input, domain, path)
	}
	return ParseHeader(input, domain, path), nil
}

// ParseHeader splits a Cookie header style string. Values may contain '='.
func ParseHeader(input, domain, path string) []types.Cookie {
	var out []types.Cookie
	for _, part := range strings.Split(input, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, types.Cookie{
			Name:   name,
			Value:  strings.TrimSpace(value),
			Domain: domain,
			Path:   path,
		})
	}
	return out
}

func parseFile(filename, domain, path string) ([]types.Cookie, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse cookie file %s: %w", filename, err)
	}
	if _, ok := raw.([]any); !ok {
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse cookie file %s: %w", filename, err)
	}

	out := make([]types.Cookie, 0, len(items))
	for _, item := range items {
		var c jsonCookie
		if err := json.Unmarshal(item, &c); err != nil {
			continue
		}
		if c.Name == nil || c.Value == nil {
			continue
		}
		cookie := types.Cookie{
			Name:   *c.Name,
			Value:  *c.Value,
			Domain: c.Domain,
			Path:   path,
		}
		if cookie.Domain == "" {
			cookie.Domain = domain
		}
		if c.Path != nil {
			cookie.Path = *c.Path
		}
		out = append(out, cookie)
	}
	return out, nil
}

// DomainFromURL returns the host of rawURL, used as the default cookie
// domain.
func DomainFromURL(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
