package types

// PageEntry is one capturable page: a display name and an absolute URL.
// Name may be hierarchical, with segments joined by " > ".
type PageEntry struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// Cookie is session state injected into a browsing context before any
// page is visited.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
}

// CapturedImage is an image written for a successfully captured page.
// Ordinal is the 1-based position of the page in the input list; skipped
// pages leave gaps rather than being renumbered.
type CapturedImage struct {
	Path    string
	Ordinal int
	Page    PageEntry
}

// ImagePaths returns the file paths of imgs in order.
func ImagePaths(imgs []CapturedImage) []string {
	paths := make([]string, 0, len(imgs))
	for _, img := range imgs {
		paths = append(paths, img.Path)
	}
	return paths
}

// PageInfos returns the page metadata of imgs in order, index-aligned with
// ImagePaths.
func PageInfos(imgs []CapturedImage) []PageEntry {
	infos := make([]PageEntry, 0, len(imgs))
	for _, img := range imgs {
		infos = append(infos, img.Page)
	}
	return infos
}
