package document

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgnsrekt/sitedoc/internal/types"
)

// Labels are the caption headings printed above the page name and URL.
type Labels struct {
	Name string
	URL  string
}

// DefaultLabels are used when no labels are configured.
var DefaultLabels = Labels{Name: "Page name:", URL: "Address:"}

// Builder assembles captured images into a single PDF, one page per image.
type Builder struct {
	layout      Layout
	labels      Labels
	newRenderer func() Renderer
	countPages  func(path string) (int, error)
}

// NewBuilder creates a builder drawing captions with font.
func NewBuilder(font Font, labels Labels) *Builder {
	if labels.Name == "" {
		labels.Name = DefaultLabels.Name
	}
	if labels.URL == "" {
		labels.URL = DefaultLabels.URL
	}
	return &Builder{
		layout:      DefaultLayout,
		labels:      labels,
		newRenderer: func() Renderer { return NewPDFRenderer(font) },
		countPages:  CountPages,
	}
}

type pageInput struct {
	path string
	info *types.PageEntry
}

// Build writes images to outputPath in order. pageInfos, when given, are
// index-aligned with images and produce a caption per page. Missing images
// are dropped; the document is written to a temporary file, verified, then
// renamed into place. It returns the final path.
func (b *Builder) Build(images []string, outputPath string, pageInfos []types.PageEntry) (string, error) {
	var inputs []pageInput
	for i, path := range images {
		st, err := os.Stat(path)
		if err != nil || st.IsDir() {
			slog.Warn("image missing, skipping", "path", path)
			continue
		}
		in := pageInput{path: path}
		if pageInfos != nil && i < len(pageInfos) {
			info := pageInfos[i]
			in.info = &info
		}
		inputs = append(inputs, in)
	}
	if len(inputs) == 0 {
		return "", types.NewError(types.CodeEmptyInput, "no valid images to assemble", nil)
	}

	out := PDFPath(outputPath)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", types.NewError(types.CodeAssembly, "create output directory", err)
	}

	r := b.newRenderer()
	for _, in := range inputs {
		if err := b.drawPage(r, in); err != nil {
			return "", types.NewError(types.CodeAssembly, fmt.Sprintf("draw %s", in.path), err)
		}
	}

	partial := out + ".partial"
	if err := b.finish(r, partial, len(inputs)); err != nil {
		if rmErr := os.Remove(partial); rmErr != nil && !os.IsNotExist(rmErr) {
			slog.Debug("partial document cleanup failed", "path", partial, "error", rmErr)
		}
		return "", types.NewError(types.CodeAssembly, "write document", err)
	}
	if err := os.Rename(partial, out); err != nil {
		_ = os.Remove(partial)
		return "", types.NewError(types.CodeAssembly, "move document into place", err)
	}

	slog.Info("document written", "path", out, "pages", len(inputs))
	return out, nil
}

func (b *Builder) finish(r Renderer, partial string, want int) error {
	if err := r.Save(partial); err != nil {
		return err
	}
	got, err := b.countPages(partial)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("document has %d pages; want %d", got, want)
	}
	return nil
}

func (b *Builder) drawPage(r Renderer, in pageInput) error {
	w, h, err := imageSize(in.path)
	if err != nil {
		return err
	}
	p := b.layout.Place(w, h)
	r.AddPage(b.layout.PageWidth, p.PageHeight)
	if in.info != nil {
		b.drawCaption(r, *in.info)
	}
	r.Image(in.path, p.X, p.Y, p.Width, p.Height)
	return nil
}

func (b *Builder) drawCaption(r Renderer, info types.PageEntry) {
	x := b.layout.SideMargin
	y := b.layout.TopMargin
	label := TextStyle{Size: 9, Color: colorLabel}

	name := strings.TrimSpace(info.Name)
	url := strings.TrimSpace(info.URL)

	r.Text(x, y, b.labels.Name, label)
	r.Text(x, y+nameOffset, Truncate(name, maxNameRunes), TextStyle{Size: 12, Bold: true, Color: colorText})
	r.Text(x, y+urlLabelOffset, b.labels.URL, label)

	urlText := Truncate(url, maxURLRunes)
	if urlText == "" {
		urlText = "-"
	}
	r.Text(x, y+urlOffset, urlText, TextStyle{Size: 10, Color: colorLink})
	if url != "" {
		r.Link(x, y+linkTopOffset, b.layout.UsableWidth(), linkHeight, url)
	}
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// PDFPath forces a .pdf extension onto path.
func PDFPath(path string) string {
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, ".pdf") {
		return path
	}
	return strings.TrimSuffix(path, ext) + ".pdf"
}
