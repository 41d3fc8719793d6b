package document

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/dgnsrekt/sitedoc/internal/types"
)

type op struct {
	kind string
	text string
	x, y float64
	w, h float64
}

type fakeRenderer struct {
	ops     []op
	saveErr error
}

func (f *fakeRenderer) AddPage(width, height float64) {
	f.ops = append(f.ops, op{kind: "page", w: width, h: height})
}

func (f *fakeRenderer) Text(x, y float64, text string, _ TextStyle) {
	f.ops = append(f.ops, op{kind: "text", text: text, x: x, y: y})
}

func (f *fakeRenderer) Link(x, y, w, h float64, url string) {
	f.ops = append(f.ops, op{kind: "link", text: url, x: x, y: y, w: w, h: h})
}

func (f *fakeRenderer) Image(path string, x, y, w, h float64) {
	f.ops = append(f.ops, op{kind: "image", text: path, x: x, y: y, w: w, h: h})
}

func (f *fakeRenderer) Save(path string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return os.WriteFile(path, []byte("%PDF-fake"), 0o644)
}

func (f *fakeRenderer) count(kind string) int {
	n := 0
	for _, o := range f.ops {
		if o.kind == kind {
			n++
		}
	}
	return n
}

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func newFakeBuilder(r *fakeRenderer) *Builder {
	b := NewBuilder(Font{}, Labels{})
	b.newRenderer = func() Renderer { return r }
	b.countPages = func(path string) (int, error) {
		return r.count("page"), nil
	}
	return b
}

func TestBuildOnePagePerExistingImage(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "001_a.png", 100, 200)
	c := writePNG(t, dir, "003_c.png", 50, 50)
	missing := filepath.Join(dir, "002_b.png")

	r := &fakeRenderer{}
	out, err := newFakeBuilder(r).Build([]string{a, missing, c}, filepath.Join(dir, "doc.pdf"), []types.PageEntry{
		{Name: "A", URL: "https://x.test/a"},
		{Name: "B", URL: "https://x.test/b"},
		{Name: "C", URL: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "doc.pdf"), out)
	assert.FileExists(t, out)
	assert.NoFileExists(t, out+".partial")

	assert.Equal(t, 2, r.count("page"))
	var images []string
	for _, o := range r.ops {
		if o.kind == "image" {
			images = append(images, o.text)
		}
	}
	assert.Equal(t, []string{a, c}, images)

	// First page: 100x200 scaled to 515 wide.
	assert.InDelta(t, 50+90+1030+20, r.ops[0].h, 0.001)
}

func TestBuildCaptionAlignedWithImages(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", 10, 10)
	missing := filepath.Join(dir, "b.png")
	c := writePNG(t, dir, "c.png", 10, 10)

	r := &fakeRenderer{}
	_, err := newFakeBuilder(r).Build([]string{a, missing, c}, filepath.Join(dir, "doc.pdf"), []types.PageEntry{
		{Name: "A", URL: "https://x.test/a"},
		{Name: "B", URL: "https://x.test/b"},
		{Name: "C"},
	})
	require.NoError(t, err)

	var texts []string
	var links []string
	for _, o := range r.ops {
		switch o.kind {
		case "text":
			texts = append(texts, o.text)
		case "link":
			links = append(links, o.text)
		}
	}
	assert.Equal(t, []string{
		"Page name:", "A", "Address:", "https://x.test/a",
		"Page name:", "C", "Address:", "-",
	}, texts)
	assert.Equal(t, []string{"https://x.test/a"}, links)
}

func TestBuildCaptionGeometry(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", 10, 10)

	r := &fakeRenderer{}
	b := newFakeBuilder(r)
	b.labels = Labels{Name: "页面名称：", URL: "地址："}
	_, err := b.Build([]string{a}, filepath.Join(dir, "doc"), []types.PageEntry{{Name: "Home", URL: "https://x.test/"}})
	require.NoError(t, err)

	require.Len(t, r.ops, 7)
	assert.Equal(t, op{kind: "text", text: "页面名称：", x: 40, y: 50}, r.ops[1])
	assert.Equal(t, op{kind: "text", text: "Home", x: 40, y: 64}, r.ops[2])
	assert.Equal(t, op{kind: "text", text: "地址：", x: 40, y: 80}, r.ops[3])
	assert.Equal(t, op{kind: "text", text: "https://x.test/", x: 40, y: 104}, r.ops[4])
	assert.Equal(t, op{kind: "link", text: "https://x.test/", x: 40, y: 92, w: 515, h: 14}, r.ops[5])
	assert.Equal(t, "image", r.ops[6].kind)
	assert.InDelta(t, 140, r.ops[6].y, 0.001)
}

func TestBuildWithoutInfosOmitsCaption(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", 10, 10)

	r := &fakeRenderer{}
	_, err := newFakeBuilder(r).Build([]string{a}, filepath.Join(dir, "doc.pdf"), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, r.count("text"))
	assert.Equal(t, 0, r.count("link"))
	assert.InDelta(t, 140, r.ops[1].y, 0.001)
}

func TestBuildAllMissingIsEmptyInput(t *testing.T) {
	dir := t.TempDir()
	_, err := newFakeBuilder(&fakeRenderer{}).Build([]string{filepath.Join(dir, "nope.png")}, filepath.Join(dir, "doc.pdf"), nil)
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.CodeEmptyInput))
	assert.NoFileExists(t, filepath.Join(dir, "doc.pdf"))
}

func TestBuildForcesPDFExtensionAndCreatesDirs(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", 10, 10)

	out, err := newFakeBuilder(&fakeRenderer{}).Build([]string{a}, filepath.Join(dir, "nested", "deeper", "doc.txt"), nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nested", "deeper", "doc.pdf"), out)
	assert.FileExists(t, out)
}

func TestBuildCorruptImageAborts(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", 10, 10)
	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))

	r := &fakeRenderer{}
	_, err := newFakeBuilder(r).Build([]string{a, bad}, filepath.Join(dir, "doc.pdf"), nil)
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.CodeAssembly))
	assert.NoFileExists(t, filepath.Join(dir, "doc.pdf"))
	assert.NoFileExists(t, filepath.Join(dir, "doc.pdf.partial"))
}

func TestBuildSaveFailureRemovesPartial(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", 10, 10)

	r := &fakeRenderer{saveErr: errors.New("disk full")}
	_, err := newFakeBuilder(r).Build([]string{a}, filepath.Join(dir, "doc.pdf"), nil)
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.CodeAssembly))
	assert.NoFileExists(t, filepath.Join(dir, "doc.pdf.partial"))
}

func TestBuildPageCountMismatchAborts(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", 10, 10)

	r := &fakeRenderer{}
	b := newFakeBuilder(r)
	b.countPages = func(string) (int, error) { return 0, nil }

	_, err := b.Build([]string{a}, filepath.Join(dir, "doc.pdf"), nil)
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.CodeAssembly))
	assert.NoFileExists(t, filepath.Join(dir, "doc.pdf"))
	assert.NoFileExists(t, filepath.Join(dir, "doc.pdf.partial"))
}

func TestBuildWritesRealPDF(t *testing.T) {
	dir := t.TempDir()
	var images []string
	var infos []types.PageEntry
	for i, size := range [][2]int{{120, 80}, {60, 400}, {200, 200}} {
		images = append(images, writePNG(t, dir, fmt.Sprintf("%03d_p.png", i+1), size[0], size[1]))
		infos = append(infos, types.PageEntry{Name: fmt.Sprintf("Page %d", i+1), URL: fmt.Sprintf("https://x.test/p%d", i+1)})
	}

	out, err := NewBuilder(Font{}, DefaultLabels).Build(images, filepath.Join(dir, "site.pdf"), infos)
	require.NoError(t, err)

	n, err := CountPages(out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func withSystemFonts(t *testing.T, paths ...string) {
	t.Helper()
	old := systemFonts
	systemFonts = func() []string { return paths }
	t.Cleanup(func() { systemFonts = old })
}

func TestFindFontFallsBackToHelvetica(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.ttf")
	require.NoError(t, os.WriteFile(bad, []byte("definitely not a font"), 0o644))
	missing := filepath.Join(dir, "missing.ttf")
	withSystemFonts(t, missing)

	var buf bytes.Buffer
	oldLogger := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() {
		slog.SetDefault(oldLogger)
	})

	font := FindFont(bad)
	assert.True(t, font.Builtin())
	assert.Contains(t, buf.String(), "configured font rejected")
	assert.Contains(t, buf.String(), "no unicode font found")

	assert.True(t, FindFont(missing).Builtin())
	assert.True(t, FindFont("").Builtin())

	img := writePNG(t, dir, "001_a.png", 40, 30)
	out, err := NewBuilder(font, DefaultLabels).Build([]string{img}, filepath.Join(dir, "doc.pdf"),
		[]types.PageEntry{{Name: "Home", URL: "https://x.test/"}})
	require.NoError(t, err)

	n, err := CountPages(out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBuildEmbedsTrueTypeFont(t *testing.T) {
	dir := t.TempDir()
	fontPath := filepath.Join(dir, "Go-Regular.ttf")
	require.NoError(t, os.WriteFile(fontPath, goregular.TTF, 0o644))
	withSystemFonts(t)

	font := FindFont(fontPath)
	require.False(t, font.Builtin())
	assert.Equal(t, fontPath, font.Path)

	images := []string{
		writePNG(t, dir, "001_a.png", 40, 30),
		writePNG(t, dir, "002_b.png", 30, 90),
	}
	infos := []types.PageEntry{
		{Name: "首页 Home", URL: "https://x.test/home"},
		{Name: "Überblick > Données", URL: "https://x.test/overview"},
	}
	out, err := NewBuilder(font, Labels{Name: "页面名称：", URL: "地址："}).Build(images, filepath.Join(dir, "doc.pdf"), infos)
	require.NoError(t, err)

	n, err := CountPages(out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIsTrueType(t *testing.T) {
	assert.True(t, isTrueType(goregular.TTF))
	assert.True(t, isTrueType([]byte("true....")))
	assert.False(t, isTrueType([]byte("OTTO....")))
	assert.False(t, isTrueType([]byte("ttcf....")))
	assert.False(t, isTrueType([]byte{0x00}))
}
