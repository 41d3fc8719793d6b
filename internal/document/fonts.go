package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
)

// Font is a TrueType font embedded into the document. A zero Font means
// the built-in Helvetica.
type Font struct {
	Path string
	Data []byte
}

// Builtin reports whether f falls back to Helvetica.
func (f Font) Builtin() bool {
	return len(f.Data) == 0
}

// systemFonts lists TrueType fonts with CJK coverage in their usual install
// locations.
var systemFonts = func() []string {
	paths := []string{
		"/usr/share/fonts/truetype/droid/DroidSansFallbackFull.ttf",
		"/usr/share/fonts/truetype/noto/NotoSansSC-Regular.ttf",
		"/usr/share/fonts/truetype/arphic-gbsn00lp/gbsn00lp.ttf",
		"/Library/Fonts/Arial Unicode.ttf",
		"/System/Library/Fonts/Supplemental/Arial Unicode.ttf",
	}
	windir := os.Getenv("WINDIR")
	if windir == "" {
		windir = `C:\Windows`
	}
	for _, name := range []string{"simhei.ttf", "msyh.ttf", "simkai.ttf"} {
		paths = append(paths, filepath.Join(windir, "Fonts", name))
	}
	return paths
}

// FindFont returns the configured font if it is usable, else the first
// usable system font. It falls back to Helvetica with a warning.
func FindFont(configured string) Font {
	if configured != "" {
		font, err := loadFont(configured)
		if err == nil {
			slog.Info("using font", "path", configured)
			return font
		}
		slog.Warn("configured font rejected", "path", configured, "error", err)
	}

	for _, path := range systemFonts() {
		font, err := loadFont(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				slog.Debug("font rejected", "path", path, "error", err)
			}
			continue
		}
		slog.Info("using font", "path", path)
		return font
	}

	slog.Warn("no unicode font found, captions fall back to Helvetica", "configured", configured)
	return Font{}
}

func loadFont(path string) (Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Font{}, err
	}
	if err := checkFont(data); err != nil {
		return Font{}, err
	}
	return Font{Path: path, Data: data}, nil
}

// isTrueType checks the sfnt version tag. Collections and CFF fonts are
// rejected since fpdf cannot embed them.
func isTrueType(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	tag := data[:4]
	return bytes.Equal(tag, []byte{0x00, 0x01, 0x00, 0x00}) || bytes.Equal(tag, []byte("true"))
}

// checkFont renders a line with data in a scratch document.
func checkFont(data []byte) (err error) {
	if !isTrueType(data) {
		return errors.New("not a TrueType font")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("font check panicked: %v", r)
		}
	}()

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.AddUTF8FontFromBytes("sample", "", data)
	pdf.AddPage()
	pdf.SetFont("sample", "", 10)
	pdf.Text(10, 20, "Sample 页面")
	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.Output(io.Discard)
}
