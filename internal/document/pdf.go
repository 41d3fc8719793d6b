package document

import (
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	fontFamily = "caption"
	fallback   = "Helvetica"
)

// PDFRenderer draws pages with fpdf.
type PDFRenderer struct {
	pdf       *fpdf.Fpdf
	family    string
	translate func(string) string
}

// NewPDFRenderer creates a renderer that writes captions with font.
func NewPDFRenderer(font Font) *PDFRenderer {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: DefaultLayout.PageWidth, Ht: 842},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)

	r := &PDFRenderer{pdf: pdf, family: fallback}
	if font.Builtin() {
		r.translate = pdf.UnicodeTranslatorFromDescriptor("")
	} else {
		pdf.AddUTF8FontFromBytes(fontFamily, "", font.Data)
		pdf.AddUTF8FontFromBytes(fontFamily, "B", font.Data)
		r.family = fontFamily
		r.translate = func(s string) string { return s }
	}
	return r
}

func (r *PDFRenderer) AddPage(width, height float64) {
	r.pdf.AddPageFormat("P", fpdf.SizeType{Wd: width, Ht: height})
}

func (r *PDFRenderer) Text(x, y float64, text string, style TextStyle) {
	weight := ""
	if style.Bold {
		weight = "B"
	}
	r.pdf.SetFont(r.family, weight, style.Size)
	r.pdf.SetTextColor(style.Color.R, style.Color.G, style.Color.B)
	r.pdf.Text(x, y, r.translate(text))
}

func (r *PDFRenderer) Link(x, y, w, h float64, url string) {
	r.pdf.LinkString(x, y, w, h, url)
}

func (r *PDFRenderer) Image(path string, x, y, w, h float64) {
	imageType := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if imageType == "jpeg" {
		imageType = "jpg"
	}
	r.pdf.ImageOptions(path, x, y, w, h, false, fpdf.ImageOptions{ImageType: imageType}, 0, "")
}

// Save writes the document to path. Errors raised while drawing surface
// here.
func (r *PDFRenderer) Save(path string) error {
	if r.pdf.Err() {
		return r.pdf.Error()
	}
	return r.pdf.OutputFileAndClose(path)
}
