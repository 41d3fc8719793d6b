package document

// Layout is the page geometry in PDF points, origin at the top left.
type Layout struct {
	PageWidth     float64
	TopMargin     float64
	SideMargin    float64
	CaptionHeight float64
	BottomMargin  float64
	MaxPageHeight float64
}

// DefaultLayout is an A4-wide page with a caption block above the image.
var DefaultLayout = Layout{
	PageWidth:     595,
	TopMargin:     50,
	SideMargin:    40,
	CaptionHeight: 90,
	BottomMargin:  20,
	MaxPageHeight: 14400,
}

// Caption line offsets below the top margin.
const (
	nameOffset     = 14
	urlLabelOffset = 30
	urlOffset      = 54
	linkTopOffset  = 42
	linkHeight     = 14

	maxNameRunes = 90
	maxURLRunes  = 120

	// emptyImageHeight is reserved for images that report a zero width.
	emptyImageHeight = 100
)

// UsableWidth is the page width inside the side margins.
func (l Layout) UsableWidth() float64 {
	return l.PageWidth - 2*l.SideMargin
}

// Placement is the computed page size and image rectangle for one image.
type Placement struct {
	PageHeight float64
	X, Y       float64
	Width      float64
	Height     float64
}

// Place sizes a page for an image of imgW x imgH pixels. The image fills
// the usable width with its aspect ratio preserved; if that would exceed
// MaxPageHeight the image is shrunk to fit and centred horizontally.
func (l Layout) Place(imgW, imgH int) Placement {
	usable := l.UsableWidth()
	w, h := usable, float64(emptyImageHeight)
	if imgW > 0 {
		h = float64(imgH) * usable / float64(imgW)
	}

	p := Placement{
		X:      l.SideMargin,
		Y:      l.TopMargin + l.CaptionHeight,
		Width:  w,
		Height: h,
	}
	p.PageHeight = l.TopMargin + l.CaptionHeight + h + l.BottomMargin

	if l.MaxPageHeight > 0 && p.PageHeight > l.MaxPageHeight {
		avail := l.MaxPageHeight - l.TopMargin - l.CaptionHeight - l.BottomMargin
		scale := avail / h
		p.Height = avail
		p.Width = w * scale
		p.X = l.SideMargin + (usable-p.Width)/2
		p.PageHeight = l.MaxPageHeight
	}
	return p
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
