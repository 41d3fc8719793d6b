package document

// Color is an RGB triple in 0-255.
type Color struct{ R, G, B int }

var (
	colorLabel = Color{77, 77, 77}
	colorText  = Color{0, 0, 0}
	colorLink  = Color{0, 0, 204}
)

// TextStyle selects font size, weight and color for a text run.
type TextStyle struct {
	Size  float64
	Bold  bool
	Color Color
}

// Renderer draws pages. Coordinates are points from the top left; Text
// positions the baseline.
type Renderer interface {
	AddPage(width, height float64)
	Text(x, y float64, text string, style TextStyle)
	Link(x, y, w, h float64, url string)
	Image(path string, x, y, w, h float64)
	Save(path string) error
}
