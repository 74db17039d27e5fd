package deck

import "math"

// EMUPerInch is the number of English Metric Units in one inch.
const EMUPerInch = 914400

// MMToEMU converts millimetres to EMU, rounding to the nearest unit.
func MMToEMU(mm float64) int64 {
	return int64(math.Round(mm / 25.4 * EMUPerInch))
}

// Geometry is the fixed size of the label box and its distance from the
// slide's bottom-right corner, in millimetres.
type Geometry struct {
	WidthMM        float64
	HeightMM       float64
	MarginRightMM  float64
	MarginBottomMM float64
}

// DefaultGeometry is a 70x10mm box, 12mm from the right edge and 10mm from the bottom.
func DefaultGeometry() Geometry {
	return Geometry{WidthMM: 70, HeightMM: 10, MarginRightMM: 12, MarginBottomMM: 10}
}

// Placement is a rectangle in EMU.
type Placement struct {
	Left   int64 `json:"left"`
	Top    int64 `json:"top"`
	Width  int64 `json:"width"`
	Height int64 `json:"height"`
}

// Right is the x coordinate of the rectangle's right edge.
func (p Placement) Right() int64 { return p.Left + p.Width }

// Bottom is the y coordinate of the rectangle's bottom edge.
func (p Placement) Bottom() int64 { return p.Top + p.Height }

// Place computes the label rectangle for a slide of the given extents.
// Small slides can yield negative offsets; they are kept as computed.
func (g Geometry) Place(slideWidth, slideHeight int64) Placement {
	w := MMToEMU(g.WidthMM)
	h := MMToEMU(g.HeightMM)
	return Placement{
		Left:   slideWidth - w - MMToEMU(g.MarginRightMM),
		Top:    slideHeight - h - MMToEMU(g.MarginBottomMM),
		Width:  w,
		Height: h,
	}
}
