package deck

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"deckstamp/internal/config"
)

var colorPattern = regexp.MustCompile(`^[0-9A-Fa-f]{6}$`)

// Config controls what the Annotator stamps and where.
type Config struct {
	// Marker is the cNvPr name that identifies the label shape across runs.
	Marker   string
	Geometry Geometry
	// FontSizePt is the label font size in points.
	FontSizePt float64
	// Color is an RRGGBB hex string applied to every label in a run.
	Color string
}

// DefaultConfig returns the stock marker, 70x10mm geometry, 12pt red text.
func DefaultConfig() Config {
	return Config{
		Marker:     defaultMarker,
		Geometry:   DefaultGeometry(),
		FontSizePt: 12,
		Color:      "FF0000",
	}
}

// ConfigFrom maps environment settings onto an annotator Config.
func ConfigFrom(c config.AnnotationConfig) Config {
	return Config{
		Marker: c.Marker,
		Geometry: Geometry{
			WidthMM:        c.BoxWidthMM,
			HeightMM:       c.BoxHeightMM,
			MarginRightMM:  c.MarginRightMM,
			MarginBottomMM: c.MarginBottomMM,
		},
		FontSizePt: c.FontSizePt,
		Color:      c.Color,
	}
}

// Result describes one Annotate run.
type Result struct {
	Data []byte
	// Slides is the number of slides that received a label.
	Slides int
	// Replaced counts prior label shapes removed across all slides.
	Replaced int
}

// Annotator stamps a label onto every slide of a deck. It holds no per-call
// state and is safe for concurrent use.
type Annotator struct {
	cfg Config
}

// NewAnnotator validates cfg and returns an Annotator.
func NewAnnotator(cfg Config) (*Annotator, error) {
	if strings.TrimSpace(cfg.Marker) == "" {
		return nil, errors.New("annotation marker is required")
	}
	if cfg.Geometry.WidthMM <= 0 || cfg.Geometry.HeightMM <= 0 {
		return nil, errors.New("annotation box must have a positive size")
	}
	if cfg.FontSizePt < 1 || cfg.FontSizePt > 4000 {
		return nil, fmt.Errorf("annotation font size %v out of range", cfg.FontSizePt)
	}
	if !colorPattern.MatchString(cfg.Color) {
		return nil, fmt.Errorf("annotation color %q is not RRGGBB", cfg.Color)
	}
	cfg.Color = strings.ToUpper(cfg.Color)
	return &Annotator{cfg: cfg}, nil
}

// Config returns the annotator's configuration.
func (a *Annotator) Config() Config {
	return a.cfg
}

// Annotate removes any previous label shapes and adds exactly one label per
// slide. Either every slide is stamped and the package re-serialized, or an
// error is returned and no bytes are.
func (a *Annotator) Annotate(data []byte, label string) (*Result, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, ErrEmptyLabel
	}
	pkg, err := Open(data)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, s := range pkg.Slides() {
		place := a.cfg.Geometry.Place(pkg.Width, pkg.Height)
		res.Replaced += a.stamp(s, place, label)
		res.Slides++
	}

	out, err := pkg.Bytes()
	if err != nil {
		return nil, err
	}
	res.Data = out
	return res, nil
}

// stamp mutates one slide and returns how many prior labels it removed.
func (a *Annotator) stamp(s *Slide, place Placement, label string) int {
	tree := spTree(s.doc)

	var prior []*etree.Element
	for _, shape := range tree.ChildElements() {
		props := shapeProps(shape)
		if props != nil && props.SelectAttrValue("name", "") == a.cfg.Marker {
			prior = append(prior, shape)
		}
	}
	for _, shape := range prior {
		tree.RemoveChild(shape)
	}

	shape := a.buildShape(tree, maxShapeID(s.doc.Root())+1, place, label)
	if ext := childNS(tree, nsPresentation, "extLst"); ext != nil {
		tree.InsertChildAt(ext.Index(), shape)
	} else {
		tree.AddChild(shape)
	}
	s.dirty = true
	return len(prior)
}

func (a *Annotator) buildShape(tree *etree.Element, id int, place Placement, label string) *etree.Element {
	p := tree.Space
	sp := etree.NewElement(qname(p, "sp"))

	d, ok := prefixFor(tree, nsDrawing)
	if !ok {
		d = "a"
		for i := 0; prefixInUse(tree, d); i++ {
			d = "a" + strconv.Itoa(i)
		}
		sp.CreateAttr("xmlns:"+d, nsDrawing)
	}

	nv := sp.CreateElement(qname(p, "nvSpPr"))
	cNvPr := nv.CreateElement(qname(p, "cNvPr"))
	cNvPr.CreateAttr("id", strconv.Itoa(id))
	cNvPr.CreateAttr("name", a.cfg.Marker)
	nv.CreateElement(qname(p, "cNvSpPr")).CreateAttr("txBox", "1")
	nv.CreateElement(qname(p, "nvPr"))

	spPr := sp.CreateElement(qname(p, "spPr"))
	xfrm := spPr.CreateElement(qname(d, "xfrm"))
	off := xfrm.CreateElement(qname(d, "off"))
	off.CreateAttr("x", strconv.FormatInt(place.Left, 10))
	off.CreateAttr("y", strconv.FormatInt(place.Top, 10))
	ext := xfrm.CreateElement(qname(d, "ext"))
	ext.CreateAttr("cx", strconv.FormatInt(place.Width, 10))
	ext.CreateAttr("cy", strconv.FormatInt(place.Height, 10))
	geom := spPr.CreateElement(qname(d, "prstGeom"))
	geom.CreateAttr("prst", "rect")
	geom.CreateElement(qname(d, "avLst"))
	spPr.CreateElement(qname(d, "noFill"))

	body := sp.CreateElement(qname(p, "txBody"))
	bodyPr := body.CreateElement(qname(d, "bodyPr"))
	bodyPr.CreateAttr("wrap", "square")
	bodyPr.CreateAttr("rtlCol", "0")
	bodyPr.CreateAttr("anchor", "b")
	bodyPr.CreateElement(qname(d, "noAutofit"))
	body.CreateElement(qname(d, "lstStyle"))

	para := body.CreateElement(qname(d, "p"))
	para.CreateElement(qname(d, "pPr")).CreateAttr("algn", "r")
	run := para.CreateElement(qname(d, "r"))
	rPr := run.CreateElement(qname(d, "rPr"))
	rPr.CreateAttr("lang", "en-US")
	rPr.CreateAttr("sz", strconv.Itoa(int(math.Round(a.cfg.FontSizePt*hundredthsPerPt))))
	rPr.CreateAttr("dirty", "0")
	fill := rPr.CreateElement(qname(d, "solidFill"))
	fill.CreateElement(qname(d, "srgbClr")).CreateAttr("val", a.cfg.Color)
	run.CreateElement(qname(d, "t")).SetText(label)

	return sp
}
