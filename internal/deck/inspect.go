package deck

import (
	"strconv"

	"github.com/beevik/etree"
)

// Annotation is a label shape found on a slide.
type Annotation struct {
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	Placement Placement `json:"placement"`
}

// SlideInfo summarizes one slide for inspection.
type SlideInfo struct {
	Index       int          `json:"index"`
	Part        string       `json:"part"`
	Shapes      int          `json:"shapes"`
	Annotations []Annotation `json:"annotations"`
}

// Inspect lists, per slide in presentation order, the top-level shapes
// whose name equals marker.
func Inspect(data []byte, marker string) ([]SlideInfo, error) {
	pkg, err := Open(data)
	if err != nil {
		return nil, err
	}

	out := make([]SlideInfo, 0, len(pkg.Slides()))
	for i, s := range pkg.Slides() {
		tree := spTree(s.doc)
		info := SlideInfo{Index: i, Part: s.Part, Annotations: []Annotation{}}
		for _, shape := range tree.ChildElements() {
			props := shapeProps(shape)
			if props == nil {
				continue
			}
			info.Shapes++
			if props.SelectAttrValue("name", "") != marker {
				continue
			}
			id, _ := strconv.Atoi(props.SelectAttrValue("id", ""))
			info.Annotations = append(info.Annotations, Annotation{
				ID:        id,
				Text:      textOf(shape),
				Placement: placementOf(shape),
			})
		}
		out = append(out, info)
	}
	return out, nil
}

func placementOf(shape *etree.Element) Placement {
	spPr := childNS(shape, nsPresentation, "spPr")
	if spPr == nil {
		return Placement{}
	}
	xfrm := childNS(spPr, nsDrawing, "xfrm")
	if xfrm == nil {
		return Placement{}
	}
	var p Placement
	if off := childNS(xfrm, nsDrawing, "off"); off != nil {
		p.Left = parseInt(off.SelectAttrValue("x", ""))
		p.Top = parseInt(off.SelectAttrValue("y", ""))
	}
	if ext := childNS(xfrm, nsDrawing, "ext"); ext != nil {
		p.Width = parseInt(ext.SelectAttrValue("cx", ""))
		p.Height = parseInt(ext.SelectAttrValue("cy", ""))
	}
	return p
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}
