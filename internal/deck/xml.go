package deck

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// childNS returns the first direct child with the given namespace and local name.
func childNS(el *etree.Element, ns, local string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == local && c.NamespaceURI() == ns {
			return c
		}
	}
	return nil
}

func childrenNS(el *etree.Element, ns, local string) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if c.Tag == local && c.NamespaceURI() == ns {
			out = append(out, c)
		}
	}
	return out
}

func attrNS(el *etree.Element, ns, key string) string {
	for i := range el.Attr {
		a := &el.Attr[i]
		if a.Key == key && a.NamespaceURI() == ns {
			return a.Value
		}
	}
	return ""
}

// spTree locates p:sld/p:cSld/p:spTree.
func spTree(doc *etree.Document) *etree.Element {
	root := doc.Root()
	if root == nil || root.NamespaceURI() != nsPresentation {
		return nil
	}
	cSld := childNS(root, nsPresentation, "cSld")
	if cSld == nil {
		return nil
	}
	return childNS(cSld, nsPresentation, "spTree")
}

// shapeProps returns the cNvPr element of a top-level shape (sp, pic,
// grpSp, graphicFrame, cxnSp), or nil for anything else.
func shapeProps(shape *etree.Element) *etree.Element {
	for _, c := range shape.ChildElements() {
		if !strings.HasPrefix(c.Tag, "nv") || c.NamespaceURI() != nsPresentation {
			continue
		}
		return childNS(c, nsPresentation, "cNvPr")
	}
	return nil
}

// maxShapeID is the largest cNvPr/@id anywhere under el.
func maxShapeID(el *etree.Element) int {
	best := 0
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		if e.Tag == "cNvPr" {
			if id, err := strconv.Atoi(e.SelectAttrValue("id", "")); err == nil && id > best {
				best = id
			}
		}
		for _, c := range e.ChildElements() {
			walk(c)
		}
	}
	walk(el)
	return best
}

// prefixFor finds the prefix bound to ns in scope at el.
func prefixFor(el *etree.Element, ns string) (string, bool) {
	for e := el; e != nil; e = e.Parent() {
		for _, a := range e.Attr {
			if a.Space == "xmlns" && a.Value == ns {
				return a.Key, true
			}
			if a.Space == "" && a.Key == "xmlns" && a.Value == ns {
				return "", true
			}
		}
	}
	return "", false
}

// prefixInUse reports whether prefix is bound to anything in scope at el.
func prefixInUse(el *etree.Element, prefix string) bool {
	for e := el; e != nil; e = e.Parent() {
		for _, a := range e.Attr {
			if a.Space == "xmlns" && a.Key == prefix {
				return true
			}
		}
	}
	return false
}

func qname(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}

// textOf concatenates every a:t under el.
func textOf(el *etree.Element) string {
	var sb strings.Builder
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		if e.Tag == "t" && e.NamespaceURI() == nsDrawing {
			sb.WriteString(e.Text())
		}
		for _, c := range e.ChildElements() {
			walk(c)
		}
	}
	walk(el)
	return sb.String()
}
