package deck

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Package is a parsed, mutable presentation. It is owned by a single caller
// and is not safe for concurrent use.
type Package struct {
	files  []*zip.File
	byName map[string]*zip.File
	slides []*Slide

	// Width and Height are the slide extents in EMU.
	Width  int64
	Height int64
}

// Slide is one slide part and its parsed XML.
type Slide struct {
	Part  string
	doc   *etree.Document
	dirty bool
}

// Open parses data as a presentation package. The returned Package holds
// references into data; callers must not modify it until Bytes is called.
func Open(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, invalid("not a zip archive: %v", err)
	}

	p := &Package{
		files:  zr.File,
		byName: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		p.byName[f.Name] = f
	}
	if _, ok := p.byName[contentTypesPart]; !ok {
		return nil, invalid("missing %s", contentTypesPart)
	}

	pres, err := p.readXML(presentationPart)
	if err != nil {
		return nil, err
	}
	root := pres.Root()
	if root == nil || root.Tag != "presentation" || root.NamespaceURI() != nsPresentation {
		return nil, invalid("%s is not a presentation part", presentationPart)
	}

	p.Width, p.Height = defaultSlideCX, defaultSlideCY
	if sz := childNS(root, nsPresentation, "sldSz"); sz != nil {
		cx, errX := strconv.ParseInt(sz.SelectAttrValue("cx", ""), 10, 64)
		cy, errY := strconv.ParseInt(sz.SelectAttrValue("cy", ""), 10, 64)
		if errX != nil || errY != nil {
			return nil, invalid("malformed slide size")
		}
		p.Width, p.Height = cx, cy
	}

	parts, err := p.slideParts(root)
	if err != nil {
		return nil, err
	}
	for _, part := range parts {
		doc, err := p.readXML(part)
		if err != nil {
			return nil, err
		}
		if spTree(doc) == nil {
			return nil, invalid("%s has no shape tree", part)
		}
		p.slides = append(p.slides, &Slide{Part: part, doc: doc})
	}
	return p, nil
}

// Slides returns the slides in presentation order.
func (p *Package) Slides() []*Slide {
	return p.slides
}

// Bytes serializes the package. Entries for unmodified parts are copied
// without recompression.
func (p *Package) Bytes() ([]byte, error) {
	rewritten := make(map[string][]byte)
	for _, s := range p.slides {
		if !s.dirty {
			continue
		}
		b, err := s.doc.WriteToBytes()
		if err != nil {
			return nil, fmt.Errorf("serialize %s: %w", s.Part, err)
		}
		rewritten[s.Part] = b
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range p.files {
		data, ok := rewritten[f.Name]
		if !ok {
			if err := zw.Copy(f); err != nil {
				return nil, fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}
		method := f.Method
		if method != zip.Store {
			method = zip.Deflate
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   method,
			Modified: f.Modified,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", f.Name, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// slideParts resolves p:sldIdLst to part names through the presentation relationships.
func (p *Package) slideParts(root *etree.Element) ([]string, error) {
	list := childNS(root, nsPresentation, "sldIdLst")
	if list == nil {
		return nil, nil
	}
	ids := childrenNS(list, nsPresentation, "sldId")
	if len(ids) == 0 {
		return nil, nil
	}

	rels, err := p.readXML(presentationRelsPart)
	if err != nil {
		return nil, err
	}
	targets := make(map[string]string)
	if relsRoot := rels.Root(); relsRoot != nil {
		for _, rel := range childrenNS(relsRoot, nsPackageRels, "Relationship") {
			if rel.SelectAttrValue("Type", "") != relTypeSlide {
				continue
			}
			targets[rel.SelectAttrValue("Id", "")] = rel.SelectAttrValue("Target", "")
		}
	}

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		rid := attrNS(id, nsOfficeRels, "id")
		target, ok := targets[rid]
		if rid == "" || !ok || target == "" {
			return nil, invalid("slide relationship %q not found", rid)
		}
		parts = append(parts, resolvePart("ppt", target))
	}
	return parts, nil
}

func (p *Package) readXML(name string) (*etree.Document, error) {
	f, ok := p.byName[name]
	if !ok {
		return nil, invalid("missing %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, invalid("open %s: %v", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxPartSize+1))
	if err != nil {
		return nil, invalid("read %s: %v", name, err)
	}
	if len(data) > maxPartSize {
		return nil, invalid("%s exceeds %d bytes", name, maxPartSize)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, invalid("parse %s: %v", name, err)
	}
	return doc, nil
}

// resolvePart turns a relationship target into a package part name.
func resolvePart(base, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Clean(path.Join(base, target))
}
