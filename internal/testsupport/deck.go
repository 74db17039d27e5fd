// Package testsupport builds synthetic fixtures shared by package tests.
package testsupport

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"strings"
	"testing"
)

// DeckOption customizes BuildDeck.
type DeckOption func(*deckSpec)

type deckSpec struct {
	width, height int64
	noSize        bool
	extLst        bool
	extraShapes   map[int][]string
	extraParts    map[string]string
	drop          map[string]bool
}

// WithSlideSize sets p:sldSz in EMU.
func WithSlideSize(cx, cy int64) DeckOption {
	return func(s *deckSpec) { s.width, s.height = cx, cy }
}

// WithoutSlideSize omits p:sldSz.
func WithoutSlideSize() DeckOption {
	return func(s *deckSpec) { s.noSize = true }
}

// WithSlideExtLst ends every shape tree with a p:extLst element.
func WithSlideExtLst() DeckOption {
	return func(s *deckSpec) { s.extLst = true }
}

// WithShape appends raw shape XML to the shape tree of slide index (0-based).
// The XML may use the p: and a: prefixes.
func WithShape(index int, xml string) DeckOption {
	return func(s *deckSpec) { s.extraShapes[index] = append(s.extraShapes[index], xml) }
}

// WithPart adds or replaces a package part.
func WithPart(name, body string) DeckOption {
	return func(s *deckSpec) { s.extraParts[name] = body }
}

// WithoutPart drops a package part the builder would otherwise write.
func WithoutPart(name string) DeckOption {
	return func(s *deckSpec) { s.drop[name] = true }
}

// LabelShape returns a label text box named marker, as a prior run would leave it.
func LabelShape(id int, marker, text string) string {
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>`+
		`<p:spPr><a:xfrm><a:off x="1" y="1"/><a:ext cx="1" cy="1"/></a:xfrm></p:spPr>`+
		`<p:txBody><a:bodyPr/><a:lstStyle/><a:p><a:r><a:t>%s</a:t></a:r></a:p></p:txBody></p:sp>`, id, marker, text)
}

// BuildDeck returns a minimal but well-formed .pptx package with n slides.
// Slide relationship ids are deliberately not in slide order.
func BuildDeck(t testing.TB, n int, opts ...DeckOption) []byte {
	t.Helper()

	spec := &deckSpec{
		width:       12192000,
		height:      6858000,
		extraShapes: map[int][]string{},
		extraParts:  map[string]string{},
		drop:        map[string]bool{},
	}
	for _, opt := range opts {
		opt(spec)
	}

	parts := map[string]string{
		"[Content_Types].xml":               contentTypes(n),
		"_rels/.rels":                       rootRels,
		"ppt/presentation.xml":              presentation(spec, n),
		"ppt/_rels/presentation.xml.rels":   presentationRels(n),
		"docProps/app.xml":                  `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><Properties/>`,
		"ppt/slideMasters/slideMaster1.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><p:sldMaster xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"/>`,
	}
	for i := 0; i < n; i++ {
		parts[fmt.Sprintf("ppt/slides/slide%d.xml", i+1)] = slide(spec, i)
	}
	for name, body := range spec.extraParts {
		parts[name] = body
	}
	for name := range spec.drop {
		delete(parts, name)
	}
	return BuildZip(t, parts)
}

// BuildZip writes parts into a zip archive in lexical name order, with the
// content types manifest first when present.
func BuildZip(t testing.TB, parts map[string]string) []byte {
	t.Helper()

	names := make([]string, 0, len(parts))
	for name := range parts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if names[i] == "[Content_Types].xml" {
			return true
		}
		if names[j] == "[Content_Types].xml" {
			return false
		}
		return names[i] < names[j]
	})

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(parts[name])); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// ZipEntries returns the raw uncompressed bytes of every entry in data.
func ZipEntries(t testing.TB, data []byte) map[string][]byte {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		var b bytes.Buffer
		if _, err := b.ReadFrom(rc); err != nil {
			rc.Close()
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		rc.Close()
		out[f.Name] = b.Bytes()
	}
	return out
}

const rootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/></Relationships>`

func contentTypes(n int) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sb.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	sb.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	sb.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	sb.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, i)
	}
	sb.WriteString(`</Types>`)
	return sb.String()
}

func slideRID(i int) string {
	return fmt.Sprintf("rId%d", 100-i)
}

func presentation(spec *deckSpec, n int) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sb.WriteString(`<p:presentation xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">`)
	sb.WriteString(`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`)
	if n > 0 {
		sb.WriteString(`<p:sldIdLst>`)
		for i := 0; i < n; i++ {
			fmt.Fprintf(&sb, `<p:sldId id="%d" r:id="%s"/>`, 256+i, slideRID(i))
		}
		sb.WriteString(`</p:sldIdLst>`)
	}
	if !spec.noSize {
		fmt.Fprintf(&sb, `<p:sldSz cx="%d" cy="%d"/>`, spec.width, spec.height)
	}
	sb.WriteString(`<p:notesSz cx="6858000" cy="9144000"/></p:presentation>`)
	return sb.String()
}

func presentationRels(n int) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sb.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	sb.WriteString(`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="slideMasters/slideMaster1.xml"/>`)
	for i := n - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, `<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`, slideRID(i), i+1)
	}
	sb.WriteString(`</Relationships>`)
	return sb.String()
}

func slide(spec *deckSpec, i int) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sb.WriteString(`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">`)
	sb.WriteString(`<p:cSld><p:spTree>`)
	sb.WriteString(`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>`)
	sb.WriteString(`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`)
	fmt.Fprintf(&sb, `<p:sp><p:nvSpPr><p:cNvPr id="2" name="Title 1"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/><a:p><a:r><a:rPr lang="en-US"/><a:t>Slide %d</a:t></a:r></a:p></p:txBody></p:sp>`, i+1)
	for _, shape := range spec.extraShapes[i] {
		sb.WriteString(shape)
	}
	if spec.extLst {
		sb.WriteString(`<p:extLst><p:ext uri="{BB962C8B-B14F-4D97-AF65-F5344CB8AC3E}"/></p:extLst>`)
	}
	sb.WriteString(`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`)
	return sb.String()
}
