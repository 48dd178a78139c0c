package xmp

import "github.com/beevik/etree"

// canonicalize rewrites the shorthand RDF forms XMP writers are allowed to
// use into the element form the rest of the package reads:
//
//   - simple properties written as attributes of rdf:Description become
//     child elements;
//   - structs written as a nested rdf:Description become
//     rdf:parseType="Resource" nodes with the fields as children.
func canonicalize(rdf *etree.Element) {
	for _, d := range rdf.ChildElements() {
		if is(d, NSRDF, "Description") {
			expandAttrs(d)
			inlineDescriptions(d)
		}
	}
}

// expandAttrs turns property attributes of e into leading child elements.
func expandAttrs(e *etree.Element) {
	var keep, props []etree.Attr
	for _, a := range e.Attr {
		if isPropertyAttr(e, a) {
			props = append(props, a)
		} else {
			keep = append(keep, a)
		}
	}
	if len(props) == 0 {
		return
	}
	e.Attr = keep
	for i, a := range props {
		f := etree.NewElement(a.Space + ":" + a.Key)
		f.SetText(a.Value)
		e.InsertChildAt(i, f)
	}
}

func inlineDescriptions(e *etree.Element) {
	for _, c := range e.ChildElements() {
		if is(c, NSRDF, "Description") {
			absorb(e, c)
		}
	}
	for _, c := range e.ChildElements() {
		inlineDescriptions(c)
	}
}

// absorb moves the fields of the nested description d into its parent e.
func absorb(e, d *etree.Element) {
	var fields []*etree.Element
	for _, a := range d.Attr {
		switch {
		case a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns"):
			if e.SelectAttr(a.FullKey()) == nil {
				e.CreateAttr(a.FullKey(), a.Value)
			}
		case isPropertyAttr(d, a):
			f := etree.NewElement(a.Space + ":" + a.Key)
			f.SetText(a.Value)
			fields = append(fields, f)
		}
	}
	for _, c := range d.ChildElements() {
		d.RemoveChild(c)
		fields = append(fields, c)
	}
	e.RemoveChild(d)
	for _, f := range fields {
		e.AddChild(f)
	}
	markStruct(e)
}

func isPropertyAttr(owner *etree.Element, a etree.Attr) bool {
	if a.Space == "" || a.Space == "xmlns" || a.Space == "xml" {
		return false
	}
	return resolvePrefix(owner, a.Space) != NSRDF
}
