package xmp

import (
	"strconv"

	"github.com/beevik/etree"
)

// propertyTree implements XMP property access over an etree document:
// scalar properties, arrays of scalars or structs, and struct fields, all
// addressed by path. Writes create missing structure on the way down.
type propertyTree struct {
	doc *etree.Document
}

func (t *propertyTree) root() *etree.Element {
	return t.doc.Root()
}

// rdf returns the rdf:RDF element, which is either the root or a child of
// the x:xmpmeta wrapper.
func (t *propertyTree) rdf() *etree.Element {
	return findRDF(t.root())
}

func findRDF(root *etree.Element) *etree.Element {
	if root == nil {
		return nil
	}
	if is(root, NSRDF, "RDF") {
		return root
	}
	for _, c := range root.ChildElements() {
		if is(c, NSRDF, "RDF") {
			return c
		}
	}
	return nil
}

func (t *propertyTree) descriptions() []*etree.Element {
	rdf := t.rdf()
	if rdf == nil {
		return nil
	}
	var out []*etree.Element
	for _, c := range rdf.ChildElements() {
		if is(c, NSRDF, "Description") {
			out = append(out, c)
		}
	}
	return out
}

// topProperty finds a top-level property in any rdf:Description.
func (t *propertyTree) topProperty(ns, name string) *etree.Element {
	for _, d := range t.descriptions() {
		if p := child(d, ns, name); p != nil {
			return p
		}
	}
	return nil
}

// find resolves path without modifying the tree. It returns nil when any
// step is absent.
func (t *propertyTree) find(schemaNS, expr string) (*etree.Element, error) {
	steps, err := parsePath(schemaNS, expr)
	if err != nil {
		return nil, err
	}
	cur := t.topProperty(steps[0].ns, steps[0].name)
	for i, s := range steps {
		if cur == nil {
			return nil, nil
		}
		if i > 0 {
			cur = child(cur, s.ns, s.name)
			if cur == nil {
				return nil, nil
			}
		}
		if s.index > 0 {
			items := arrayItems(cur)
			if s.index > len(items) {
				return nil, nil
			}
			cur = items[s.index-1]
		}
	}
	return cur, nil
}

// ensure resolves path, creating any missing property, struct field or
// next array slot. An index more than one past the end of an array is an
// error: arrays cannot have holes.
func (t *propertyTree) ensure(schemaNS, expr string) (*etree.Element, error) {
	steps, err := parsePath(schemaNS, expr)
	if err != nil {
		return nil, err
	}
	cur := t.topProperty(steps[0].ns, steps[0].name)
	if cur == nil {
		desc := t.descriptionFor(steps[0].ns)
		cur = desc.CreateElement(qualify(desc, steps[0].ns, steps[0].name))
	}
	for i, s := range steps {
		if i > 0 {
			f := child(cur, s.ns, s.name)
			if f == nil {
				markStruct(cur)
				f = cur.CreateElement(qualify(cur, s.ns, s.name))
			}
			cur = f
		}
		if s.index > 0 {
			isStruct := i < len(steps)-1
			cur, err = ensureItem(cur, s.index, isStruct)
			if err != nil {
				return nil, err
			}
		}
	}
	return cur, nil
}

// ensureItem returns the index-th item of the array property prop,
// appending it when index is exactly one past the end.
func ensureItem(prop *etree.Element, index int, isStruct bool) (*etree.Element, error) {
	bag := ensureContainer(prop)
	items := arrayItems(prop)
	switch {
	case index <= len(items):
		return items[index-1], nil
	case index == len(items)+1:
		li := bag.CreateElement(qualify(bag, NSRDF, "li"))
		if isStruct {
			markStruct(li)
		}
		return li, nil
	default:
		return nil, badPath("array index %d out of range (len %d)", index, len(items))
	}
}

// ensureContainer returns the rdf:Bag/Seq/Alt of an array property,
// creating an rdf:Bag when there is none.
func ensureContainer(prop *etree.Element) *etree.Element {
	if c := container(prop); c != nil {
		return c
	}
	clearChildren(prop)
	return prop.CreateElement(qualify(prop, NSRDF, "Bag"))
}

// markStruct flags e as an inline struct (rdf:parseType="Resource").
func markStruct(e *etree.Element) {
	for _, a := range e.Attr {
		if a.Key == "parseType" && resolvePrefix(e, a.Space) == NSRDF {
			return
		}
	}
	e.CreateAttr(qualify(e, NSRDF, "parseType"), "Resource")
}

// descriptionFor picks the rdf:Description to hold a new top-level
// property in ns: the one already declaring ns, else the first one. A
// description is created when the document has none.
func (t *propertyTree) descriptionFor(ns string) *etree.Element {
	descs := t.descriptions()
	for _, d := range descs {
		if _, ok := declaredPrefix(d, ns); ok {
			return d
		}
	}
	if len(descs) > 0 {
		return descs[0]
	}
	rdf := t.rdf()
	d := rdf.CreateElement(qualify(rdf, NSRDF, "Description"))
	d.CreateAttr(qualify(d, NSRDF, "about"), "")
	return d
}

// qualify returns "prefix:name" for ns as seen from e, declaring the
// namespace on the nearest rdf:Description (or e) when it is not in scope.
func qualify(e *etree.Element, ns, name string) string {
	if p, ok := findPrefix(e, ns); ok {
		return p + ":" + name
	}
	owner := e
	for p := e; p != nil; p = p.Parent() {
		if is(p, NSRDF, "Description") {
			owner = p
			break
		}
	}
	prefix := prefixes[ns]
	for n := 1; resolvePrefix(owner, prefix) != ""; n++ {
		prefix = prefixes[ns] + strconv.Itoa(n)
	}
	owner.CreateAttr("xmlns:"+prefix, ns)
	return prefix + ":" + name
}

// value returns the text of a scalar property node.
func value(e *etree.Element) string {
	return e.Text()
}

// setValue replaces everything inside e with text v.
func setValue(e *etree.Element, v string) {
	clearChildren(e)
	e.SetText(v)
}

func clearChildren(e *etree.Element) {
	for _, c := range append([]etree.Token(nil), e.Child...) {
		e.RemoveChild(c)
	}
}

// container returns the rdf:Bag, rdf:Seq or rdf:Alt inside an array
// property.
func container(prop *etree.Element) *etree.Element {
	for _, c := range prop.ChildElements() {
		if is(c, NSRDF, "Bag") || is(c, NSRDF, "Seq") || is(c, NSRDF, "Alt") {
			return c
		}
	}
	return nil
}

// arrayItems returns the rdf:li children of an array property.
func arrayItems(prop *etree.Element) []*etree.Element {
	c := container(prop)
	if c == nil {
		return nil
	}
	var out []*etree.Element
	for _, li := range c.ChildElements() {
		if is(li, NSRDF, "li") {
			out = append(out, li)
		}
	}
	return out
}

func child(e *etree.Element, ns, name string) *etree.Element {
	for _, c := range e.ChildElements() {
		if is(c, ns, name) {
			return c
		}
	}
	return nil
}

func is(e *etree.Element, ns, name string) bool {
	return e.Tag == name && resolvePrefix(e, e.Space) == ns
}

// resolvePrefix returns the namespace bound to prefix in scope at e, or ""
// when it is unbound. The empty prefix resolves the default namespace.
func resolvePrefix(e *etree.Element, prefix string) string {
	for p := e; p != nil; p = p.Parent() {
		for _, a := range p.Attr {
			if prefix == "" && a.Space == "" && a.Key == "xmlns" {
				return a.Value
			}
			if prefix != "" && a.Space == "xmlns" && a.Key == prefix {
				return a.Value
			}
		}
	}
	return ""
}

// findPrefix returns a prefix bound to ns in scope at e.
func findPrefix(e *etree.Element, ns string) (string, bool) {
	for p := e; p != nil; p = p.Parent() {
		if prefix, ok := declaredPrefix(p, ns); ok && resolvePrefix(e, prefix) == ns {
			return prefix, true
		}
	}
	return "", false
}

// declaredPrefix returns the prefix e itself declares for ns.
func declaredPrefix(e *etree.Element, ns string) (string, bool) {
	for _, a := range e.Attr {
		if a.Space == "xmlns" && a.Value == ns {
			return a.Key, true
		}
	}
	return "", false
}
