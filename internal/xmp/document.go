// Package xmp reads and writes the XMP documents Ableton Live keeps for
// sample folders. A Document exposes the items array (one struct per tagged
// file, with a filePath and a keywords bag) through typed accessors and
// remembers whether anything was changed since it was created or loaded.
package xmp

import (
	"fmt"
	"os"
	"time"

	"github.com/beevik/etree"

	"github.com/starford/livetag/internal/models"
)

const template = `<x:xmpmeta xmlns:x="adobe:ns:meta/" x:xmptk="XMP Core 5.6.0">
    <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
        <rdf:Description rdf:about="" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:ablFR="https://ns.ableton.com/xmp/fs-resources/1.0/" xmlns:xmp="http://ns.adobe.com/xap/1.0/">
            <dc:format>application/vnd.ableton.folder</dc:format>
            <ablFR:resource>folder</ablFR:resource>
            <ablFR:items>
                <rdf:Bag></rdf:Bag>
            </ablFR:items>
        </rdf:Description>
    </rdf:RDF>
</x:xmpmeta>`

const indent = 4

// Document is Live metadata for one folder.
type Document struct {
	tree  propertyTree
	dirty bool
}

// New returns an empty document with no items.
func New() (*Document, error) {
	d, err := FromString(template)
	if err != nil {
		return nil, fmt.Errorf("xmp: template: %w", err)
	}
	return d, nil
}

// FromString parses a document. Any <?xpacket?> wrapper or XML declaration
// is dropped; shorthand RDF forms are rewritten into element form.
func FromString(data string) (*Document, error) {
	parsed := etree.NewDocument()
	if err := parsed.ReadFromString(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	root := parsed.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrFormat)
	}
	rdf := findRDF(root)
	if rdf == nil {
		return nil, fmt.Errorf("%w: no rdf:RDF element", ErrFormat)
	}
	canonicalize(rdf)

	doc := etree.NewDocument()
	doc.SetRoot(root)
	return &Document{tree: propertyTree{doc: doc}}, nil
}

// FromFile reads and parses the document at path.
func FromFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("xmp: read %s: %w", path, err)
	}
	d, err := FromString(string(data))
	if err != nil {
		return nil, fmt.Errorf("xmp: load %s: %w", path, err)
	}
	return d, nil
}

// ToXML serializes the document with four-space indentation and no packet
// wrapper. Equal trees always serialize to identical bytes.
func (d *Document) ToXML() (string, error) {
	d.tree.doc.Indent(indent)
	out, err := d.tree.doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("xmp: serialize: %w", err)
	}
	return out, nil
}

// IsDirty reports whether the document changed since it was created or loaded.
func (d *Document) IsDirty() bool {
	return d.dirty
}

// SetCreatorTool sets xmp:CreatorTool.
func (d *Document) SetCreatorTool(value string) error {
	return d.set(NSXMP, "CreatorTool", value)
}

// UpdateCreateDate sets xmp:CreateDate to the current time.
func (d *Document) UpdateCreateDate() error {
	return d.set(NSXMP, "CreateDate", now())
}

// UpdateMetadataDate sets xmp:MetadataDate to the current time.
func (d *Document) UpdateMetadataDate() error {
	return d.set(NSXMP, "MetadataDate", now())
}

// Property returns a scalar property, reporting false when it is absent.
func (d *Document) Property(ns, path string) (string, bool, error) {
	e, err := d.tree.find(ns, path)
	if err != nil || e == nil {
		return "", false, err
	}
	return value(e), true, nil
}

// ItemCount returns the current length of the items array.
func (d *Document) ItemCount() int {
	return d.arrayLen(NSAbleton, ItemsProperty)
}

// Filename returns the filePath of the selected item.
func (d *Document) Filename(item ItemSelector) (string, error) {
	v, ok, err := d.Property(NSAbleton, item.Filename.Expr)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", missing(item.Filename.Expr)
	}
	return v, nil
}

// SetFilename sets the filePath of the selected item, creating the item
// when it is the next free slot.
func (d *Document) SetFilename(item ItemSelector, value string) error {
	return d.set(NSAbleton, item.Filename.Expr, value)
}

// HasKeywords reports whether the selected item has a keywords field,
// empty or not.
func (d *Document) HasKeywords(item ItemSelector) bool {
	e, err := d.tree.find(NSAbleton, item.Keywords.Expr)
	return err == nil && e != nil
}

// KeywordCount returns the number of keywords of the selected item; zero
// when the field is absent.
func (d *Document) KeywordCount(item ItemSelector) int {
	return d.arrayLen(NSAbleton, item.Keywords.Expr)
}

// Keyword returns the i-th (1-based) keyword of the selected item.
func (d *Document) Keyword(item ItemSelector, i int) (string, error) {
	path, err := ComposeArrayItemPath(NSAbleton, item.Keywords.Expr, i)
	if err != nil {
		return "", err
	}
	v, ok, err := d.Property(NSAbleton, path)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", missing(path)
	}
	return v, nil
}

// Keywords returns every keyword of the selected item in document order.
func (d *Document) Keywords(item ItemSelector) ([]string, error) {
	n := d.KeywordCount(item)
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		kw, err := d.Keyword(item, i)
		if err != nil {
			return nil, err
		}
		out = append(out, kw)
	}
	return out, nil
}

// PushKeyword appends value to the keywords of the selected item, creating
// the field when needed. It does not deduplicate.
func (d *Document) PushKeyword(item ItemSelector, value string) error {
	e, err := d.tree.ensure(NSAbleton, item.Keywords.Expr)
	if err != nil {
		return err
	}
	bag := ensureContainer(e)
	li := bag.CreateElement(qualify(bag, NSRDF, "li"))
	li.SetText(value)
	d.dirty = true
	return nil
}

// DeleteKeyword removes the i-th (1-based) keyword of the selected item.
// Later keywords move down by one.
func (d *Document) DeleteKeyword(item ItemSelector, i int) error {
	path, err := ComposeArrayItemPath(NSAbleton, item.Keywords.Expr, i)
	if err != nil {
		return err
	}
	return d.delete(NSAbleton, path)
}

// DeleteKeywords removes the keywords field of the selected item entirely.
// The document is marked dirty even when the field was already absent.
func (d *Document) DeleteKeywords(item ItemSelector) error {
	return d.delete(NSAbleton, item.Keywords.Expr)
}

// Items returns a snapshot of every item. Items without a filePath are
// reported with an empty filename.
func (d *Document) Items() ([]models.Item, error) {
	n := d.ItemCount()
	out := make([]models.Item, 0, n)
	for i := 1; i <= n; i++ {
		sel, err := NewItemSelector(i)
		if err != nil {
			return nil, err
		}
		name, _, err := d.Property(NSAbleton, sel.Filename.Expr)
		if err != nil {
			return nil, err
		}
		kws, err := d.Keywords(sel)
		if err != nil {
			return nil, err
		}
		out = append(out, models.Item{Filename: name, Keywords: kws})
	}
	return out, nil
}

func (d *Document) arrayLen(ns, path string) int {
	e, err := d.tree.find(ns, path)
	if err != nil || e == nil {
		return 0
	}
	return len(arrayItems(e))
}

func (d *Document) set(ns, path, v string) error {
	e, err := d.tree.ensure(ns, path)
	if err != nil {
		return err
	}
	setValue(e, v)
	d.dirty = true
	return nil
}

func (d *Document) delete(ns, path string) error {
	e, err := d.tree.find(ns, path)
	if err != nil {
		return err
	}
	if e != nil {
		e.Parent().RemoveChild(e)
	}
	d.dirty = true
	return nil
}

// now formats the current time as an XMP date.
func now() string {
	return time.Now().Format(time.RFC3339)
}
