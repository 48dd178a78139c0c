package xmp

import (
	"strconv"
	"strings"
)

// Path addresses a property inside a document. The first step may omit its
// prefix, in which case it belongs to the schema namespace passed alongside
// the path. Array marks paths whose target is an array, so writes through it
// create an rdf:Bag.
type Path struct {
	Expr  string
	Array bool
}

func (p Path) String() string {
	return p.Expr
}

// ComposeArrayItemPath returns the path of the index-th (1-based) item of
// the array at arrayPath.
func ComposeArrayItemPath(schemaNS, arrayPath string, index int) (string, error) {
	if _, ok := prefixes[schemaNS]; !ok {
		return "", badPath("unregistered namespace %q", schemaNS)
	}
	if arrayPath == "" {
		return "", badPath("empty array name")
	}
	if index < 1 {
		return "", badPath("array index %d out of range", index)
	}
	return arrayPath + "[" + strconv.Itoa(index) + "]", nil
}

// ComposeStructFieldPath returns the path of field fieldName (in fieldNS)
// inside the struct at structPath.
func ComposeStructFieldPath(schemaNS, structPath, fieldNS, fieldName string) (string, error) {
	if _, ok := prefixes[schemaNS]; !ok {
		return "", badPath("unregistered namespace %q", schemaNS)
	}
	prefix, ok := prefixes[fieldNS]
	if !ok {
		return "", badPath("unregistered namespace %q", fieldNS)
	}
	if structPath == "" || fieldName == "" {
		return "", badPath("empty struct or field name")
	}
	return structPath + "/" + prefix + ":" + fieldName, nil
}

// ItemSelector holds the paths needed to address one item of the items
// array. It does not check that the item exists.
type ItemSelector struct {
	Index    int
	Item     Path
	Filename Path
	Keywords Path
}

// NewItemSelector builds the selector for the i-th (1-based) item.
func NewItemSelector(i int) (ItemSelector, error) {
	item, err := ComposeArrayItemPath(NSAbleton, ItemsProperty, i)
	if err != nil {
		return ItemSelector{}, err
	}
	filename, err := ComposeStructFieldPath(NSAbleton, item, NSAbleton, FilePathField)
	if err != nil {
		return ItemSelector{}, err
	}
	keywords, err := ComposeStructFieldPath(NSAbleton, item, NSAbleton, KeywordsField)
	if err != nil {
		return ItemSelector{}, err
	}
	return ItemSelector{
		Index:    i,
		Item:     Path{Expr: item},
		Filename: Path{Expr: filename},
		Keywords: Path{Expr: keywords, Array: true},
	}, nil
}

// step is one resolved component of a path.
type step struct {
	ns    string
	name  string
	index int // 1-based array index, 0 when the step is not indexed
}

// parsePath splits expr into steps, resolving prefixes against the
// registry. The first step defaults to schemaNS.
func parsePath(schemaNS, expr string) ([]step, error) {
	if _, ok := prefixes[schemaNS]; !ok {
		return nil, badPath("unregistered namespace %q", schemaNS)
	}
	if expr == "" {
		return nil, badPath("empty path")
	}
	parts := strings.Split(expr, "/")
	steps := make([]step, 0, len(parts))
	for i, part := range parts {
		s := step{}
		if open := strings.IndexByte(part, '['); open >= 0 {
			if !strings.HasSuffix(part, "]") {
				return nil, badPath("unterminated index in %q", part)
			}
			n, err := strconv.Atoi(part[open+1 : len(part)-1])
			if err != nil || n < 1 {
				return nil, badPath("invalid index in %q", part)
			}
			s.index = n
			part = part[:open]
		}
		if prefix, name, ok := strings.Cut(part, ":"); ok {
			uri, known := uris[prefix]
			if !known {
				return nil, badPath("unknown prefix %q", prefix)
			}
			s.ns, s.name = uri, name
		} else {
			if i > 0 {
				return nil, badPath("struct field %q needs a prefix", part)
			}
			s.ns, s.name = schemaNS, part
		}
		if s.name == "" {
			return nil, badPath("empty name in %q", expr)
		}
		steps = append(steps, s)
	}
	return steps, nil
}
