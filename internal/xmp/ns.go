package xmp

// Namespace URIs used by Live folder metadata. The URIs and field names are
// what Live reads, so they must match exactly.
const (
	NSMeta    = "adobe:ns:meta/"
	NSRDF     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NSDC      = "http://purl.org/dc/elements/1.1/"
	NSXMP     = "http://ns.adobe.com/xap/1.0/"
	NSAbleton = "https://ns.ableton.com/xmp/fs-resources/1.0/"
)

// Property and field names inside NSAbleton.
const (
	ItemsProperty  = "items"
	FilePathField  = "filePath"
	KeywordsField  = "keywords"
	ResourceMarker = "resource"
)

// prefixes maps registered namespace URIs to the prefix used in paths and,
// when a document does not declare the namespace yet, in new elements.
var prefixes = map[string]string{
	NSMeta:    "x",
	NSRDF:     "rdf",
	NSDC:      "dc",
	NSXMP:     "xmp",
	NSAbleton: "ablFR",
}

// uris is the inverse of prefixes.
var uris = func() map[string]string {
	m := make(map[string]string, len(prefixes))
	for uri, p := range prefixes {
		m[p] = uri
	}
	return m
}()

// Prefix returns the registered prefix for uri.
func Prefix(uri string) (string, bool) {
	p, ok := prefixes[uri]
	return p, ok
}
