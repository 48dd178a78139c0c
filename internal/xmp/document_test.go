package xmp

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/livetag/internal/xmp/xmptest"
)

func mustSelector(t *testing.T, i int) ItemSelector {
	t.Helper()
	sel, err := NewItemSelector(i)
	if err != nil {
		t.Fatalf("NewItemSelector(%d): %v", i, err)
	}
	return sel
}

func mustParse(t *testing.T, data string) *Document {
	t.Helper()
	d, err := FromString(data)
	if err != nil {
		t.Fatalf("FromString: %v", err)
	}
	return d
}

func mustXML(t *testing.T, d *Document) string {
	t.Helper()
	out, err := d.ToXML()
	if err != nil {
		t.Fatalf("ToXML: %v", err)
	}
	return out
}

func TestNew_Empty(t *testing.T) {
	d, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.IsDirty() {
		t.Error("new document should not be dirty")
	}
	if n := d.ItemCount(); n != 0 {
		t.Errorf("ItemCount = %d, want 0", n)
	}
	format, ok, err := d.Property(NSDC, "format")
	if err != nil || !ok || format != "application/vnd.ableton.folder" {
		t.Errorf("dc:format = %q, %v, %v", format, ok, err)
	}
	resource, ok, _ := d.Property(NSAbleton, ResourceMarker)
	if !ok || resource != "folder" {
		t.Errorf("ablFR:resource = %q, %v", resource, ok)
	}
}

func TestFromString_Existing(t *testing.T) {
	d := mustParse(t, xmptest.Folder)
	if d.IsDirty() {
		t.Error("loaded document should not be dirty")
	}
	if n := d.ItemCount(); n != 3 {
		t.Fatalf("ItemCount = %d, want 3", n)
	}

	sel := mustSelector(t, 1)
	name, err := d.Filename(sel)
	if err != nil || name != "bd1.wav" {
		t.Fatalf("Filename = %q, %v", name, err)
	}
	if n := d.KeywordCount(sel); n != 2 {
		t.Errorf("KeywordCount = %d, want 2", n)
	}
	kw, err := d.Keyword(sel, 2)
	if err != nil || kw != "Creator|17cupsofcoffee" {
		t.Errorf("Keyword(2) = %q, %v", kw, err)
	}

	third := mustSelector(t, 3)
	if d.HasKeywords(third) {
		t.Error("sn1.wav should have no keywords field")
	}
	if n := d.KeywordCount(third); n != 0 {
		t.Errorf("KeywordCount = %d, want 0", n)
	}
}

func TestFromString_Invalid(t *testing.T) {
	cases := map[string]string{
		"malformed": `<x:xmpmeta x:xmptk=>`,
		"empty":     "",
		"no rdf":    "<note><body>hi</body></note>",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromString(data)
			if !errors.Is(err, ErrFormat) {
				t.Errorf("err = %v, want ErrFormat", err)
			}
		})
	}
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "folder.xmp")
	if err := os.WriteFile(path, []byte(xmptest.Single), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if d.ItemCount() != 1 {
		t.Errorf("ItemCount = %d, want 1", d.ItemCount())
	}

	_, err = FromFile(filepath.Join(dir, "missing.xmp"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v, want ErrNotExist", err)
	}

	bad := filepath.Join(dir, "bad.xmp")
	_ = os.WriteFile(bad, []byte(`<x:xmpmeta x:xmptk=>`), 0o644)
	if _, err := FromFile(bad); !errors.Is(err, ErrFormat) {
		t.Errorf("bad file err = %v, want ErrFormat", err)
	}
}

func TestFilename_Missing(t *testing.T) {
	d, _ := New()
	_, err := d.Filename(mustSelector(t, 1))
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("err = %v, want ErrMissingField", err)
	}
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Path != "items[1]/ablFR:filePath" {
		t.Errorf("FieldError = %+v", fe)
	}
}

func TestKeyword_OutOfRange(t *testing.T) {
	d := mustParse(t, xmptest.Single)
	if _, err := d.Keyword(mustSelector(t, 1), 2); !errors.Is(err, ErrMissingField) {
		t.Errorf("err = %v, want ErrMissingField", err)
	}
}

func TestSetFilename_CreatesItem(t *testing.T) {
	d, _ := New()
	sel := mustSelector(t, 1)
	if err := d.SetFilename(sel, "snare.wav"); err != nil {
		t.Fatalf("SetFilename: %v", err)
	}
	if !d.IsDirty() {
		t.Error("SetFilename should mark dirty")
	}
	if d.ItemCount() != 1 {
		t.Fatalf("ItemCount = %d, want 1", d.ItemCount())
	}
	got, err := d.Filename(sel)
	if err != nil || got != "snare.wav" {
		t.Errorf("Filename = %q, %v", got, err)
	}

	// Overwrite in place.
	if err := d.SetFilename(sel, "snare2.wav"); err != nil {
		t.Fatal(err)
	}
	if d.ItemCount() != 1 {
		t.Errorf("overwrite changed ItemCount to %d", d.ItemCount())
	}
}

func TestSetFilename_NoHoles(t *testing.T) {
	d, _ := New()
	err := d.SetFilename(mustSelector(t, 3), "x.wav")
	if !errors.Is(err, ErrBadPath) {
		t.Errorf("err = %v, want ErrBadPath", err)
	}
}

func TestPushAndDeleteKeywords(t *testing.T) {
	d, _ := New()
	sel := mustSelector(t, 1)
	_ = d.SetFilename(sel, "hat.wav")

	for _, kw := range []string{"A", "X", "B"} {
		if err := d.PushKeyword(sel, kw); err != nil {
			t.Fatalf("PushKeyword: %v", err)
		}
	}
	if !d.HasKeywords(sel) || d.KeywordCount(sel) != 3 {
		t.Fatalf("KeywordCount = %d, want 3", d.KeywordCount(sel))
	}

	if err := d.DeleteKeyword(sel, 1); err != nil {
		t.Fatalf("DeleteKeyword: %v", err)
	}
	kws, err := d.Keywords(sel)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(kws, ",") != "X,B" {
		t.Errorf("keywords = %v, want [X B]", kws)
	}

	if err := d.DeleteKeywords(sel); err != nil {
		t.Fatalf("DeleteKeywords: %v", err)
	}
	if d.HasKeywords(sel) {
		t.Error("keywords field should be gone")
	}
	if d.KeywordCount(sel) != 0 {
		t.Errorf("KeywordCount = %d, want 0", d.KeywordCount(sel))
	}
	if name, _ := d.Filename(sel); name != "hat.wav" {
		t.Errorf("item lost its filename: %q", name)
	}
}

func TestDeleteKeywords_AbsentStillDirty(t *testing.T) {
	d := mustParse(t, xmptest.Folder)
	if err := d.DeleteKeywords(mustSelector(t, 3)); err != nil {
		t.Fatal(err)
	}
	if !d.IsDirty() {
		t.Error("DeleteKeywords marks dirty even when the field is absent")
	}
	if d.ItemCount() != 3 {
		t.Errorf("ItemCount = %d, want 3", d.ItemCount())
	}
}

func TestToXML_Stable(t *testing.T) {
	d := mustParse(t, xmptest.Folder)
	first := mustXML(t, d)
	second := mustXML(t, d)
	if first != second {
		t.Fatal("repeated serialization differs")
	}

	again := mustXML(t, mustParse(t, first))
	if again != first {
		t.Errorf("round trip differs:\n%s\n---\n%s", first, again)
	}
}

func TestToXML_Format(t *testing.T) {
	d := mustParse(t, xmptest.Folder)
	out := mustXML(t, d)

	if strings.Contains(out, "xpacket") {
		t.Error("packet wrapper should be dropped")
	}
	if !strings.HasPrefix(out, "<x:xmpmeta") {
		t.Errorf("output should start with x:xmpmeta, got %q", out[:20])
	}
	if !strings.Contains(out, "\n    <rdf:RDF") {
		t.Error("expected four-space indentation")
	}
	if !strings.Contains(out, "<ablFR:filePath>bd1.wav</ablFR:filePath>") {
		t.Error("filePath missing from output")
	}
}

func TestToXML_AfterMutation(t *testing.T) {
	d, _ := New()
	sel := mustSelector(t, 1)
	_ = d.SetFilename(sel, "kick.wav")
	_ = d.PushKeyword(sel, "Drums|Kick")

	out := mustXML(t, d)
	back := mustParse(t, out)
	got, err := back.Keyword(sel, 1)
	if err != nil || got != "Drums|Kick" {
		t.Errorf("Keyword after round trip = %q, %v", got, err)
	}
	if !strings.Contains(out, `rdf:parseType="Resource"`) {
		t.Error("new item should be an inline struct")
	}
}

func TestCompactForms(t *testing.T) {
	d := mustParse(t, xmptest.Compact)
	resource, ok, _ := d.Property(NSAbleton, ResourceMarker)
	if !ok || resource != "folder" {
		t.Errorf("resource = %q, %v", resource, ok)
	}
	sel := mustSelector(t, 1)
	name, err := d.Filename(sel)
	if err != nil || name != "hat.wav" {
		t.Fatalf("Filename = %q, %v", name, err)
	}
	if d.KeywordCount(sel) != 1 {
		t.Errorf("KeywordCount = %d, want 1", d.KeywordCount(sel))
	}

	// New fields reuse the document's own prefix.
	second := mustSelector(t, 2)
	_ = d.SetFilename(second, "loop.wav")
	_ = d.PushKeyword(second, "Loop")
	out := mustXML(t, d)
	if strings.Contains(out, "ablFR:") {
		t.Errorf("unexpected ablFR prefix in:\n%s", out)
	}
	if !strings.Contains(out, "<abl:filePath>loop.wav</abl:filePath>") {
		t.Errorf("expected abl:filePath in:\n%s", out)
	}
}

func TestStamps(t *testing.T) {
	d, _ := New()
	if err := d.SetCreatorTool("Updated by LiveTagger"); err != nil {
		t.Fatal(err)
	}
	if err := d.UpdateCreateDate(); err != nil {
		t.Fatal(err)
	}
	if err := d.UpdateMetadataDate(); err != nil {
		t.Fatal(err)
	}
	if !d.IsDirty() {
		t.Error("stamps should mark dirty")
	}
	tool, _, _ := d.Property(NSXMP, "CreatorTool")
	if tool != "Updated by LiveTagger" {
		t.Errorf("CreatorTool = %q", tool)
	}
	for _, name := range []string{"CreateDate", "MetadataDate"} {
		v, ok, _ := d.Property(NSXMP, name)
		if !ok {
			t.Fatalf("%s missing", name)
		}
		if _, err := time.Parse(time.RFC3339, v); err != nil {
			t.Errorf("%s = %q: %v", name, v, err)
		}
	}
}

func TestStamps_DeclareNamespace(t *testing.T) {
	d := mustParse(t, xmptest.Single)
	if err := d.SetCreatorTool("Updated by LiveTagger"); err != nil {
		t.Fatal(err)
	}
	out := mustXML(t, d)
	if !strings.Contains(out, `xmlns:xmp="http://ns.adobe.com/xap/1.0/"`) {
		t.Errorf("xmp namespace not declared:\n%s", out)
	}
	back := mustParse(t, out)
	if v, ok, _ := back.Property(NSXMP, "CreatorTool"); !ok || v != "Updated by LiveTagger" {
		t.Errorf("CreatorTool = %q, %v", v, ok)
	}
}

func TestItems(t *testing.T) {
	d := mustParse(t, xmptest.Folder)
	items, err := d.Items()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	if items[0].Filename != "bd1.wav" || len(items[0].Keywords) != 2 {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[2].Filename != "sn1.wav" || len(items[2].Keywords) != 0 {
		t.Errorf("items[2] = %+v", items[2])
	}
}
