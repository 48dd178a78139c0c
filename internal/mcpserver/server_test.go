package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/livetag/internal/storage"
	"github.com/starford/livetag/internal/tagservice"
	"github.com/starford/livetag/internal/testutil"
	"github.com/starford/livetag/internal/xmp"
	"github.com/starford/livetag/internal/xmp/xmptest"
)

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()
	_, store := testutil.TestLibrary(t, "Drums/bd1.wav", "Drums/bd2.wav", "Drums/sn1.wav")
	testutil.WriteMetadata(t, store, "Drums", xmptest.Folder)

	db := testutil.TestDB(t)
	svc := tagservice.NewService(store, tagservice.WithCatalog(db))
	if _, err := svc.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	return New(svc, store, "test"), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "add_tags":
		result, err = srv.applyTags(tagservice.OpAdd)(ctx, req)
	case "remove_tags":
		result, err = srv.applyTags(tagservice.OpRemove)(ctx, req)
	case "remove_all_tags":
		result, err = srv.applyTags(tagservice.OpRemoveAll)(ctx, req)
	case "list_tags":
		result, err = srv.listTags(ctx, req)
	case "search_files":
		result, err = srv.searchFiles(ctx, req)
	case "read_folder_metadata":
		result, err = srv.readFolderMetadata(ctx, req)
	case "get_tag_format":
		result, err = srv.getTagFormat(ctx, req)
	case "import_sample":
		result, err = srv.importSample(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func keywords(t *testing.T, store storage.Provider, folder string) map[string][]string {
	t.Helper()
	doc, err := xmp.FromString(testutil.ReadMetadata(t, store, folder))
	if err != nil {
		t.Fatal(err)
	}
	items, err := doc.Items()
	if err != nil {
		t.Fatal(err)
	}
	out := make(map[string][]string, len(items))
	for _, it := range items {
		out[it.Filename] = it.Keywords
	}
	return out
}

func TestAddTags(t *testing.T) {
	srv, store := testServer(t)

	r := callTool(t, srv, "add_tags", map[string]any{
		"include": "Drums/sn*.wav",
		"tags":    []any{"Drums|Snare"},
	})
	if r.IsError {
		t.Fatalf("dry run failed: %s", resultText(r))
	}
	var res tagservice.Result
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if !res.DryRun || res.Changed != 1 {
		t.Errorf("dry run result = %+v", res)
	}
	if testutil.ReadMetadata(t, store, "Drums") != xmptest.Folder {
		t.Fatal("dry run wrote the document")
	}

	r = callTool(t, srv, "add_tags", map[string]any{
		"include": "Drums/sn*.wav",
		"tags":    []any{"Drums|Snare"},
		"commit":  true,
	})
	if r.IsError {
		t.Fatalf("commit failed: %s", resultText(r))
	}
	if got := keywords(t, store, "Drums")["sn1.wav"]; len(got) != 1 || got[0] != "Drums|Snare" {
		t.Errorf("sn1.wav keywords = %v", got)
	}
}

func TestRemoveTags(t *testing.T) {
	srv, store := testServer(t)

	r := callTool(t, srv, "remove_tags", map[string]any{
		"include": "Drums/*",
		"tags":    []any{"Creator|17cupsofcoffee"},
		"commit":  true,
	})
	if r.IsError {
		t.Fatalf("remove failed: %s", resultText(r))
	}
	kw := keywords(t, store, "Drums")
	if len(kw["bd1.wav"]) != 1 || len(kw["bd2.wav"]) != 0 {
		t.Errorf("keywords = %v", kw)
	}

	r = callTool(t, srv, "remove_all_tags", map[string]any{"include": "Drums/*", "commit": true})
	if r.IsError {
		t.Fatalf("remove all failed: %s", resultText(r))
	}
	for name, tags := range keywords(t, store, "Drums") {
		if len(tags) != 0 {
			t.Errorf("%s still tagged: %v", name, tags)
		}
	}
}

func TestApplyTags_MissingArguments(t *testing.T) {
	srv, _ := testServer(t)

	if r := callTool(t, srv, "add_tags", map[string]any{"include": "*"}); !r.IsError {
		t.Error("expected error without tags")
	}
	if r := callTool(t, srv, "remove_all_tags", map[string]any{}); !r.IsError {
		t.Error("expected error without include")
	}
	if r := callTool(t, srv, "add_tags", map[string]any{"include": "[", "tags": []any{"x"}}); !r.IsError {
		t.Error("expected error for bad pattern")
	}
}

func TestListTags(t *testing.T) {
	srv, _ := testServer(t)

	text := resultText(callTool(t, srv, "list_tags", map[string]any{"include": "Drums/bd*.wav"}))
	if !strings.Contains(text, "Drums/bd1.wav") || !strings.Contains(text, "Drums|Kick") {
		t.Errorf("list = %q", text)
	}
	if text := resultText(callTool(t, srv, "list_tags", map[string]any{"include": "Loops/*"})); text != "no samples matched" {
		t.Errorf("empty list = %q", text)
	}
}

func TestSearchFiles(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "search_files", map[string]any{"query": "Creator"})
	if r.IsError {
		t.Fatalf("search failed: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "Drums/bd2.wav") {
		t.Errorf("search = %q", resultText(r))
	}
}

func TestReadFolderMetadata(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "read_folder_metadata", map[string]any{"folder": "Drums"})
	if r.IsError || !strings.Contains(resultText(r), "sn1.wav") {
		t.Errorf("read = %q", resultText(r))
	}
	if r := callTool(t, srv, "read_folder_metadata", map[string]any{"folder": "Nope"}); !r.IsError {
		t.Error("expected error for folder without document")
	}
}

func TestGetTagFormat(t *testing.T) {
	srv, _ := testServer(t)
	if text := resultText(callTool(t, srv, "get_tag_format", nil)); text != TagFormatContract {
		t.Error("tag format mismatch")
	}
}

func wavDataURI() string {
	wav := append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 28)...)
	return "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(wav)
}

func TestImportSample(t *testing.T) {
	srv, store := testServer(t)

	r := callTool(t, srv, "import_sample", map[string]any{
		"url":      wavDataURI(),
		"folder":   "Drums",
		"filename": "bd3.wav",
		"tags":     []any{"Drums|Kick"},
	})
	if r.IsError {
		t.Fatalf("import failed: %s", resultText(r))
	}
	var res importResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if res.Path != "Drums/bd3.wav" || res.Result == nil || res.Result.Changed != 1 {
		t.Errorf("import result = %+v", res)
	}
	if ok, _ := store.Exists("Drums/bd3.wav"); !ok {
		t.Error("sample not written")
	}
	if got := keywords(t, store, "Drums")["bd3.wav"]; len(got) != 1 || got[0] != "Drums|Kick" {
		t.Errorf("bd3.wav keywords = %v", got)
	}

	r = callTool(t, srv, "import_sample", map[string]any{"url": wavDataURI(), "folder": "Drums", "filename": "bd3.wav"})
	if !r.IsError {
		t.Error("expected error for existing sample")
	}
}

func TestImportSample_Rejected(t *testing.T) {
	srv, _ := testServer(t)

	cases := []struct {
		name string
		args map[string]any
	}{
		{"bad mime", map[string]any{"url": "data:image/png;base64,iVBORw0KGgo="}},
		{"not base64", map[string]any{"url": "data:audio/wav,RIFF"}},
		{"content mismatch", map[string]any{"url": "data:audio/wav;base64," + base64.StdEncoding.EncodeToString([]byte("hello"))}},
		{"wrong extension", map[string]any{"url": wavDataURI(), "filename": "notes.txt"}},
		{"escaping folder", map[string]any{"url": wavDataURI(), "folder": "../up"}},
		{"metadata folder", map[string]any{"url": wavDataURI(), "folder": "Drums/Ableton Folder Info"}},
		{"loopback", map[string]any{"url": "http://127.0.0.1/kick.wav"}},
		{"scheme", map[string]any{"url": "ftp://example.com/kick.wav"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if r := callTool(t, srv, "import_sample", c.args); !r.IsError {
				t.Errorf("expected error, got %q", resultText(r))
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"kick.wav":          "kick.wav",
		"../../etc/x.wav":   "x.wav",
		`..\evil.wav`:       "evil.wav",
		"kick (take 2).wav": "kick _take 2_.wav",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
