package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/livetag/internal/discovery"
	"github.com/starford/livetag/internal/samples"
	"github.com/starford/livetag/internal/tagservice"
)

const maxSampleSize = 200 << 20 // 200 MB

var (
	mimeToExt = map[string]string{
		"audio/wav":    ".wav",
		"audio/x-wav":  ".wav",
		"audio/wave":   ".wav",
		"audio/aiff":   ".aiff",
		"audio/x-aiff": ".aiff",
		"audio/flac":   ".flac",
		"audio/x-flac": ".flac",
		"audio/ogg":    ".ogg",
		"audio/mpeg":   ".mp3",
		"audio/mp4":    ".m4a",
		"video/mp4":    ".mp4",
	}

	safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9 ._-]`)
)

type importResult struct {
	Path   string             `json:"path"`
	Size   int                `json:"size"`
	Result *tagservice.Result `json:"result,omitempty"`
}

func (s *Server) importSample(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	folder := path.Clean(req.GetString("folder", "."))
	if path.IsAbs(folder) || folder == ".." || strings.HasPrefix(folder, "../") || samples.IsFolderMetadata(folder) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid folder: %s", folder)), nil
	}
	filename := req.GetString("filename", "")
	tags := req.GetStringSlice("tags", nil)

	var data []byte
	var detectedExt string

	if strings.HasPrefix(rawURL, "data:") {
		data, detectedExt, err = decodeDataURI(rawURL)
	} else {
		data, detectedExt, err = fetchHTTP(ctx, rawURL)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(data) > maxSampleSize {
		return mcp.NewToolResultError(fmt.Sprintf("file too large: %d bytes (max %d)", len(data), maxSampleSize)), nil
	}

	if filename == "" {
		filename = filenameFromURL(rawURL, detectedExt)
	}
	filename = sanitizeFilename(filename)

	if !samples.IsSupported(filename) {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported file extension: %s (allowed: wav, wave, aif, aiff, flac, ogg, mp3, mp4, m4a)", path.Ext(filename))), nil
	}

	if err := validateMagicBytes(data, path.Ext(filename)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	savePath := path.Join(folder, filename)

	if ok, _ := s.store.Exists(savePath); ok {
		return mcp.NewToolResultError(fmt.Sprintf("file already exists: %s", savePath)), nil
	}

	if err := s.store.Write(savePath, data); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save sample: %v", err)), nil
	}

	out := importResult{Path: savePath, Size: len(data)}
	if len(tags) > 0 {
		res, err := s.svc.Apply(ctx, tagservice.Request{
			Op:      tagservice.OpAdd,
			Include: discovery.Escape(savePath),
			Tags:    tags,
			Commit:  true,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("saved %s but tagging failed: %v", savePath, err)), nil
		}
		out.Result = res
	}

	body, _ := json.Marshal(out)
	return mcp.NewToolResultText(string(body)), nil
}

// decodeDataURI parses a data:[<mediatype>][;base64],<data> URI.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}

	meta := rest[:commaIdx]
	encoded := rest[commaIdx+1:]

	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	ext := mimeToExt[mime]
	if ext == "" {
		return nil, "", fmt.Errorf("unsupported MIME type in data URI: %s", mime)
	}
	return data, ext, nil
}

// fetchHTTP downloads a sample from an HTTP/HTTPS URL with security checks.
func fetchHTTP(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported scheme: %s (only http/https)", parsed.Scheme)
	}

	if err := checkBlockedHost(parsed.Hostname()); err != nil {
		return nil, "", err
	}

	client := &http.Client{
		Timeout: 2 * time.Minute,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, maxSampleSize+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, "", fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxSampleSize {
		return nil, "", fmt.Errorf("file too large: exceeds %d bytes", maxSampleSize)
	}

	ct := resp.Header.Get("Content-Type")
	ext := mimeToExt[strings.Split(ct, ";")[0]]
	return data, ext, nil
}

// checkBlockedHost rejects loopback and cloud metadata addresses.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ip = ips[0]
	}

	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	// AWS/GCP/Azure metadata endpoint.
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}

// filenameFromURL tries to extract a filename from a URL, falling back to UUID.
func filenameFromURL(rawURL string, fallbackExt string) string {
	ext := fallbackExt
	if ext == "" {
		ext = ".wav"
	}
	if strings.HasPrefix(rawURL, "data:") {
		return uuid.New().String() + ext
	}

	parsed, err := url.Parse(rawURL)
	if err == nil {
		base := path.Base(parsed.Path)
		if base != "" && base != "." && base != "/" && strings.Contains(base, ".") {
			return base
		}
	}
	return uuid.New().String() + ext
}

// sanitizeFilename strips path separators and unsafe characters.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = safeFilenameRe.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." {
		name = uuid.New().String()
	}
	return name
}

// validateMagicBytes verifies file content matches the declared extension.
func validateMagicBytes(data []byte, ext string) error {
	at := func(off int, magic string) bool {
		return len(data) >= off+len(magic) && bytes.Equal(data[off:off+len(magic)], []byte(magic))
	}

	var ok bool
	switch strings.ToLower(ext) {
	case ".wav", ".wave":
		ok = at(0, "RIFF") && at(8, "WAVE")
	case ".aif", ".aiff":
		ok = at(0, "FORM") && (at(8, "AIFF") || at(8, "AIFC"))
	case ".flac":
		ok = at(0, "fLaC")
	case ".ogg":
		ok = at(0, "OggS")
	case ".mp3":
		ok = at(0, "ID3") || (len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0)
	case ".mp4", ".m4a":
		ok = at(4, "ftyp")
	}
	if !ok {
		return fmt.Errorf("content does not match extension %s (detected: %s)", ext, http.DetectContentType(data))
	}
	return nil
}
