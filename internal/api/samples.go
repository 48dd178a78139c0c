package api

import (
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/starford/livetag/internal/discovery"
	"github.com/starford/livetag/internal/samples"
	"github.com/starford/livetag/internal/storage"
	"github.com/starford/livetag/internal/tagservice"
)

const maxUploadBytes = 200 << 20 // 200 MB

// SampleHandler serves and accepts sample files.
type SampleHandler struct {
	store storage.Provider
	svc   *tagservice.Service
}

// NewSampleHandler creates a handler for the library behind store.
func NewSampleHandler(store storage.Provider, svc *tagservice.Service) *SampleHandler {
	return &SampleHandler{store: store, svc: svc}
}

// samplePath validates that rel names a taggable sample inside the library
// and returns it cleaned.
func samplePath(rel string) (string, bool) {
	if rel == "" || strings.HasPrefix(rel, "/") {
		return "", false
	}
	cleaned := path.Clean(rel)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	if samples.IsMetadata(cleaned) || !samples.IsSupported(cleaned) {
		return "", false
	}
	return cleaned, true
}

// ServeFile handles GET /api/samples/* for previewing a sample.
func (h *SampleHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	rel, ok := samplePath(wildcardPath(r))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("not a sample path"))
		return
	}
	exists, err := h.store.Exists(rel)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if !exists {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	http.ServeFileFS(w, r, h.store.FS(), rel)
}

// Upload handles POST /api/samples (multipart/form-data, field "file").
// The optional "folder" field picks the destination folder and every
// "tags" field is added to the new sample.
func (h *SampleHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	// Reject anything with path separators in the file name itself.
	name := header.Filename
	if name == "" || strings.ContainsAny(name, `/\`) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid filename: "+name))
		return
	}
	folder := r.FormValue("folder")
	if folder == "" {
		folder = "."
	}
	rel, ok := samplePath(path.Join(folder, name))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("not a supported sample: "+name))
		return
	}

	exists, err := h.store.Exists(rel)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if exists {
		writeJSON(w, http.StatusConflict, errorBody("sample already exists"))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}
	if err := h.store.Write(rel, data); err != nil {
		writeError(w, "upload sample", err)
		return
	}

	resp := SampleUploadResponse{Path: rel, Size: int64(len(data))}
	if tags := r.MultipartForm.Value["tags"]; len(tags) > 0 {
		res, err := h.svc.Apply(r.Context(), tagservice.Request{
			Op:      tagservice.OpAdd,
			Include: discovery.Escape(rel),
			Tags:    tags,
			Commit:  true,
		})
		if err != nil {
			writeError(w, "tag uploaded sample", err)
			return
		}
		resp.Result = res
	}
	writeJSON(w, http.StatusCreated, resp)
}
