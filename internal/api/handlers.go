package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/livetag/internal/sse"
	"github.com/starford/livetag/internal/tagservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *tagservice.Service
	events Events
}

// NewHandler creates a new Handler. events may be nil.
func NewHandler(svc *tagservice.Service, events Events) *Handler {
	return &Handler{svc: svc, events: events}
}

// wildcardPath extracts the library path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. Drums%2FKicks).
func wildcardPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListFolders handles GET /api/folders.
//
//	@Summary		List catalogued folders
//	@Tags			catalog
//	@Produce		json
//	@Success		200		{object}	FolderListResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders [get]
func (h *Handler) ListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.svc.Folders(r.Context())
	if err != nil {
		writeError(w, "list folders", err)
		return
	}
	writeJSON(w, http.StatusOK, FolderListResponse{Folders: nonNil(folders)})
}

// GetFolder handles GET /api/folders/*. The folder document is read from
// disk, not from the catalog.
//
//	@Summary		Get the metadata of one folder
//	@Tags			catalog
//	@Produce		json
//	@Param			path	path		string	true	"Folder path relative to the library root"
//	@Param			xml		query		bool	false	"Include the serialized document"
//	@Success		200		{object}	FolderDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders/{path} [get]
func (h *Handler) GetFolder(w http.ResponseWriter, r *http.Request) {
	folder := wildcardPath(r)
	if folder == "" {
		folder = "."
	}
	withXML, _ := strconv.ParseBool(r.URL.Query().Get("xml"))
	detail, err := h.svc.Folder(r.Context(), folder, withXML)
	if err != nil {
		writeError(w, "get folder", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// ListFiles handles GET /api/files.
//
//	@Summary		List catalogued files with optional tag filter
//	@Tags			catalog
//	@Produce		json
//	@Param			tag		query		string	false	"Only files carrying this tag"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	FileListResponse
//	@Security		BearerAuth
//	@Router			/files [get]
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	files, total, err := h.svc.Files(r.Context(), q.Get("tag"), limit, offset)
	if err != nil {
		writeError(w, "list files", err)
		return
	}
	writeJSON(w, http.StatusOK, FileListResponse{Files: nonNil(files), Total: total})
}

// ListTags handles GET /api/tags.
//
//	@Summary		List every tag with its file count
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{object}	TagListResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Tags(r.Context())
	if err != nil {
		writeError(w, "list tags", err)
		return
	}
	out := make([]TagCount, len(tags))
	for i, t := range tags {
		out[i] = TagCount{Tag: t.Tag, Count: t.Count}
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: out})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across file names and tags
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	out := make([]SearchResult, len(results))
	for i, res := range results {
		out[i] = SearchResult{Path: res.Path, Folder: res.Folder, Tags: res.Tags, Snippet: res.Snippet}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: out})
}

// Sync handles POST /api/sync.
//
//	@Summary		Re-scan the library into the catalog
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{object}	SyncResponse
//	@Security		BearerAuth
//	@Router			/sync [post]
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Sync(r.Context())
	if err != nil {
		writeError(w, "sync", err)
		return
	}
	writeJSON(w, http.StatusOK, SyncResponse{Indexed: stats.Indexed, Removed: stats.Removed, Failed: stats.Failed})
}

// Match handles GET /api/match.
//
//	@Summary		Show the tags of files matched by a glob
//	@Tags			library
//	@Produce		json
//	@Param			include	query		string	false	"Glob relative to the library root"	default(*)
//	@Success		200		{object}	MatchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/match [get]
func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	include := r.URL.Query().Get("include")
	if include == "" {
		include = "*"
	}
	files, err := h.svc.ListTags(r.Context(), include)
	if err != nil {
		writeError(w, "match", err)
		return
	}
	writeJSON(w, http.StatusOK, MatchResponse{Files: files})
}

// ApplyTags returns the handler for POST /api/tags/{add,remove,remove-all}.
//
//	@Summary		Add, remove or clear tags on files matched by a glob
//	@Tags			tags
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TagRequest	true	"Files and tags"
//	@Success		200		{object}	TagResult
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	TagResult
//	@Security		BearerAuth
//	@Router			/tags/add [post]
//	@Router			/tags/remove [post]
//	@Router			/tags/remove-all [post]
func (h *Handler) ApplyTags(op tagservice.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		var body TagRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
		if body.Include == "" {
			body.Include = "*"
		}

		res, err := h.svc.Apply(r.Context(), tagservice.Request{
			Op:        op,
			Include:   body.Include,
			Tags:      body.Tags,
			Commit:    body.Commit,
			Backup:    body.Backup,
			KeepGoing: body.KeepGoing,
		})
		if err != nil && res == nil {
			writeError(w, "apply tags", err)
			return
		}
		h.publish(res)
		if err != nil {
			// Partial run: folders before the failure may have been written.
			writeJSON(w, http.StatusUnprocessableEntity, res)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *Handler) publish(res *tagservice.Result) {
	if h.events == nil || res.DryRun || res.Changed == 0 {
		return
	}
	h.events.Publish(sse.Event{Type: "tags.applied", Data: map[string]any{
		"op":      res.Op,
		"changed": res.Changed,
		"failed":  res.Failed,
	}})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
