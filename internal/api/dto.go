package api

import (
	"github.com/starford/livetag/internal/models"
	"github.com/starford/livetag/internal/tagservice"
)

// TagRequest is the request body for the tag operations.
type TagRequest struct {
	Include   string   `json:"include" example:"Drums/**/*.wav"`
	Tags      []string `json:"tags" example:"Drums|Kick,Creator|Me"`
	Commit    bool     `json:"commit" example:"true"`
	Backup    bool     `json:"backup" example:"false"`
	KeepGoing bool     `json:"keep_going" example:"false"`
}

// TagResult is the outcome of a tag operation (aliased from the domain layer).
type TagResult = tagservice.Result

// FolderDetail is the parsed metadata of one folder (aliased from the domain layer).
type FolderDetail = tagservice.FolderDetail

// FileTags is one file and its tags (aliased from the domain layer).
type FileTags = tagservice.FileTags

// FolderListResponse wraps catalogued folders.
type FolderListResponse struct {
	Folders []models.FolderMetadata `json:"folders" validate:"required"`
}

// FileListResponse wraps paginated file listings.
type FileListResponse struct {
	Files []FileTags `json:"files" validate:"required"`
	Total int        `json:"total" example:"42" validate:"required"`
}

// TagCount is a tag and how many files carry it.
type TagCount struct {
	Tag   string `json:"tag" example:"Drums|Kick" validate:"required"`
	Count int    `json:"count" example:"12" validate:"required"`
}

// TagListResponse wraps the tag list.
type TagListResponse struct {
	Tags []TagCount `json:"tags" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string   `json:"path" example:"Drums/bd1.wav" validate:"required"`
	Folder  string   `json:"folder" example:"Drums" validate:"required"`
	Tags    []string `json:"tags" example:"Drums|Kick"`
	Snippet string   `json:"snippet" example:"<b>Kick</b>" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// SyncResponse reports a catalog sync.
type SyncResponse struct {
	Indexed int `json:"indexed" example:"3"`
	Removed int `json:"removed" example:"0"`
	Failed  int `json:"failed" example:"0"`
}

// MatchResponse wraps the files matched by a glob.
type MatchResponse struct {
	Files []FileTags `json:"files" validate:"required"`
}

// SampleUploadResponse is returned after a successful sample upload.
type SampleUploadResponse struct {
	Path   string     `json:"path" example:"Drums/bd3.wav" validate:"required"`
	Size   int64      `json:"size" example:"12345" validate:"required"`
	Result *TagResult `json:"result,omitempty"`
}
