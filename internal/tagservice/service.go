// Package tagservice runs tag operations over a sample library: it finds
// the matching files, loads or creates each folder's metadata document,
// reconciles it, and writes it back when asked to.
package tagservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/livetag/internal/apperr"
	"github.com/starford/livetag/internal/discovery"
	"github.com/starford/livetag/internal/index"
	"github.com/starford/livetag/internal/models"
	"github.com/starford/livetag/internal/samples"
	"github.com/starford/livetag/internal/storage"
	"github.com/starford/livetag/internal/tagging"
	"github.com/starford/livetag/internal/xmp"
)

// DefaultCreatorTool is stamped into every document the service writes.
const DefaultCreatorTool = "Updated by LiveTagger"

// Operation names a tag operation.
type Operation string

// Supported operations.
const (
	OpAdd       Operation = "add"
	OpRemove    Operation = "remove"
	OpRemoveAll Operation = "remove-all"
)

// Request describes one batch run.
type Request struct {
	Op        Operation `json:"op"`
	Include   string    `json:"include"`
	Tags      []string  `json:"tags"`
	Commit    bool      `json:"commit"`
	Backup    bool      `json:"backup"`
	KeepGoing bool      `json:"keep_going"`
}

// Validate validates the request.
func (r *Request) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Op, validation.Required, validation.In(OpAdd, OpRemove, OpRemoveAll)),
		validation.Field(&r.Include, validation.Required),
		validation.Field(&r.Tags,
			validation.When(r.Op != OpRemoveAll, validation.Required),
			validation.Each(validation.Required),
		),
	)
}

// FolderResult is the outcome for one folder.
type FolderResult struct {
	Folder  string          `json:"folder"`
	Path    string          `json:"path"`
	New     bool            `json:"new"`
	Changed bool            `json:"changed"`
	Written bool            `json:"written"`
	Backup  string          `json:"backup,omitempty"`
	Report  *tagging.Report `json:"report,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Result summarises a batch run.
type Result struct {
	Op      Operation      `json:"op"`
	DryRun  bool           `json:"dry_run"`
	Files   int            `json:"files"`
	Changed int            `json:"changed"`
	Failed  int            `json:"failed"`
	Folders []FolderResult `json:"folders"`
}

// FileTags is one sample file and its tags.
type FileTags struct {
	Path string   `json:"path"`
	Tags []string `json:"tags"`
}

// FolderDetail is the parsed metadata of one folder.
type FolderDetail struct {
	Folder string        `json:"folder"`
	Path   string        `json:"path"`
	Items  []models.Item `json:"items"`
	XML    string        `json:"xml,omitempty"`
}

// Service coordinates discovery, reconciliation, storage and the catalog.
type Service struct {
	store       storage.Provider
	db          *index.DB
	rec         *tagging.Reconciler
	creatorTool string
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCatalog keeps db up to date with every document written. Catalog
// queries fail with apperr.ErrUnavailable without it.
func WithCatalog(db *index.DB) Option {
	return func(s *Service) {
		s.db = db
	}
}

// WithCreatorTool overrides DefaultCreatorTool.
func WithCreatorTool(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.creatorTool = name
		}
	}
}

// WithLogger sets the logger for per-file change lines.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a new tag service.
func NewService(store storage.Provider, opts ...Option) *Service {
	s := &Service{
		store:       store,
		creatorTool: DefaultCreatorTool,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rec = tagging.New(s.logger)
	return s
}

// Apply runs req over every folder matched by req.Include, one folder at a
// time in path order. Without req.Commit nothing is written. The first
// failing folder aborts the run unless req.KeepGoing is set; folders
// already written stay written.
func (s *Service) Apply(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
	}
	folders, err := s.discover(req.Include)
	if err != nil {
		return nil, err
	}

	res := &Result{Op: req.Op, DryRun: !req.Commit, Files: folders.Files(), Folders: []FolderResult{}}
	for _, folder := range folders.Paths() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		fr, err := s.applyFolder(folder, folders[folder], req)
		if err != nil {
			fr.Error = err.Error()
			res.Folders = append(res.Folders, fr)
			res.Failed++
			if !req.KeepGoing {
				return res, fmt.Errorf("tagservice: %s: %w", folder, err)
			}
			s.logger.Error("folder failed", slog.String("folder", folder), slog.String("error", err.Error()))
			continue
		}
		if fr.Changed {
			res.Changed++
		}
		res.Folders = append(res.Folders, fr)
	}
	return res, nil
}

func (s *Service) applyFolder(folder string, files models.FileSet, req Request) (FolderResult, error) {
	metaPath := samples.MetadataPath(folder)
	fr := FolderResult{Folder: folder, Path: filepath.ToSlash(metaPath)}

	doc, existed, err := s.load(metaPath)
	if err != nil {
		return fr, err
	}
	fr.New = !existed

	var report *tagging.Report
	switch req.Op {
	case OpAdd:
		report, err = s.rec.AddTags(doc, files, req.Tags)
	case OpRemove:
		report, err = s.rec.RemoveTags(doc, files, req.Tags)
	case OpRemoveAll:
		report, err = s.rec.RemoveAllTags(doc, files)
	}
	if err != nil {
		return fr, err
	}
	fr.Report = report
	if !doc.IsDirty() {
		return fr, nil
	}
	fr.Changed = true

	if err := s.stamp(doc, existed); err != nil {
		return fr, err
	}
	out, err := doc.ToXML()
	if err != nil {
		return fr, err
	}
	if !req.Commit {
		s.logger.Info("dry run, not writing", slog.String("path", fr.Path))
		return fr, nil
	}

	if existed && req.Backup {
		dst, err := s.store.Backup(metaPath)
		if err != nil {
			return fr, err
		}
		fr.Backup = filepath.ToSlash(dst)
	}
	if err := s.store.Write(metaPath, []byte(out)); err != nil {
		return fr, err
	}
	fr.Written = true
	s.logger.Info("wrote metadata", slog.String("path", fr.Path))

	if s.db != nil {
		if err := index.IndexDocument(s.db, fr.Path, []byte(out)); err != nil {
			s.logger.Warn("catalog update failed", slog.String("path", fr.Path), slog.String("error", err.Error()))
		}
	}
	return fr, nil
}

// load reads the document at metaPath, or returns a fresh one when the
// folder has none yet.
func (s *Service) load(metaPath string) (*xmp.Document, bool, error) {
	exists, err := s.store.Exists(metaPath)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		doc, err := xmp.New()
		return doc, false, err
	}
	data, err := s.store.Read(metaPath)
	if err != nil {
		return nil, true, err
	}
	doc, err := xmp.FromString(string(data))
	if err != nil {
		return nil, true, fmt.Errorf("tagservice: load %s: %w", filepath.ToSlash(metaPath), err)
	}
	return doc, true, nil
}

func (s *Service) stamp(doc *xmp.Document, existed bool) error {
	if err := doc.SetCreatorTool(s.creatorTool); err != nil {
		return err
	}
	if existed {
		return doc.UpdateMetadataDate()
	}
	return doc.UpdateCreateDate()
}

// ListTags returns the tags of every sample matched by include. Files
// without an item in their folder's document have no tags. Nothing is
// written.
func (s *Service) ListTags(_ context.Context, include string) ([]FileTags, error) {
	folders, err := s.discover(include)
	if err != nil {
		return nil, err
	}
	out := []FileTags{}
	for _, folder := range folders.Paths() {
		tags := map[string][]string{}
		doc, existed, err := s.load(samples.MetadataPath(folder))
		if err != nil {
			return nil, err
		}
		if existed {
			items, err := doc.Items()
			if err != nil {
				return nil, err
			}
			for _, it := range items {
				if _, ok := tags[it.Filename]; !ok {
					tags[it.Filename] = it.Keywords
				}
			}
		}
		for _, name := range folders[folder].Sorted() {
			kws := tags[name]
			if kws == nil {
				kws = []string{}
			}
			out = append(out, FileTags{Path: index.FilePath(folder, name), Tags: kws})
		}
	}
	return out, nil
}

// Folder returns the parsed metadata document of folder (relative to the
// library root). withXML adds the serialized document.
func (s *Service) Folder(_ context.Context, folder string, withXML bool) (*FolderDetail, error) {
	metaPath := samples.MetadataPath(folder)
	doc, existed, err := s.load(metaPath)
	if err != nil {
		return nil, err
	}
	if !existed {
		return nil, apperr.ErrNotFound
	}
	items, err := doc.Items()
	if err != nil {
		return nil, err
	}
	d := &FolderDetail{Folder: filepath.ToSlash(filepath.Clean(folder)), Path: filepath.ToSlash(metaPath), Items: items}
	if withXML {
		if d.XML, err = doc.ToXML(); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Folders lists the catalogued folders.
func (s *Service) Folders(_ context.Context) ([]models.FolderMetadata, error) {
	if s.db == nil {
		return nil, apperr.ErrUnavailable
	}
	rows, err := s.db.ListFolders()
	if err != nil {
		return nil, err
	}
	out := make([]models.FolderMetadata, len(rows))
	for i, r := range rows {
		out[i] = models.FolderMetadata{Folder: r.Folder, Path: r.Path, Checksum: r.Checksum, UpdatedAt: r.UpdatedAt}
	}
	return out, nil
}

// Files lists catalogued files, optionally only those carrying tag.
func (s *Service) Files(_ context.Context, tag string, limit, offset int) ([]FileTags, int, error) {
	if s.db == nil {
		return nil, 0, apperr.ErrUnavailable
	}
	rows, total, err := s.db.ListFiles(tag, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]FileTags, len(rows))
	for i, r := range rows {
		out[i] = FileTags{Path: r.Path, Tags: r.Tags}
	}
	return out, total, nil
}

// Tags returns every catalogued tag with its file count.
func (s *Service) Tags(_ context.Context) ([]index.TagCount, error) {
	if s.db == nil {
		return nil, apperr.ErrUnavailable
	}
	return s.db.Tags()
}

// Search delegates full-text search to the catalog.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if s.db == nil {
		return nil, apperr.ErrUnavailable
	}
	return s.db.Search(query, limit)
}

// Sync brings the catalog up to date with the library.
func (s *Service) Sync(ctx context.Context) (index.SyncStats, error) {
	if s.db == nil {
		return index.SyncStats{}, apperr.ErrUnavailable
	}
	start := time.Now()
	stats, err := index.Sync(ctx, s.db, s.store, s.logger)
	if err != nil {
		return stats, err
	}
	s.logger.Info("catalog synced",
		slog.Int("indexed", stats.Indexed),
		slog.Int("removed", stats.Removed),
		slog.Int("failed", stats.Failed),
		slog.Duration("took", time.Since(start)))
	return stats, nil
}

func (s *Service) discover(include string) (discovery.Folders, error) {
	folders, err := discovery.Discover(s.store.FS(), include, s.logger)
	if err != nil {
		if errors.Is(err, discovery.ErrBadPattern) {
			return nil, fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
		}
		if errors.Is(err, fs.ErrNotExist) {
			return discovery.Folders{}, nil
		}
		return nil, err
	}
	return folders, nil
}
