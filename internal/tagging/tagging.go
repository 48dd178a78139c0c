// Package tagging applies batch tag changes to a folder metadata document.
//
// Every operation makes one pass over the document's items in order. An item
// takes part when its filename can be claimed from the caller's FileSet;
// claimed names are removed from the set, so each file is handled once and
// whatever is left afterwards had no item in the document. Items for other
// files are never touched and existing items are never reordered.
package tagging

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/livetag/internal/models"
	"github.com/starford/livetag/internal/xmp"
)

// Change describes what happened to one file.
type Change struct {
	File    string   `json:"file"`
	Tags    []string `json:"tags"`
	Created bool     `json:"created,omitempty"`
	Cleared bool     `json:"cleared,omitempty"`
}

// Report summarises one operation on one document.
type Report struct {
	Changes []Change `json:"changes"`
	// Unmatched lists requested files that have no item in the document.
	// AddTags creates items for them; the remove operations ignore them.
	Unmatched []string `json:"unmatched,omitempty"`
}

// Changed reports whether the operation modified the document.
func (r *Report) Changed() bool {
	return len(r.Changes) > 0
}

// Reconciler runs tag operations and logs each change.
type Reconciler struct {
	logger *slog.Logger
}

// New creates a Reconciler. A nil logger discards output.
func New(logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{logger: logger}
}

// AddTags adds tags to the given files. Tags a file already has are
// skipped, so applying the same change twice is a no-op. Files without an
// item get a new one, appended in lexicographic order after the existing
// items. Claimed names are removed from files.
func (r *Reconciler) AddTags(doc *xmp.Document, files models.FileSet, tags []string) (*Report, error) {
	tags = normalize(tags)
	report := &Report{}
	if len(tags) == 0 {
		return report, nil
	}

	itemCount := doc.ItemCount()
	err := claim(doc, files, itemCount, func(sel xmp.ItemSelector, name string) error {
		existing, err := doc.Keywords(sel)
		if err != nil {
			return err
		}
		have := make(map[string]struct{}, len(existing))
		for _, kw := range existing {
			have[kw] = struct{}{}
		}

		var added []string
		for _, tag := range tags {
			if _, ok := have[tag]; ok {
				continue
			}
			if err := doc.PushKeyword(sel, tag); err != nil {
				return err
			}
			added = append(added, tag)
		}
		if len(added) > 0 {
			report.Changes = append(report.Changes, Change{File: name, Tags: added})
			r.logger.Info("added tags", slog.String("file", name), slog.String("tags", strings.Join(added, ", ")))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report.Unmatched = files.Sorted()
	for k, name := range report.Unmatched {
		sel, err := xmp.NewItemSelector(itemCount + k + 1)
		if err != nil {
			return nil, err
		}
		if err := doc.SetFilename(sel, name); err != nil {
			return nil, fmt.Errorf("tagging: create item for %s: %w", name, err)
		}
		for _, tag := range tags {
			if err := doc.PushKeyword(sel, tag); err != nil {
				return nil, fmt.Errorf("tagging: tag %s: %w", name, err)
			}
		}
		report.Changes = append(report.Changes, Change{File: name, Tags: append([]string(nil), tags...), Created: true})
		r.logger.Info("added tags", slog.String("file", name), slog.String("tags", strings.Join(tags, ", ")))
	}
	return report, nil
}

// RemoveTags removes tags from the given files. An item left with no
// keywords loses its keywords field altogether; the item itself stays, as
// Live may keep other data on it.
func (r *Reconciler) RemoveTags(doc *xmp.Document, files models.FileSet, tags []string) (*Report, error) {
	want := make(map[string]struct{}, len(tags))
	for _, tag := range normalize(tags) {
		want[tag] = struct{}{}
	}
	report := &Report{}

	err := claim(doc, files, doc.ItemCount(), func(sel xmp.ItemSelector, name string) error {
		count := doc.KeywordCount(sel)

		// Walk backwards so deletions don't shift the indices still to visit.
		var removed []string
		for i := count; i >= 1; i-- {
			kw, err := doc.Keyword(sel, i)
			if err != nil {
				return err
			}
			if _, ok := want[kw]; !ok {
				continue
			}
			if err := doc.DeleteKeyword(sel, i); err != nil {
				return err
			}
			removed = append(removed, kw)
		}
		if count == 0 && doc.HasKeywords(sel) {
			if err := doc.DeleteKeywords(sel); err != nil {
				return err
			}
			report.Changes = append(report.Changes, Change{File: name, Cleared: true})
			r.logger.Info("dropped empty keywords field", slog.String("file", name))
			return nil
		}
		if len(removed) == 0 {
			return nil
		}
		if len(removed) == count {
			if err := doc.DeleteKeywords(sel); err != nil {
				return err
			}
		}

		reverse(removed)
		report.Changes = append(report.Changes, Change{File: name, Tags: removed})
		r.logger.Info("removed tags", slog.String("file", name), slog.String("tags", strings.Join(removed, ", ")))
		return nil
	})
	if err != nil {
		return nil, err
	}
	report.Unmatched = files.Sorted()
	return report, nil
}

// RemoveAllTags deletes the keywords field of the given files. Files whose
// item has no keywords field are left alone, so the document only becomes
// dirty when something was actually removed.
func (r *Reconciler) RemoveAllTags(doc *xmp.Document, files models.FileSet) (*Report, error) {
	report := &Report{}

	err := claim(doc, files, doc.ItemCount(), func(sel xmp.ItemSelector, name string) error {
		if !doc.HasKeywords(sel) {
			return nil
		}
		kws, err := doc.Keywords(sel)
		if err != nil {
			return err
		}
		if err := doc.DeleteKeywords(sel); err != nil {
			return err
		}
		report.Changes = append(report.Changes, Change{File: name, Tags: kws, Cleared: true})
		r.logger.Info("removed all tags", slog.String("file", name))
		return nil
	})
	if err != nil {
		return nil, err
	}
	report.Unmatched = files.Sorted()
	return report, nil
}

// claim visits items 1..itemCount and calls fn for each one whose filename
// is taken from files. A missing filename means the document is not shaped
// the way Live writes it and aborts the pass.
func claim(doc *xmp.Document, files models.FileSet, itemCount int, fn func(xmp.ItemSelector, string) error) error {
	for i := 1; i <= itemCount; i++ {
		sel, err := xmp.NewItemSelector(i)
		if err != nil {
			return err
		}
		name, err := doc.Filename(sel)
		if err != nil {
			return fmt.Errorf("tagging: item %d: %w", i, err)
		}
		if !files.Take(name) {
			continue
		}
		if err := fn(sel, name); err != nil {
			return fmt.Errorf("tagging: %s: %w", name, err)
		}
	}
	return nil
}

// normalize drops empty and repeated tags, keeping the first occurrence.
func normalize(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
