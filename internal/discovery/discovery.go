// Package discovery expands an include glob into the sample files to tag,
// grouped by the folder that holds them.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/starford/livetag/internal/models"
	"github.com/starford/livetag/internal/samples"
)

// ErrBadPattern is returned for include globs that cannot be parsed.
var ErrBadPattern = errors.New("discovery: bad pattern")

// Folders maps a folder (slash-separated, relative to the library root,
// "." for the root itself) to the sample filenames matched inside it.
type Folders map[string]models.FileSet

// Paths returns the folders in lexicographic order.
func (f Folders) Paths() []string {
	out := make([]string, 0, len(f))
	for p := range f {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Files returns the total number of matched files.
func (f Folders) Files() int {
	n := 0
	for _, s := range f {
		n += s.Len()
	}
	return n
}

// Discover matches pattern against fsys and groups the supported audio
// files it finds by folder. Directories and Live metadata are skipped
// silently; other files with an unsupported extension are logged.
// Patterns may use ** to cross directories.
func Discover(fsys fs.FS, pattern string, logger *slog.Logger) (Folders, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
	}

	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("discovery: glob %q: %w", pattern, err)
	}

	folders := make(Folders)
	for _, m := range matches {
		if samples.IsMetadata(m) {
			continue
		}
		if !samples.IsSupported(m) {
			logger.Info("skipping non-audio file", slog.String("path", m))
			continue
		}
		dir, name := path.Split(m)
		folder := path.Clean(dir)
		if dir == "" {
			folder = "."
		}
		set, ok := folders[folder]
		if !ok {
			set = models.NewFileSet()
			folders[folder] = set
		}
		set.Add(name)
	}
	return folders, nil
}

// Escape quotes the glob metacharacters in p so that it matches only
// itself.
func Escape(p string) string {
	var b strings.Builder
	for _, r := range p {
		if strings.ContainsRune(`*?[]{}\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
