// Package samples classifies paths in a sample library: audio files that can
// be tagged, and the metadata Ableton Live keeps next to them.
package samples

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FolderInfoDir is the subdirectory Live uses for folder metadata. Any path
// containing this segment is metadata, never a taggable sample.
const FolderInfoDir = "Ableton Folder Info"

// folderInfoID names the XMP file inside FolderInfoDir. Live always uses the
// same name for folder metadata.
var folderInfoID = uuid.MustParse("dc66a3fa-0fe1-5352-91cf-3ec237e9ee90")

// supportedExts lists the containers Live can load.
// See https://help.ableton.com/hc/en-us/articles/211427589-Supported-Audio-File-Formats.
var supportedExts = []string{
	"wav", "wave", "aif", "aiff", "flac", "ogg", "mp3", "mp4", "m4a",
}

// MetadataPath returns the folder metadata path for folder.
func MetadataPath(folder string) string {
	return filepath.Join(folder, FolderInfoDir, MetadataName())
}

// MetadataName is the base name of every folder metadata document.
func MetadataName() string {
	return folderInfoID.String() + ".xmp"
}

// IsFolderDocument reports whether path is a folder metadata document
// itself, as opposed to anything else inside a folder info directory.
func IsFolderDocument(path string) bool {
	dir, name := filepath.Split(filepath.Clean(path))
	return name == MetadataName() && filepath.Base(dir) == FolderInfoDir
}

// FolderOf returns the sample folder a metadata document describes.
func FolderOf(metadataPath string) string {
	return filepath.Dir(filepath.Dir(filepath.Clean(metadataPath)))
}

// IsSampleMetadata reports whether path is a Live analysis file (.asd).
func IsSampleMetadata(path string) bool {
	return strings.EqualFold(ext(path), "asd")
}

// IsFolderMetadata reports whether path is, or lives inside, a folder info
// directory.
func IsFolderMetadata(path string) bool {
	for _, seg := range strings.FieldsFunc(filepath.ToSlash(path), func(r rune) bool { return r == '/' }) {
		if seg == FolderInfoDir {
			return true
		}
	}
	return false
}

// IsMetadata reports whether path points at any kind of Live metadata.
func IsMetadata(path string) bool {
	return IsSampleMetadata(path) || IsFolderMetadata(path)
}

// IsSupported reports whether path has one of Live's sample extensions.
func IsSupported(path string) bool {
	e := ext(path)
	if e == "" {
		return false
	}
	for _, s := range supportedExts {
		if strings.EqualFold(s, e) {
			return true
		}
	}
	return false
}

func ext(path string) string {
	return strings.TrimPrefix(filepath.Ext(path), ".")
}
