package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kennygrant/sanitize"
)

var separators = strings.NewReplacer("/", "_", "\\", "_")

// SanitizeSegment makes name usable as a single path segment. Path
// separators become underscores; everything else is kept as the portal
// shows it.
func SanitizeSegment(name string) string {
	name = strings.TrimSpace(separators.Replace(name))
	switch name {
	case "", ".", "..":
		return "_"
	}
	return name
}

// SafeFileName reduces name to a portable ASCII file name while keeping its
// extension
func SafeFileName(name string) string {
	ext := filepath.Ext(name)
	cleanExt := sanitize.BaseName(ext)
	if cleanExt == "" || cleanExt == "." {
		cleanExt = ".unknown"
	}
	base := sanitize.BaseName(name[:len(name)-len(ext)])
	if base == "" {
		base = "_"
	}
	return strings.Replace(fmt.Sprintf("%s.%s", base, cleanExt[1:]), "-", "_", -1)
}
