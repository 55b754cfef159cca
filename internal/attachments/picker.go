package attachments

import (
	"strings"

	"github.com/dmitrijs2005/attachkeeper/internal/filex"
	"github.com/gabriel-vasile/mimetype"
)

// Picked is what a file picker hands back: a URI and the kind of picker
// that produced it.
type Picked struct {
	URI  string
	Kind Kind
}

// FromPicked normalizes picker output into items ready for AddAttachments.
// Entries whose URI normalizes to an empty path are dropped.
func FromPicked(picked []Picked) []Item {
	items := make([]Item, 0, len(picked))
	for _, p := range picked {
		path := filex.NormalizeURI(p.URI)
		if path == "" {
			continue
		}
		items = append(items, Item{Path: path, Kind: p.Kind})
	}
	return items
}

// detectFile is a test seam for mimetype.DetectFile.
var detectFile = mimetype.DetectFile

// DetectKind sniffs the file content and returns KindImage for image/*
// types. Unreadable files fall back to KindFile.
func DetectKind(path string) Kind {
	mt, err := detectFile(path)
	if err != nil || mt == nil {
		return KindFile
	}
	if strings.HasPrefix(mt.String(), "image/") {
		return KindImage
	}
	return KindFile
}
