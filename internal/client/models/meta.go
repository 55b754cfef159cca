package models

import (
	"errors"
	"strings"
)

var ErrIncorrectMetadata = errors.New("metadata item must be name=value")

// Metadata is a simple key/value pair.
type Metadata struct {
	Name  string
	Value string
}

// MetadataFromString parses name=value items. Names are trimmed and must not
// be empty; values are kept as typed and may contain '='.
func MetadataFromString(s []string) ([]Metadata, error) {
	data := make([]Metadata, len(s))
	for n, item := range s {
		name, value, ok := strings.Cut(item, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, ErrIncorrectMetadata
		}
		data[n] = Metadata{Name: name, Value: value}
	}
	return data, nil
}
