package index

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// RecordFormat is the record format written by this version
const RecordFormat = 1

// Record holds the searchable attributes of one identity
type Record struct {
	Format   int       `json:"format"`
	ID       string    `json:"id"`
	Path     string    `json:"path"` // last known original path
	Name     string    `json:"name"`
	Tags     []string  `json:"tags,omitempty"`
	Notes    string    `json:"notes,omitempty"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
	Versions []uint64  `json:"versions"` // ascending
}

// Attributes are the caller supplied fields of a record. Empty fields leave
// the stored value unchanged on Upsert.
type Attributes struct {
	Path  string
	Tags  []string
	Notes string
}

// Latest returns the newest referenced version, 0 when there is none
func (r *Record) Latest() uint64 {
	if len(r.Versions) == 0 {
		return 0
	}
	return r.Versions[len(r.Versions)-1]
}

// HasVersion reports whether version is referenced
func (r *Record) HasVersion(version uint64) bool {
	_, ok := slices.BinarySearch(r.Versions, version)
	return ok
}

func (r *Record) addVersion(version uint64) {
	i, ok := slices.BinarySearch(r.Versions, version)
	if !ok {
		r.Versions = slices.Insert(r.Versions, i, version)
	}
}

func (r *Record) removeVersion(version uint64) bool {
	i, ok := slices.BinarySearch(r.Versions, version)
	if ok {
		r.Versions = slices.Delete(r.Versions, i, i+1)
	}
	return ok
}

func (r *Record) setPath(path string) {
	if path == "" {
		return
	}
	r.Path = path
	r.Name = filepath.Base(path)
}

// mergeTags adds tags not yet present, keeping the first spelling
func (r *Record) mergeTags(tags []string) {
	for _, t := range normalizeTags(tags) {
		if !containsFold(r.Tags, t) {
			r.Tags = append(r.Tags, t)
		}
	}
}

func normalizeTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" && !containsFold(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func encodeRecord(r *Record) ([]byte, error) {
	r.Format = RecordFormat
	return json.Marshal(r)
}

func decodeRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	if r.Format != RecordFormat {
		return nil, fmt.Errorf("unsupported record format %d", r.Format)
	}
	return &r, nil
}
