package index

import (
	"cmp"
	"strings"
)

// Relevance scores
const (
	scoreSubstring  = 1
	scoreExactField = 2
	scoreExactName  = 3
)

// score rates how well r matches the lowercased query q. Zero means no match.
func score(r *Record, q string) int {
	if q == "" {
		return scoreSubstring
	}

	best := 0
	consider := func(field string, exact int) {
		f := strings.ToLower(field)
		switch {
		case f == q:
			best = max(best, exact)
		case strings.Contains(f, q):
			best = max(best, scoreSubstring)
		}
	}

	consider(r.Name, scoreExactName)
	for _, t := range r.Tags {
		consider(t, scoreExactName)
	}
	consider(r.Path, scoreExactField)
	consider(r.Notes, scoreExactField)
	return best
}

type hit struct {
	rec   *Record
	score int
}

// compareHits orders by score, then most recently modified, then id
func compareHits(a, b hit) int {
	if c := cmp.Compare(b.score, a.score); c != 0 {
		return c
	}
	if c := b.rec.Modified.Compare(a.rec.Modified); c != 0 {
		return c
	}
	return cmp.Compare(a.rec.ID, b.rec.ID)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
