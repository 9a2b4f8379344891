// Package trigram implements an inverted index from 3-rune shingles to document ids.
//
// The index is an approximate pre-filter for substring queries: Query returns a
// superset of the documents whose text contains the query. Callers confirm each
// candidate with an exact substring check.
package trigram

import (
	"strings"
	"unicode/utf8"
)

// ShingleSize is the number of runes in a shingle.
const ShingleSize = 3

// Doc is a single indexing unit: an id and its searchable text.
type Doc struct {
	ID   string
	Text string
}

// IDSet is a set of document ids.
type IDSet map[string]struct{}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of ids in the set.
func (s IDSet) Len() int { return len(s) }

// Index maps each shingle to the ids of documents containing it. Immutable after Build.
type Index struct {
	postings map[string]IDSet
	all      IDSet
}

// Build indexes docs. Text is lowercased before shingling; docs shorter than
// ShingleSize runes contribute no shingles but still belong to the universal set.
func Build(docs []Doc) *Index {
	idx := &Index{
		postings: make(map[string]IDSet),
		all:      make(IDSet, len(docs)),
	}
	for _, d := range docs {
		idx.all[d.ID] = struct{}{}
		for _, sh := range Shingles(strings.ToLower(d.Text)) {
			set, ok := idx.postings[sh]
			if !ok {
				set = make(IDSet)
				idx.postings[sh] = set
			}
			set[d.ID] = struct{}{}
		}
	}
	return idx
}

// Query returns the candidate ids for q.
// A query shorter than ShingleSize runes cannot be narrowed and yields every
// indexed id. Otherwise the posting sets of all distinct shingles are
// intersected; a shingle absent from the index yields an empty set.
// The returned set must not be modified.
func (idx *Index) Query(q string) IDSet {
	q = strings.ToLower(q)
	if utf8.RuneCountInString(q) < ShingleSize {
		return idx.all
	}

	shingles := Shingles(q)
	sets := make([]IDSet, 0, len(shingles))
	smallest := -1
	for _, sh := range shingles {
		set, ok := idx.postings[sh]
		if !ok {
			return IDSet{}
		}
		sets = append(sets, set)
		if smallest < 0 || len(set) < len(sets[smallest]) {
			smallest = len(sets) - 1
		}
	}

	out := make(IDSet, len(sets[smallest]))
	for id := range sets[smallest] {
		if inAll(sets, id) {
			out[id] = struct{}{}
		}
	}
	return out
}

func inAll(sets []IDSet, id string) bool {
	for _, s := range sets {
		if !s.Has(id) {
			return false
		}
	}
	return true
}

// Len returns the number of distinct shingles in the index.
func (idx *Index) Len() int { return len(idx.postings) }

// DocCount returns the number of indexed documents.
func (idx *Index) DocCount() int { return len(idx.all) }

// Shingles returns the distinct ShingleSize-rune windows of s in first-seen order.
func Shingles(s string) []string {
	runes := []rune(s)
	if len(runes) < ShingleSize {
		return nil
	}
	seen := make(map[string]struct{}, len(runes)-ShingleSize+1)
	out := make([]string, 0, len(runes)-ShingleSize+1)
	for i := 0; i+ShingleSize <= len(runes); i++ {
		sh := string(runes[i : i+ShingleSize])
		if _, dup := seen[sh]; dup {
			continue
		}
		seen[sh] = struct{}{}
		out = append(out, sh)
	}
	return out
}
