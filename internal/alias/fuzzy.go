package alias

import (
	"sort"
	"strings"
)

// MinSuggestScore is the bigram Jaccard similarity a candidate needs to be
// suggested.
const MinSuggestScore = 0.25

func bigrams(s string) map[string]struct{} {
	r := []rune(strings.ToLower(s))
	out := make(map[string]struct{}, len(r))
	for i := 0; i+1 < len(r); i++ {
		out[string(r[i:i+2])] = struct{}{}
	}
	return out
}

// Similarity is the Jaccard index of the two strings' character bigrams.
func Similarity(a, b string) float64 {
	A, B := bigrams(a), bigrams(b)
	inter := 0
	for g := range A {
		if _, ok := B[g]; ok {
			inter++
		}
	}
	union := len(A) + len(B) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// SuggestFrom ranks candidates by similarity to name, highest first with ties
// broken by name. Candidates are compared with `_` read as a space.
func SuggestFrom(name string, candidates []string, limit int) []string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" || limit <= 0 {
		return nil
	}
	type scored struct {
		c     string
		score float64
	}
	seen := make(map[string]struct{}, len(candidates))
	var list []scored
	for _, c := range candidates {
		if _, dup := seen[c]; dup || c == "" {
			continue
		}
		seen[c] = struct{}{}
		s := Similarity(n, strings.ReplaceAll(c, "_", " "))
		if s >= MinSuggestScore {
			list = append(list, scored{c, s})
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].score != list[j].score {
			return list[i].score > list[j].score
		}
		return list[i].c < list[j].c
	})
	if len(list) > limit {
		list = list[:limit]
	}
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.c
	}
	return out
}
