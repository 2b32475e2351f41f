// Package parser turns free-text formula lines into resolved formula items.
// It never guesses: names that do not resolve exactly, and generic grade
// families without a stated grade, stay unresolved and are reported.
package parser

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"feedcore/internal/alias"
	"feedcore/pkg/domain"
)

// Resolver maps cleaned names onto catalog ids. *alias.Resolver satisfies it.
type Resolver interface {
	Resolve(raw string) alias.Resolution
	Has(id string) bool
	Suggest(name string, limit int) []string
}

// Parsed is the parser's output for one formula text.
type Parsed struct {
	Items              []domain.FormulaItem          `json:"items"`
	Total              float64                       `json:"total"`
	Skipped            []string                      `json:"skipped"`
	UnknownRaw         []domain.UnknownIngredient    `json:"unknown_raw"`
	NeedsClarification []domain.ClarificationRequest `json:"needs_clarification"`
	Normalization      *Normalization                `json:"normalization,omitempty"`
}

// Resolved returns the items that carry a canonical id.
func (p Parsed) Resolved() []domain.FormulaItem {
	out := make([]domain.FormulaItem, 0, len(p.Items))
	for _, it := range p.Items {
		if it.Resolved() {
			out = append(out, it)
		}
	}
	return out
}

// Unresolved returns the items without a canonical id.
func (p Parsed) Unresolved() []domain.FormulaItem {
	var out []domain.FormulaItem
	for _, it := range p.Items {
		if !it.Resolved() {
			out = append(out, it)
		}
	}
	return out
}

var (
	lineRe       = regexp.MustCompile(`^(.+?)[\s:=]+(-?\d+(\.\d+)?)\s*%?$`)
	annotationRe = regexp.MustCompile(`(?i)\[\s*(lot|dm)\s*:\s*([^\]]*)\]`)
	spaceRe      = regexp.MustCompile(`\s+`)
	cleanDropRe  = regexp.MustCompile(`[(),_\-]`)
)

// CleanName lowercases and strips punctuation the way every formula line is
// compared: `%` removed, brackets, commas, underscores and hyphens become
// spaces.
func CleanName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "%", "")
	s = cleanDropRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// annotations pulls `[lot:..]` and `[dm:..]` markers out of a name.
func annotations(name string) (rest string, lot *string, dm *float64) {
	for _, m := range annotationRe.FindAllStringSubmatch(name, -1) {
		val := strings.TrimSpace(m[2])
		switch strings.ToLower(m[1]) {
		case "lot":
			if val != "" {
				v := val
				lot = &v
			}
		case "dm":
			if f, err := strconv.ParseFloat(strings.TrimSuffix(val, "%"), 64); err == nil {
				dm = &f
			}
		}
	}
	return strings.TrimSpace(annotationRe.ReplaceAllString(name, " ")), lot, dm
}

// Parse reads one ingredient per line in the form `name <sep> number [%]`.
func Parse(text string, r Resolver) Parsed {
	out := Parsed{
		Skipped:            []string{},
		UnknownRaw:         []domain.UnknownIngredient{},
		NeedsClarification: []domain.ClarificationRequest{},
	}
	var items []domain.FormulaItem
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := lineRe.FindStringSubmatch(line)
		if m == nil {
			out.Skipped = append(out.Skipped, line)
			continue
		}
		inclusion, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			out.Skipped = append(out.Skipped, line)
			continue
		}
		name, lot, dm := annotations(m[1])
		cleaned := CleanName(name)
		if cleaned == "" {
			out.Skipped = append(out.Skipped, line)
			continue
		}
		out.Total += inclusion
		item := domain.FormulaItem{
			RawName:   name,
			Cleaned:   cleaned,
			Inclusion: inclusion,
			Lot:       lot,
			DMPct:     dm,
		}
		items = append(items, resolveItem(&out, item, r))
	}
	out.Items = merge(items)
	return out
}

func resolveItem(out *Parsed, item domain.FormulaItem, r Resolver) domain.FormulaItem {
	res := r.Resolve(item.Cleaned)
	item.Method = res.Method
	if !res.Found() {
		return unknown(out, item, res.Suggestions)
	}
	id := UpgradeTier(res.Canonical, item.Cleaned)
	if fam, ok := NeedsGrade(id, item.Cleaned); ok {
		out.NeedsClarification = append(out.NeedsClarification, domain.ClarificationRequest{
			RawText:     item.RawName,
			Cleaned:     item.Cleaned,
			Inclusion:   item.Inclusion,
			CanonicalID: id,
			Family:      fam.Name,
			Prompt:      fam.Prompt,
			Options:     fam.Options(),
		})
		item.Method = domain.MethodNone
		item.Unknown = true
		item.NeedsClarification = true
		item.ClarificationFamily = fam.Name
		return item
	}
	if !r.Has(id) {
		return unknown(out, item, r.Suggest(item.Cleaned, alias.SuggestionLimit))
	}
	item.CanonicalID = id
	return item
}

func unknown(out *Parsed, item domain.FormulaItem, suggestions []string) domain.FormulaItem {
	if suggestions == nil {
		suggestions = []string{}
	}
	out.UnknownRaw = append(out.UnknownRaw, domain.UnknownIngredient{
		Raw:         item.RawName,
		Cleaned:     item.Cleaned,
		Inclusion:   item.Inclusion,
		Suggestions: suggestions,
	})
	item.Unknown = true
	item.Method = domain.MethodNone
	return item
}

// merge sums items sharing a canonical id (or cleaned name when unresolved)
// and lot, then orders by inclusion descending, first appearance on ties.
func merge(items []domain.FormulaItem) []domain.FormulaItem {
	index := make(map[string]int, len(items))
	out := make([]domain.FormulaItem, 0, len(items))
	for _, it := range items {
		key := it.MergeKey()
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, it)
			continue
		}
		prev := &out[i]
		prev.Inclusion += it.Inclusion
		if prev.DMPct == nil {
			prev.DMPct = it.DMPct
		}
		if it.Unknown {
			prev.Unknown = true
			prev.RawName = prev.RawName + "; " + it.RawName
		}
		if it.NeedsClarification {
			prev.NeedsClarification = true
			prev.ClarificationFamily = it.ClarificationFamily
		}
	}
	for i := range out {
		out[i].Inclusion = domain.Round(out[i].Inclusion, 4)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Inclusion > out[j].Inclusion })
	return out
}
