package requirements

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ValueKind tags how a requirement value was written in its document.
type ValueKind int

// Value kinds.
const (
	ValueNone ValueKind = iota
	ValueNumber
	ValueString
	ValueObject
)

// Value is a decoded requirement value. Number is meaningful only when Kind
// is not ValueNone.
type Value struct {
	Kind   ValueKind
	Number float64
	Field  string // object field the number came from
}

// objectFields are consulted in order when a value is written as an object.
var objectFields = []string{"min", "target", "value", "req", "requirement"}

var (
	numberRe       = regexp.MustCompile(`-?(?:\d+(?:\.\d+)?|\.\d+)`)
	thousandsRe    = regexp.MustCompile(`\b\d{1,3}(?:,\d{3})+\b`)
	decimalCommaRe = regexp.MustCompile(`(\d),(\d)`)
)

// DecodeValue reads a number, a numeric string ("1,250 kcal" reads 1250) or an
// object carrying one of min, target, value, req or requirement.
func DecodeValue(v any) (Value, bool) {
	switch t := v.(type) {
	case float64:
		return Value{Kind: ValueNumber, Number: t}, true
	case int:
		return Value{Kind: ValueNumber, Number: float64(t)}, true
	case string:
		n, ok := numberIn(t)
		if !ok {
			return Value{}, false
		}
		return Value{Kind: ValueString, Number: n}, true
	case map[string]any:
		for _, f := range objectFields {
			inner, present := t[f]
			if !present || inner == nil {
				continue
			}
			iv, ok := DecodeValue(inner)
			if !ok || iv.Kind == ValueObject {
				return Value{}, false
			}
			return Value{Kind: ValueObject, Number: iv.Number, Field: f}, true
		}
	}
	return Value{}, false
}

// numberIn extracts the first decimal number in s. Thousands groups
// ("1,250") collapse; any other comma between digits is a decimal comma
// ("12,5").
func numberIn(s string) (float64, bool) {
	s = thousandsRe.ReplaceAllStringFunc(s, func(g string) string { return strings.ReplaceAll(g, ",", "") })
	s = decimalCommaRe.ReplaceAllString(s, "$1.$2")
	m := numberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(m, 64)
	return n, err == nil
}

// ExtractNumeric decodes every field of obj that carries a number, skipping
// the named fields.
func ExtractNumeric(obj map[string]any, skip ...string) map[string]float64 {
	out := make(map[string]float64, len(obj))
	for k, v := range obj {
		if contains(skip, k) {
			continue
		}
		if dv, ok := DecodeValue(v); ok {
			out[k] = dv.Number
		}
	}
	return out
}

var envelopeKeys = []string{"_lock", "meta", "schema", "note", "_meta"}

// MapKey converts a library target key into the engine's nutrient key. The
// second result is false for envelope fields that are not nutrients.
func MapKey(key string) (string, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" || contains(envelopeKeys, k) {
		return "", false
	}
	switch k {
	case "me_kcal_per_kg", "me_kcal_kg", "me_kcalkg", "me":
		return "me", true
	}
	k = strings.TrimSuffix(k, "_pct")
	switch k {
	case "avail_p", "available_p":
		k = "avp"
	case "metcys":
		k = "met_cys"
	case "sid_met_cys":
		k = "sid_metcys"
	}
	return k, true
}

// Mapping is the result of applying MapKey to a target set.
type Mapping struct {
	Targets    map[string]float64
	Applied    bool
	RawKeys    []string
	MappedKeys []string
}

// MapTargets rewrites raw target keys into engine keys. When two raw keys map
// onto the same engine key the one already in engine form wins.
func MapTargets(raw map[string]float64) Mapping {
	m := Mapping{Targets: make(map[string]float64, len(raw))}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		mapped, ok := MapKey(k)
		if !ok {
			continue
		}
		m.RawKeys = append(m.RawKeys, k)
		if mapped != k {
			m.Applied = true
			if _, exists := raw[mapped]; exists {
				continue
			}
		}
		m.Targets[mapped] = raw[k]
	}
	for k := range m.Targets {
		m.MappedKeys = append(m.MappedKeys, k)
	}
	sort.Strings(m.MappedKeys)
	return m
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
