package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"feedcore/pkg/domain"
)

// maxExamples bounds the re-submission examples offered with a clarification.
const maxExamples = 2

var familyExamples = map[string]string{
	"soybean_meal":     "SBM 48 %s",
	"wheat":            "Wheat 13 %s",
	"sunflower_meal":   "Sunflower meal 36 %s",
	"meat_bone_meal":   "MBM 45 %s",
	"ddgs":             "Corn DDGS %s",
	"corn_gluten_meal": "CGM 60 %s",
	"canola_rapeseed":  "Canola meal 36 %s",
}

func formatPct(v float64) string {
	if math.Abs(v-math.Round(v)) < 1e-9 {
		return strconv.FormatFloat(math.Round(v), 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ClarificationText renders the grade questions as a numbered message.
// It returns "" when nothing needs clarification.
func ClarificationText(needs []domain.ClarificationRequest) string {
	if len(needs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("⚠️ Need ingredient clarification (CP/grade) before analysis:\n")
	for i, c := range needs {
		fmt.Fprintf(&b, "%d) %s (%s%%) → %s", i+1, c.RawText, formatPct(c.Inclusion), c.Prompt)
		if len(c.Options) > 0 {
			fmt.Fprintf(&b, " Options: %s.", strings.Join(c.Options, " / "))
		}
		b.WriteString("\n")
	}
	b.WriteString("\nReply by specifying the grade, e.g.:")
	return b.String()
}

// ClarificationExamples suggests corrected lines for the first requests,
// keeping each line's inclusion.
func ClarificationExamples(needs []domain.ClarificationRequest) []string {
	var out []string
	for _, c := range needs {
		tmpl, ok := familyExamples[c.Family]
		if !ok {
			continue
		}
		out = append(out, fmt.Sprintf(tmpl, formatPct(c.Inclusion)))
		if len(out) == maxExamples {
			break
		}
	}
	return out
}
