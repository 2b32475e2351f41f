package parser

import (
	"regexp"
	"strings"
)

// Family is a grade-dependent ingredient group. A generic id from the family
// is only accepted once the line states which grade it means.
type Family struct {
	Name     string
	Prompt   string
	Generic  []string
	Specific []string
	hint     *regexp.Regexp
	upgrade  func(generic, cleaned string) string
}

// Options lists the specific ids offered when the grade is missing.
func (f Family) Options() []string { return append([]string(nil), f.Specific...) }

func (f Family) isGeneric(id string) bool  { return contains(f.Generic, id) }
func (f Family) isSpecific(id string) bool { return contains(f.Specific, id) }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// firstTier returns "<prefix><tier>" for the first tier token re finds.
func firstTier(re *regexp.Regexp, prefix string) func(string, string) string {
	return func(generic, cleaned string) string {
		if m := re.FindStringSubmatch(cleaned); m != nil {
			return prefix + m[1]
		}
		return generic
	}
}

var (
	sbmTier       = regexp.MustCompile(`\b(44|46|48)\b`)
	wheatTier     = regexp.MustCompile(`\b(13|15)\b`)
	wheatLowTier  = regexp.MustCompile(`\b10\.50?\b`)
	wheatHint     = regexp.MustCompile(`\b(10\.5|10\.50|13|15)\b`)
	sunflowerTier = regexp.MustCompile(`\b(30|36|47)\b`)
	expeller      = regexp.MustCompile(`\bexpeller\b`)
	mbmTier       = regexp.MustCompile(`\b(45|50)\b`)
	ddgsHint      = regexp.MustCompile(`\b(corn|wheat|barley|high starch|high-starch)\b`)
	highStarch    = regexp.MustCompile(`\bhigh[ -]starch\b`)
	cgmTier       = regexp.MustCompile(`\b(40|60)\b`)
	canolaTier    = regexp.MustCompile(`\b(34|36|38)\b`)
	rapeseedTier  = regexp.MustCompile(`\b(28|30)\b`)
	canolaHint    = regexp.MustCompile(`\b(28|30|34|36|38)\b`)
)

// Families are checked in order; the first whose generic or specific ids
// contain the candidate decides.
var Families = []Family{
	{
		Name:     "soybean_meal",
		Prompt:   "Soybean meal protein varies. Please specify grade (SBM 44 / 46 / 48). Example: 'SBM 48 35'.",
		Generic:  []string{"soybean_meal"},
		Specific: []string{"sbm_44", "sbm_46", "sbm_48"},
		hint:     sbmTier,
		upgrade:  firstTier(sbmTier, "sbm_"),
	},
	{
		Name:     "wheat",
		Prompt:   "Wheat protein varies. Please specify CP tier (10.5 / 13 / 15). Example: 'Wheat 13 20'.",
		Generic:  []string{"wheat"},
		Specific: []string{"wheat_10_5", "wheat_13", "wheat_15"},
		hint:     wheatHint,
		upgrade: func(generic, cleaned string) string {
			if wheatLowTier.MatchString(cleaned) {
				return "wheat_10_5"
			}
			return firstTier(wheatTier, "wheat_")(generic, cleaned)
		},
	},
	{
		Name:     "sunflower_meal",
		Prompt:   "Sunflower meal protein varies. Please specify CP tier (30 / 36 / 47) like 'Sunflower meal 36 10'.",
		Generic:  []string{"sunflower_meal"},
		Specific: []string{"sunflower_meal_30", "sunflower_meal_36", "sunflower_meal_47", "sunflower_expeller"},
		hint:     sunflowerTier,
		upgrade: func(generic, cleaned string) string {
			if id := firstTier(sunflowerTier, "sunflower_meal_")(generic, cleaned); id != generic {
				return id
			}
			if expeller.MatchString(cleaned) {
				return "sunflower_expeller"
			}
			return generic
		},
	},
	{
		Name:     "meat_bone_meal",
		Prompt:   "Meat & bone meal varies. Please specify CP tier (e.g., 45% or 50%) like 'MBM 45 3'.",
		Generic:  []string{"meat_bone_meal"},
		Specific: []string{"meat_bone_meal_45", "meat_bone_meal_50"},
		hint:     mbmTier,
		upgrade:  firstTier(mbmTier, "meat_bone_meal_"),
	},
	{
		Name:     "ddgs",
		Prompt:   "DDGS varies by grain/process. Please specify: corn DDGS / wheat DDGS / barley DDGS (and high-starch if applicable). Example: 'Corn DDGS 8'.",
		Generic:  []string{"ddgs"},
		Specific: []string{"ddgs_corn", "ddgs_wheat", "ddgs_barley", "ddgs_corn_high_starch"},
		hint:     ddgsHint,
		upgrade: func(generic, cleaned string) string {
			words := " " + cleaned + " "
			switch {
			case strings.Contains(words, " corn "):
				if highStarch.MatchString(cleaned) {
					return "ddgs_corn_high_starch"
				}
				return "ddgs_corn"
			case strings.Contains(words, " wheat "):
				return "ddgs_wheat"
			case strings.Contains(words, " barley "):
				return "ddgs_barley"
			}
			return generic
		},
	},
	{
		Name:     "corn_gluten_meal",
		Prompt:   "Corn gluten meal varies (e.g., 40% vs 60%). Please specify grade like 'CGM 60 2'.",
		Generic:  []string{"corn_gluten_meal"},
		Specific: []string{"corn_gluten_meal_40", "corn_gluten_meal_60"},
		hint:     cgmTier,
		upgrade:  firstTier(cgmTier, "corn_gluten_meal_"),
	},
	{
		Name:     "canola_rapeseed",
		Prompt:   "Canola/Rapeseed meals vary by type and protein. Please specify: Canola meal 34/36/38 OR Rapeseed meal 28/30 (and confirm if it is 00-rapeseed). Example: 'Canola meal 36 8' or 'Rapeseed meal 28 8'.",
		Generic:  []string{"canola_meal", "rapeseed_meal"},
		Specific: []string{"canola_meal_34", "canola_meal_36", "canola_meal_38", "rapeseed_meal_28", "rapeseed_meal_30"},
		hint:     canolaHint,
		upgrade: func(generic, cleaned string) string {
			if generic == "rapeseed_meal" {
				return firstTier(rapeseedTier, "rapeseed_meal_")(generic, cleaned)
			}
			return firstTier(canolaTier, "canola_meal_")(generic, cleaned)
		},
	},
}

// UpgradeTier maps a generic family id to the specific grade the cleaned line
// names. Ids outside every family, and lines without a grade, are returned
// unchanged.
func UpgradeTier(id, cleaned string) string {
	for _, f := range Families {
		if f.isGeneric(id) {
			return f.upgrade(id, cleaned)
		}
	}
	return id
}

// NeedsGrade returns the family whose grade is still missing for id, if any.
// A line whose text carries any of the family's tier tokens is not asked
// again, even when that token did not select a specific id.
func NeedsGrade(id, cleaned string) (Family, bool) {
	for _, f := range Families {
		if f.isSpecific(id) {
			return Family{}, false
		}
		if f.isGeneric(id) {
			if f.hint.MatchString(cleaned) {
				return Family{}, false
			}
			return f, true
		}
	}
	return Family{}, false
}

// FamilyByName looks a family up by name.
func FamilyByName(name string) (Family, bool) {
	for _, f := range Families {
		if f.Name == name {
			return f, true
		}
	}
	return Family{}, false
}
