package domain

import "fmt"

// ErrorKind classifies pipeline outcomes by kind rather than message.
type ErrorKind string

// Non-fatal kinds are collected into report fields; gate kinds halt one call
// and are resumable; requirements kinds are terminal for the call.
const (
	KindParseLineSkipped     ErrorKind = "PARSE_LINE_SKIPPED"
	KindIngredientUnresolved ErrorKind = "INGREDIENT_UNRESOLVED"
	KindClarificationNeeded  ErrorKind = "CLARIFICATION_NEEDED"

	KindNeedsDMScaleMode ErrorKind = "NEEDS_DM_SCALE_MODE"
	KindNeedsCPApplyMode ErrorKind = "NEEDS_CP_APPLY_MODE"

	KindProfileNotFound  ErrorKind = "REQUIREMENTS_PROFILE_NOT_FOUND"
	KindProfileMissing   ErrorKind = "REQUIREMENTS_PROFILE_MISSING"
	KindPhaseEmpty       ErrorKind = "REQUIREMENTS_PHASE_EMPTY"
	KindFileUnreadable   ErrorKind = "REQUIREMENTS_FILE_UNREADABLE"
	KindInheritMissing   ErrorKind = "REQUIREMENTS_INHERIT_MISSING"
	KindRequirementsLoad ErrorKind = "REQUIREMENTS_LOAD_FAILED"

	KindCatalogNotFound ErrorKind = "CATALOG_NOT_FOUND"
)

// Fatal reports whether the kind terminates an analysis call.
func (k ErrorKind) Fatal() bool {
	switch k {
	case KindParseLineSkipped, KindIngredientUnresolved, KindClarificationNeeded:
		return false
	}
	return true
}

// Resumable reports whether re-invoking with an extra choice can proceed.
func (k ErrorKind) Resumable() bool {
	return k == KindNeedsDMScaleMode || k == KindNeedsCPApplyMode
}

// KindError is an error tagged with an ErrorKind.
type KindError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *KindError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *KindError) Unwrap() error { return e.Err }
