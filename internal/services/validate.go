package services

import (
	"fmt"
	"strings"

	types "github.com/yungbote/knowledge-server/internal/domain"
)

// Traversal and listing bounds. Out-of-range values clamp with a warning
// rather than failing the request; only malformed enumerable fields reject.
const (
	RelatedDepthDefault = 2
	RelatedDepthMax     = 5

	PrereqDepthDefault = 5
	PrereqDepthMax     = 10

	ChainDepthMax = 10

	SemanticLimitDefault = 10
	SemanticLimitMax     = 50

	ExactLimitDefault = 20
	ExactLimitMax     = 100

	RecentLimitDefault = 20
	RecentLimitMax     = 100
	RecentDaysDefault  = 7
	RecentDaysMax      = 365

	CertaintyLimitDefault = 20
	CertaintyLimitMax     = 50
)

const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// clampInt folds v into [min, max], substituting def when v is zero (the
// "not supplied" value) and appending a warning when a supplied value had to
// move.
func clampInt(field string, v, def, min, max int, warnings *[]string) int {
	if v == 0 {
		return def
	}
	if v < min {
		*warnings = append(*warnings, fmt.Sprintf("%s %d below minimum, using %d", field, v, min))
		return min
	}
	if v > max {
		*warnings = append(*warnings, fmt.Sprintf("%s %d above maximum, using %d", field, v, max))
		return max
	}
	return v
}

func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return types.NewValidationError("name", "must not be blank")
	}
	if len(name) > types.NameMaxLen {
		return types.NewValidationError("name", fmt.Sprintf("must be at most %d characters", types.NameMaxLen))
	}
	return nil
}

func validateExplanation(explanation string) error {
	if strings.TrimSpace(explanation) == "" {
		return types.NewValidationError("explanation", "must not be blank")
	}
	return nil
}

func validateLabel(field, value string) error {
	if len(value) > types.LabelMaxLen {
		return types.NewValidationError(field, fmt.Sprintf("must be at most %d characters", types.LabelMaxLen))
	}
	return nil
}

func validateSourceURLs(urls []types.SourceURL) error {
	for i, s := range urls {
		if strings.TrimSpace(s.URL) == "" {
			return types.NewValidationError(fmt.Sprintf("source_urls[%d].url", i), "must not be blank")
		}
		if s.QualityScore < 0 || s.QualityScore > 1 {
			return types.NewValidationError(fmt.Sprintf("source_urls[%d].quality_score", i), "must be within [0, 1]")
		}
	}
	return nil
}

func validateRelationshipType(relType string) error {
	if !types.RelationshipTypes[relType] {
		return types.NewEnumError("relationship_type", relType, types.RelationshipTypeList())
	}
	return nil
}

// normalizeDirection defaults empty to both and rejects anything outside
// the enum, listing the valid set.
func normalizeDirection(direction string) (string, error) {
	if direction == "" {
		return types.DirectionBoth, nil
	}
	if !types.Directions[direction] {
		return "", types.NewEnumError("direction", direction, types.DirectionList())
	}
	return direction, nil
}

func normalizeSortOrder(sortOrder string) (string, error) {
	switch sortOrder {
	case "":
		return SortDesc, nil
	case SortAsc, SortDesc:
		return sortOrder, nil
	default:
		return "", types.NewEnumError("sort_order", sortOrder, []string{SortAsc, SortDesc})
	}
}

// normalizeCertaintyRange swaps an inverted min/max with a warning and
// clamps both ends into [0, 100].
func normalizeCertaintyRange(min, max float64, warnings *[]string) (float64, float64) {
	if min > max {
		*warnings = append(*warnings, fmt.Sprintf("min_certainty %g greater than max_certainty %g, swapping", min, max))
		min, max = max, min
	}
	if min < 0 {
		*warnings = append(*warnings, "min_certainty below 0, using 0")
		min = 0
	}
	if max > 100 {
		*warnings = append(*warnings, "max_certainty above 100, using 100")
		max = 100
	}
	return min, max
}
