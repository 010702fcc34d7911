package incident

// Severity and category weights for priority scoring. The tables are fixed;
// unknown categories weigh 1 so free-text imports still score.
var severityWeights = map[Severity]int{
	SeverityCritical: 4,
	SeverityHigh:     3,
	SeverityMedium:   2,
	SeverityLow:      1,
}

var categoryWeights = map[Category]int{
	CategoryInjury:         3,
	CategoryNearMiss:       2,
	CategoryPropertyDamage: 2,
	CategoryEnvironmental:  2,
	CategorySecurity:       1,
}

const defaultCategoryWeight = 1

// Score multiplies the severity weight by the category weight. Pure and
// stable: identical inputs always yield the same score.
func Score(sev Severity, cat Category) int {
	sw, ok := severityWeights[sev]
	if !ok {
		sw = 1
	}
	cw, ok := categoryWeights[cat]
	if !ok {
		cw = defaultCategoryWeight
	}
	return sw * cw
}

// PriorityFor thresholds the score: >=12 critical, >=8 high, >=4 medium,
// otherwise low.
func PriorityFor(sev Severity, cat Category) Priority {
	score := Score(sev, cat)
	switch {
	case score >= 12:
		return PriorityCritical
	case score >= 8:
		return PriorityHigh
	case score >= 4:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
