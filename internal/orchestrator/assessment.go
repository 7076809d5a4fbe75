package orchestrator

import "strings"

// Assessment is the structured task-assessment record (§4.E), grounded
// verbatim on original_source/agents/pydantic_ai/queen/agent.py's
// assess_task_strategically tool.
type Assessment struct {
	Security       bool
	Performance    bool
	Architecture   bool
	UserExperience bool
	Infrastructure bool
	Data           bool
	Testing        bool
	Research       bool

	BusinessCritical bool
	Scope            Scope
	AffectedServices []string
}

// dimension keyword tables, one-for-one with the original's
// assess_task_strategically tool.
var (
	securityKeywords = []string{"auth", "security", "vulnerability", "encrypt", "token", "permission", "access", "login", "user"}
	performanceKeywords = []string{"performance", "speed", "optimize", "scale", "load", "cache", "database", "query", "latency"}
	architectureKeywords = []string{"architecture", "design", "pattern", "structure", "refactor", "migrate", "integration", "service"}
	uxKeywords = []string{"ui", "ux", "frontend", "interface", "user", "design", "accessibility", "responsive", "mobile"}
	infrastructureKeywords = []string{"deploy", "devops", "infrastructure", "docker", "ci", "cd", "monitoring", "logging", "environment"}
	dataKeywords = []string{"database", "data", "migration", "schema", "model", "sql", "api", "endpoint", "crud"}
	testingKeywords = []string{"test", "testing", "quality", "bug", "coverage", "integration", "unit", "e2e", "validation"}
	researchKeywords = []string{"research", "best", "practice", "standard", "pattern", "library", "framework", "documentation"}

	businessCriticalKeywords = []string{"critical", "production", "urgent", "blocking", "outage", "down", "broken", "failing"}

	isolatedChangeKeywords   = []string{"fix", "bug", "small", "simple", "specific"}
	featureAdditionKeywords  = []string{"add", "new", "feature", "implement", "create"}
	systemImprovementKeywords = []string{"improve", "optimize", "enhance", "upgrade"}
	majorOverhaulKeywords    = []string{"comprehensive", "complete", "overhaul", "redesign", "rewrite"}

	// universal affected-service names, always checked in addition to the
	// table-driven service_keywords (§4.E).
	universalServiceKeywords = map[string][]string{
		"api":      {"api", "backend", "endpoint", "server"},
		"frontend": {"frontend", "ui", "client", "web"},
	}
)

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// Assess classifies task text across the eight dimensions plus business
// impact, scope, and affected services (§4.E). table supplies the
// repo-specific service-name keyword sets on top of the universal ones.
func Assess(task string, table *Table) Assessment {
	lower := strings.ToLower(task)

	a := Assessment{
		Security:       containsAny(lower, securityKeywords),
		Performance:    containsAny(lower, performanceKeywords),
		Architecture:   containsAny(lower, architectureKeywords),
		UserExperience: containsAny(lower, uxKeywords),
		Infrastructure: containsAny(lower, infrastructureKeywords),
		Data:           containsAny(lower, dataKeywords),
		Testing:        containsAny(lower, testingKeywords),
		Research:       containsAny(lower, researchKeywords),

		BusinessCritical: containsAny(lower, businessCriticalKeywords),
	}

	switch {
	case containsAny(lower, majorOverhaulKeywords):
		a.Scope = ScopeMajorOverhaul
	case containsAny(lower, systemImprovementKeywords):
		a.Scope = ScopeSystemImprovement
	case containsAny(lower, featureAdditionKeywords):
		a.Scope = ScopeFeatureAddition
	case containsAny(lower, isolatedChangeKeywords):
		a.Scope = ScopeIsolatedChange
	default:
		a.Scope = ScopeFeatureAddition
	}

	var services []string
	for name, kws := range universalServiceKeywords {
		if containsAny(lower, kws) {
			services = append(services, name)
		}
	}
	if table != nil {
		for name, kws := range table.ServiceKeywords() {
			if containsAny(lower, kws) {
				services = append(services, name)
			}
		}
	}
	a.AffectedServices = services

	return a
}

// IsComprehensive reports whether the task text itself signals a forced
// minimum fan-out (§4.E: "Comprehensive"/"audit"/"complete" tasks force a
// minimum fan-out covering architecture + quality + implementation +
// validation).
func IsComprehensive(task string) bool {
	lower := strings.ToLower(task)
	return containsAny(lower, []string{"comprehensive", "audit", "complete"})
}
