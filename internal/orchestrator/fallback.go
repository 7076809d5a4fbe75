package orchestrator

import "time"

// FallbackPlan synthesizes a deterministic plan from task text alone when
// the model returns structurally invalid JSON for the plan schema (§4.E
// "Resilience"). It reuses the same keyword assessment and selection
// machinery as the normal path — "deterministic" here means it never
// calls the Model Router, not that it uses different logic. The fallback
// always produces at least one assignment when complexity >= 2, and
// marks itself in OrchestrationRationale.
func FallbackPlan(sessionID, sessionPath, task string, complexityLevel int, table *Table, now time.Time) *OrchestrationPlan {
	complexityLevel = clampFallbackComplexity(complexityLevel)

	a := Assess(task, table)
	recs, strategy := Select(task, a, complexityLevel, table)

	if len(recs) == 0 && complexityLevel >= 2 {
		recs = []Recommendation{{
			WorkerType:     "backend-worker",
			StrategicValue: PriorityMedium,
			Reason:         "fallback plan: no dimension matched, defaulting to a general implementation pass",
		}}
	}

	plan := AssemblePlan(sessionID, sessionPath, task, complexityLevel, recs, strategy, table, nil, now)
	plan.OrchestrationRationale = "FALLBACK PLAN: the model returned structurally invalid JSON for the orchestration schema; this plan was synthesized deterministically from task-text keywords. " + plan.OrchestrationRationale
	return plan
}

// clampFallbackComplexity restricts the fallback's complexity to {1,2,3}
// per §4.E.
func clampFallbackComplexity(c int) int {
	if c < 1 {
		return 1
	}
	if c > 3 {
		return 3
	}
	return c
}
