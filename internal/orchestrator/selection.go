package orchestrator

// MaxWorkers bounds the fan-out even for the most complex task (§4.E).
const MaxWorkers = 8

// Recommendation is one dimension's worker suggestion before dedup.
type Recommendation struct {
	WorkerType     string
	StrategicValue Priority
	Reason         string
}

// recommend maps each true assessment dimension to one worker_type
// recommendation, grounded on original_source/agents/pydantic_ai/queen/
// agent.py's evaluate_worker_needs tool and the worker descriptions in
// queen/agent.py's system prompt.
func recommend(a Assessment) []Recommendation {
	var recs []Recommendation
	add := func(workerType string, value Priority, reason string) {
		recs = append(recs, Recommendation{WorkerType: workerType, StrategicValue: value, Reason: reason})
	}

	if a.Security {
		add("analyzer-worker", PriorityCritical, "task touches authentication, access control, or other security-sensitive surface")
	}
	if a.Performance {
		add("analyzer-worker", PriorityHigh, "task implies a performance or scaling concern worth measuring")
	}
	if a.Architecture {
		add("architect-worker", PriorityHigh, "task changes structure, integration points, or design patterns")
	}
	if a.UserExperience {
		add("frontend-worker", PriorityMedium, "task has user-facing interface surface")
		add("designer-worker", PriorityMedium, "task affects visual design or accessibility")
	}
	if a.Infrastructure {
		add("devops-worker", PriorityHigh, "task touches deployment, CI/CD, or infrastructure")
	}
	if a.Data {
		add("backend-worker", PriorityHigh, "task involves API, service, or data-model work")
	}
	if a.Testing {
		add("test-worker", PriorityMedium, "task needs coverage or quality validation")
	}
	if a.Research {
		add("researcher-worker", PriorityLow, "task benefits from best-practice or standards research")
	}
	if a.BusinessCritical {
		add("analyzer-worker", PriorityCritical, "task is flagged business-critical and needs a risk pass")
	}

	return recs
}

// Select aggregates recommendations, dedupes, respects MaxWorkers, and
// decides an execution strategy (§4.E). It implements the simple-task and
// comprehensive-task special cases from the spec.
func Select(task string, a Assessment, complexityLevel int, table *Table) ([]Recommendation, ExecutionStrategy) {
	recs := recommend(a)

	seen := map[string]int{}
	deduped := make([]Recommendation, 0, len(recs))
	for _, r := range recs {
		if idx, ok := seen[r.WorkerType]; ok {
			if priorityRank(r.StrategicValue) > priorityRank(deduped[idx].StrategicValue) {
				deduped[idx] = r
			}
			continue
		}
		seen[r.WorkerType] = len(deduped)
		deduped = append(deduped, r)
	}

	flaggedDimensions := countTrue(a)

	// Simple tasks: one flagged dimension, complexity <= 2 -> single-worker plan.
	if flaggedDimensions <= 1 && complexityLevel <= 2 && len(deduped) > 0 {
		return deduped[:1], StrategyParallel
	}

	if len(deduped) == 0 {
		// No dimension fired; still produce a minimal default so every
		// task yields at least one assignment when complexity >= 2
		// (fallback-plan invariant, reused here for the normal path too).
		deduped = append(deduped, Recommendation{WorkerType: "backend-worker", StrategicValue: PriorityMedium, Reason: "no dimension matched; defaulting to a general implementation pass"})
	}

	if IsComprehensive(task) {
		deduped = ensureMinimumFanOut(deduped)
	}

	if len(deduped) > MaxWorkers {
		deduped = topByPriority(deduped, MaxWorkers)
	}

	strategy := StrategyParallel
	if hasDependencyWorkers(deduped, table) {
		strategy = StrategyHybrid
	}

	return deduped, strategy
}

// ensureMinimumFanOut covers architecture + quality + infrastructure +
// implementation + validation for comprehensive/audit/complete tasks
// (§4.E): at least five assignments, including analyzer-worker,
// architect-worker, devops-worker, test-worker, and one implementation
// worker.
func ensureMinimumFanOut(recs []Recommendation) []Recommendation {
	required := []struct {
		workerType string
		value      Priority
		reason     string
	}{
		{"architect-worker", PriorityHigh, "comprehensive task requires an architectural pass"},
		{"analyzer-worker", PriorityCritical, "comprehensive task requires a quality/security pass"},
		{"devops-worker", PriorityHigh, "comprehensive task requires an infrastructure pass"},
		{"backend-worker", PriorityHigh, "comprehensive task requires an implementation pass"},
		{"test-worker", PriorityMedium, "comprehensive task requires a validation pass"},
	}
	have := map[string]bool{}
	for _, r := range recs {
		have[r.WorkerType] = true
	}
	for _, req := range required {
		if !have[req.workerType] {
			recs = append(recs, Recommendation{WorkerType: req.workerType, StrategicValue: req.value, Reason: req.reason})
			have[req.workerType] = true
		}
	}
	return recs
}

func countTrue(a Assessment) int {
	n := 0
	for _, v := range []bool{a.Security, a.Performance, a.Architecture, a.UserExperience, a.Infrastructure, a.Data, a.Testing, a.Research} {
		if v {
			n++
		}
	}
	return n
}

func priorityRank(p Priority) int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

func topByPriority(recs []Recommendation, n int) []Recommendation {
	sorted := append([]Recommendation(nil), recs...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && priorityRank(sorted[j].StrategicValue) > priorityRank(sorted[j-1].StrategicValue); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func hasDependencyWorkers(recs []Recommendation, table *Table) bool {
	if table == nil {
		return false
	}
	selected := map[string]bool{}
	for _, r := range recs {
		selected[r.WorkerType] = true
	}
	for _, r := range recs {
		for _, dep := range table.FixedDependencies(r.WorkerType) {
			if selected[dep] {
				return true
			}
		}
	}
	return false
}
