package orchestrator

import (
	"fmt"
	"sort"
	"time"
)

// AssemblePlan builds a complete OrchestrationPlan from a Select()
// recommendation set (§4.E "Plan assembly"). Dependency edges come from
// the fixed table, filtered to worker types present in the plan and to
// preserve acyclicity (invariants (a)-(c) in §3).
func AssemblePlan(sessionID, sessionPath, task string, complexityLevel int, recs []Recommendation, strategy ExecutionStrategy, table *Table, codebaseInsights []string, now time.Time) *OrchestrationPlan {
	selected := make(map[string]bool, len(recs))
	for _, r := range recs {
		selected[r.WorkerType] = true
	}

	assignments := make([]WorkerAssignment, 0, len(recs))
	for _, r := range recs {
		deps := filterDependencies(table.FixedDependencies(r.WorkerType), selected)
		assignments = append(assignments, WorkerAssignment{
			WorkerType:        r.WorkerType,
			Priority:          r.StrategicValue,
			TaskFocus:         taskFocus(task, r.WorkerType),
			Dependencies:      deps,
			EstimatedDuration: table.DurationBucket(complexityLevel),
			StrategicValue:    r.StrategicValue,
			Rationale:         r.Reason,
		})
	}

	assignments = breakCycles(assignments)

	steps := make([]TaskExecutionStep, 0, len(assignments))
	for i, a := range assignments {
		steps = append(steps, TaskExecutionStep{
			WorkerType:  a.WorkerType,
			Description: a.TaskFocus,
			Order:       i + 1,
		})
	}

	workersSpawned := make([]string, 0, len(assignments))
	for _, a := range assignments {
		workersSpawned = append(workersSpawned, a.WorkerType)
	}

	coordinationComplexity := complexityLevel + 1
	if coordinationComplexity > 5 {
		coordinationComplexity = 5
	}
	if coordinationComplexity < 1 {
		coordinationComplexity = 1
	}

	return &OrchestrationPlan{
		SessionID:              sessionID,
		Timestamp:              now.UTC(),
		Status:                 "planned",
		TaskSummary:            task,
		CoordinationComplexity: coordinationComplexity,
		OrchestrationRationale: fmt.Sprintf("Selected %d worker(s) based on dimension analysis of the task text.", len(assignments)),
		EstimatedTotalDuration: table.DurationBucket(complexityLevel),
		WorkerAssignments:      assignments,
		ExecutionStrategy:      strategy,
		SuccessCriteria: []string{
			"Every assigned worker reaches a terminal status (completed, blocked, or failed)",
			"Every assigned worker's output file exists and validates against its schema",
			"A synthesis artifact is produced once all workers have completed",
		},
		CodebaseInsights:   codebaseInsights,
		TaskExecutionPlan:  steps,
		WorkersSpawned:     workersSpawned,
		CoordinationStatus: "planned",
		MonitoringActive:   false,
		SessionPath:        sessionPath,
	}
}

func filterDependencies(deps []string, selected map[string]bool) []string {
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		if selected[d] {
			out = append(out, d)
		}
	}
	return out
}

func taskFocus(task, workerType string) string {
	return fmt.Sprintf("As the %s, address the following task with your specialty's lens: %s", workerType, task)
}

// breakCycles removes dependency edges that would introduce a cycle,
// preserving acyclicity (invariant (c)) by processing assignments in a
// stable order and only keeping a dependency edge if the depended-on
// worker does not (transitively, after this pass) depend back on the
// dependent worker.
func breakCycles(assignments []WorkerAssignment) []WorkerAssignment {
	index := map[string]int{}
	for i, a := range assignments {
		index[a.WorkerType] = i
	}

	order := make([]string, len(assignments))
	for i, a := range assignments {
		order[i] = a.WorkerType
	}
	sort.Strings(order) // deterministic processing order

	kept := map[string][]string{}
	for _, wt := range order {
		i := index[wt]
		for _, dep := range assignments[i].Dependencies {
			if wt == dep {
				continue // self-dependency never allowed
			}
			if reaches(kept, dep, wt) {
				continue // would close a cycle
			}
			kept[wt] = append(kept[wt], dep)
		}
	}

	out := make([]WorkerAssignment, len(assignments))
	copy(out, assignments)
	for i := range out {
		out[i].Dependencies = kept[out[i].WorkerType]
	}
	return out
}

func reaches(graph map[string][]string, from, to string) bool {
	visited := map[string]bool{}
	var dfs func(string) bool
	dfs = func(node string) bool {
		if node == to {
			return true
		}
		if visited[node] {
			return false
		}
		visited[node] = true
		for _, next := range graph[node] {
			if dfs(next) {
				return true
			}
		}
		return false
	}
	return dfs(from)
}
