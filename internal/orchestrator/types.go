// Package orchestrator implements the Queen Orchestrator (§4.E): strategic
// task assessment, worker selection, plan assembly, and dispatch
// preparation. The orchestrator never executes workers itself; it prepares
// dispatch descriptors for the host runtime (§1, out of scope).
package orchestrator

import "time"

// ExecutionStrategy is OrchestrationPlan.execution_strategy (§3).
type ExecutionStrategy string

const (
	StrategyParallel   ExecutionStrategy = "parallel"
	StrategySequential ExecutionStrategy = "sequential"
	StrategyHybrid     ExecutionStrategy = "hybrid"
)

// Priority is WorkerAssignment.priority / WorkerConfig.priority (§3).
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Scope is the task's scope classification (§4.E).
type Scope string

const (
	ScopeIsolatedChange   Scope = "isolated_change"
	ScopeFeatureAddition  Scope = "feature_addition"
	ScopeSystemImprovement Scope = "system_improvement"
	ScopeMajorOverhaul    Scope = "major_overhaul"
)

// WorkerAssignment is one entry in OrchestrationPlan.worker_assignments (§3).
type WorkerAssignment struct {
	WorkerType         string   `json:"worker_type"`
	Priority           Priority `json:"priority"`
	TaskFocus          string   `json:"task_focus"`
	Dependencies       []string `json:"dependencies"`
	EstimatedDuration  string   `json:"estimated_duration"`
	StrategicValue     Priority `json:"strategic_value"`
	Rationale          string   `json:"rationale"`
}

// TaskExecutionStep is one entry in task_execution_plan (§3).
type TaskExecutionStep struct {
	WorkerType  string `json:"worker_type"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

// OrchestrationPlan is the full plan document (§3).
type OrchestrationPlan struct {
	SessionID               string              `json:"session_id"`
	Timestamp               time.Time           `json:"timestamp"`
	Status                  string              `json:"status"`
	TaskSummary             string              `json:"task_summary"`
	CoordinationComplexity  int                 `json:"coordination_complexity"` // 1-5, independent of Session.ComplexityLevel (1-4)
	OrchestrationRationale  string              `json:"orchestration_rationale"`
	EstimatedTotalDuration  string              `json:"estimated_total_duration"`
	WorkerAssignments       []WorkerAssignment  `json:"worker_assignments"`
	ExecutionStrategy       ExecutionStrategy    `json:"execution_strategy"`
	CoordinationNotes       []string            `json:"coordination_notes,omitempty"`
	SuccessCriteria         []string            `json:"success_criteria"`
	CodebaseInsights        []string            `json:"codebase_insights,omitempty"`
	TaskExecutionPlan       []TaskExecutionStep `json:"task_execution_plan"`
	WorkersSpawned          []string            `json:"workers_spawned"`
	CoordinationStatus      string              `json:"coordination_status"`
	MonitoringActive        bool                `json:"monitoring_active"`
	SessionPath             string              `json:"session_path"`
}

// Dispatch is one entry the orchestrator prepares for the host runtime
// (§4.E "Dispatch"): the external executor that actually spawns workers.
type Dispatch struct {
	WorkerType      string `json:"worker_type"`
	TaskDescription string `json:"task_description"`
	PromptText      string `json:"prompt_text"`
}
