package worker

// Result is implemented by Output and every worker-type subtype so the
// Runner envelope (runner.go) can validate and enrich a model's parsed
// response without a type switch per worker type (§9 redesign flag: no
// inheritance hierarchy, composition plus this one accessor interface).
type Result interface {
	Normalize()
	Base() *Output
}

// Normalize on the base Output is a no-op: defaults are applied by
// EnsureDefaults, and there are no domain scores to clamp. It exists so
// Output itself satisfies Result for worker types without a dedicated
// subtype.
func (o *Output) Normalize() {}

// Base returns o itself, satisfying Result.
func (o *Output) Base() *Output { return o }

func (o *AnalyzerOutput) Base() *Output   { return &o.Output }
func (o *ArchitectOutput) Base() *Output  { return &o.Output }
func (o *BackendOutput) Base() *Output    { return &o.Output }
func (o *FrontendOutput) Base() *Output   { return &o.Output }
func (o *DesignerOutput) Base() *Output   { return &o.Output }
func (o *DevOpsOutput) Base() *Output     { return &o.Output }
func (o *ResearcherOutput) Base() *Output { return &o.Output }
func (o *TestOutput) Base() *Output       { return &o.Output }
func (o *ScribeOutput) Base() *Output     { return &o.Output }
func (o *QueenOutput) Base() *Output      { return &o.Output }

// clampScore keeps a domain score inside the [0, 10] range mandated by §3.
func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

// AnalyzerOutput extends Output with the analyzer-worker's domain scores,
// grounded on original_source/agents/pydantic_ai/analyzer/models.py.
type AnalyzerOutput struct {
	Output
	Findings         []Finding `json:"findings"`
	SecurityScore    float64   `json:"security_score"`
	PerformanceScore float64   `json:"performance_score"`
	QualityScore     float64   `json:"quality_score"`
}

// Normalize clamps scores and defaults Findings to an empty list; base
// defaults are applied separately by EnsureDefaults.
func (o *AnalyzerOutput) Normalize() {
	o.SecurityScore = clampScore(o.SecurityScore)
	o.PerformanceScore = clampScore(o.PerformanceScore)
	o.QualityScore = clampScore(o.QualityScore)
	if o.Findings == nil {
		o.Findings = []Finding{}
	}
}

// ArchitectOutput extends Output with architect-worker scores, grounded on
// original_source/agents/pydantic_ai/architect/models.py.
type ArchitectOutput struct {
	Output
	Findings          []Finding `json:"findings"`
	ArchitectureScore float64   `json:"architecture_score"`
	ScalabilityScore  float64   `json:"scalability_score"`
}

func (o *ArchitectOutput) Normalize() {
	o.ArchitectureScore = clampScore(o.ArchitectureScore)
	o.ScalabilityScore = clampScore(o.ScalabilityScore)
	if o.Findings == nil {
		o.Findings = []Finding{}
	}
}

// BackendOutput extends Output with backend-worker scores, grounded on
// original_source/agents/pydantic_ai/backend/models.py.
type BackendOutput struct {
	Output
	Findings    []Finding `json:"findings"`
	APIScore    float64   `json:"api_score"`
	ReliabilityScore float64 `json:"reliability_score"`
}

func (o *BackendOutput) Normalize() {
	o.APIScore = clampScore(o.APIScore)
	o.ReliabilityScore = clampScore(o.ReliabilityScore)
	if o.Findings == nil {
		o.Findings = []Finding{}
	}
}

// FrontendOutput extends Output with frontend-worker scores, grounded on
// original_source/agents/pydantic_ai/frontend/models.py.
type FrontendOutput struct {
	Output
	Findings          []Finding `json:"findings"`
	UsabilityScore    float64   `json:"usability_score"`
	AccessibilityScore float64  `json:"accessibility_score"`
}

func (o *FrontendOutput) Normalize() {
	o.UsabilityScore = clampScore(o.UsabilityScore)
	o.AccessibilityScore = clampScore(o.AccessibilityScore)
	if o.Findings == nil {
		o.Findings = []Finding{}
	}
}

// DesignerOutput extends Output with designer-worker scores, grounded on
// original_source/agents/pydantic_ai/designer/models.py.
type DesignerOutput struct {
	Output
	Findings       []Finding `json:"findings"`
	UXScore        float64   `json:"ux_score"`
	AccessibilityScore float64 `json:"accessibility_score"`
}

func (o *DesignerOutput) Normalize() {
	o.UXScore = clampScore(o.UXScore)
	o.AccessibilityScore = clampScore(o.AccessibilityScore)
	if o.Findings == nil {
		o.Findings = []Finding{}
	}
}

// DevOpsOutput extends Output with devops-worker scores, grounded on
// original_source/agents/pydantic_ai/devops/models.py.
type DevOpsOutput struct {
	Output
	Findings            []Finding `json:"findings"`
	InfrastructureScore float64   `json:"infrastructure_score"`
	DeploymentScore     float64   `json:"deployment_score"`
}

func (o *DevOpsOutput) Normalize() {
	o.InfrastructureScore = clampScore(o.InfrastructureScore)
	o.DeploymentScore = clampScore(o.DeploymentScore)
	if o.Findings == nil {
		o.Findings = []Finding{}
	}
}

// ResearcherOutput extends Output with researcher-worker scores.
type ResearcherOutput struct {
	Output
	Findings        []Finding `json:"findings"`
	RelevanceScore  float64   `json:"relevance_score"`
	ConfidenceScore float64   `json:"confidence_score"`
}

func (o *ResearcherOutput) Normalize() {
	o.RelevanceScore = clampScore(o.RelevanceScore)
	o.ConfidenceScore = clampScore(o.ConfidenceScore)
	if o.Findings == nil {
		o.Findings = []Finding{}
	}
}

// TestOutput extends Output with test-worker scores, grounded on
// original_source/agents/pydantic_ai/test/models.py.
type TestOutput struct {
	Output
	Findings        []Finding `json:"findings"`
	CoverageScore   float64   `json:"coverage_score"`
	ReliabilityScore float64  `json:"reliability_score"`
}

func (o *TestOutput) Normalize() {
	o.CoverageScore = clampScore(o.CoverageScore)
	o.ReliabilityScore = clampScore(o.ReliabilityScore)
	if o.Findings == nil {
		o.Findings = []Finding{}
	}
}

// ScribeOutput extends Output with the scribe-worker's documentation
// score, grounded on original_source/agents/pydantic_ai/scribe/models.py.
type ScribeOutput struct {
	Output
	SectionsWritten []string `json:"sections_written"`
	ClarityScore    float64  `json:"clarity_score"`
}

func (o *ScribeOutput) Normalize() {
	o.ClarityScore = clampScore(o.ClarityScore)
	if o.SectionsWritten == nil {
		o.SectionsWritten = []string{}
	}
}

// QueenOutput extends Output with the aggregator's synthesis fields,
// grounded on original_source/agents/pydantic_ai/queen/models.py. This is
// the queen-orchestrator worker's own output, distinct from the
// orchestrator.OrchestrationPlan it produces earlier in the session.
type QueenOutput struct {
	Output
	SynthesisMarkdown string   `json:"synthesis_markdown"`
	WorkersAggregated []string `json:"workers_aggregated"`
	ConfidenceScore   float64  `json:"confidence_score"`
}

func (o *QueenOutput) Normalize() {
	o.ConfidenceScore = clampScore(o.ConfidenceScore)
	if o.WorkersAggregated == nil {
		o.WorkersAggregated = []string{}
	}
}
