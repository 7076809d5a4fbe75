package orchestrator

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/hivemind-ai/queen/resources"
)

// WorkerTypeEntry is one row of the worker-type table (§3 WorkerConfig.tag_access,
// §4.E dependency table), loaded from resources/config/worker_types.yaml.
type WorkerTypeEntry struct {
	Type         string   `yaml:"type"`
	Tags         []string `yaml:"tags"`
	Dependencies []string `yaml:"dependencies"`
}

type workerTypesFile struct {
	WorkerTypes     []WorkerTypeEntry  `yaml:"worker_types"`
	DurationBuckets map[string]string  `yaml:"duration_buckets"`
	ServiceKeywords map[string][]string `yaml:"service_keywords"`
}

// Table is the resolved worker-type table: valid worker types, their tag
// access, their fixed dependency edges, and duration buckets by
// complexity level (§3 invariant (a), §4.E).
type Table struct {
	entries         map[string]WorkerTypeEntry
	order           []string
	durationBuckets map[string]string
	serviceKeywords map[string][]string
}

// LoadWorkerTypeTable parses the embedded worker_types.yaml resource.
func LoadWorkerTypeTable() (*Table, error) {
	var f workerTypesFile
	if err := yaml.Unmarshal(resources.WorkerTypesYAML, &f); err != nil {
		return nil, fmt.Errorf("orchestrator: parsing worker_types.yaml: %w", err)
	}
	t := &Table{
		entries:         map[string]WorkerTypeEntry{},
		durationBuckets: f.DurationBuckets,
		serviceKeywords: f.ServiceKeywords,
	}
	for _, e := range f.WorkerTypes {
		t.entries[e.Type] = e
		t.order = append(t.order, e.Type)
	}
	return t, nil
}

// Valid reports whether workerType exists in the fixed table (invariant (a)).
func (t *Table) Valid(workerType string) bool {
	_, ok := t.entries[workerType]
	return ok
}

// Tags returns the tag_access list for workerType.
func (t *Table) Tags(workerType string) []string {
	return append([]string(nil), t.entries[workerType].Tags...)
}

// FixedDependencies returns the fixed dependency edges for workerType, to
// be filtered against the set of selected workers to preserve acyclicity
// (§4.E).
func (t *Table) FixedDependencies(workerType string) []string {
	return append([]string(nil), t.entries[workerType].Dependencies...)
}

// DurationBucket returns the estimated-duration string bucket for a
// complexity level (§4.E).
func (t *Table) DurationBucket(complexity int) string {
	if b, ok := t.durationBuckets[fmt.Sprintf("%d", complexity)]; ok {
		return b
	}
	return "30-60 minutes"
}

// ServiceKeywords returns the repo-specific service name -> keyword-set
// table supplementing the universal api/frontend entries (§4.E).
func (t *Table) ServiceKeywords() map[string][]string {
	return t.serviceKeywords
}

// AllWorkerTypes returns every worker type in declaration order.
func (t *Table) AllWorkerTypes() []string {
	return append([]string(nil), t.order...)
}
