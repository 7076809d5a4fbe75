// Package resources embeds the core's external text resources: the
// worker-type table (§4.C/§4.E) and the per-worker-type prompt templates
// (§4.C). Keeping these as data files rather than Go string literals lets
// a deployment retune worker tags, dependencies, and prompt wording
// without touching Go code; the files are compiled into the binary, so a
// change takes effect on the next build.
package resources

import "embed"

//go:embed config/worker_types.yaml
var WorkerTypesYAML []byte

//go:embed templates/*.tmpl
var Templates embed.FS
