package modelrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hivemind-ai/queen/internal/hiveerrors"
)

// DefaultRequestTimeout and DefaultSocketTimeout are the §4.G/§6 defaults
// for the HTTP model service backend.
const (
	DefaultRequestTimeout = 120 * time.Second
	DefaultSocketTimeout  = 150 * time.Second
)

// aliasTable maps the fixed custom: logical names to concrete model keys
// understood by the backing HTTP service, grounded verbatim on
// original_source/agents/pydantic_ai/shared/custom_provider/claude_max/
// api_service_client.py's model_mapping.
var aliasTable = map[string]string{
	"custom:max-subscription": "sonnet",
	"custom:claude-opus-4":    "opus",
	"custom:claude-sonnet-4":  "sonnet",
	"custom:claude-3-7-sonnet": "claude-3-7-sonnet-20250219",
	"custom:claude-3-5-haiku": "haiku",
}

// ResolveAlias maps a custom: logical name to its concrete model key,
// falling back to the logical name's suffix for unknown aliases.
func ResolveAlias(logicalModel string) string {
	if concrete, ok := aliasTable[logicalModel]; ok {
		return concrete
	}
	return schemeSuffix(logicalModel)
}

func schemeSuffix(logicalModel string) string {
	scheme := schemeOf(logicalModel)
	if len(scheme)+1 < len(logicalModel) {
		return logicalModel[len(scheme)+1:]
	}
	return logicalModel
}

// HTTPBackend is the Resolver for custom: logical names, backed by the
// local subscription service described in §6: GET /health, POST /claude.
type HTTPBackend struct {
	BaseURL string
	client  *http.Client
	healthy bool
}

// NewHTTPBackend constructs a backend whose outgoing requests are wrapped
// with an OpenTelemetry-instrumented transport (SPEC_FULL §4.G), grounded
// on the teacher's otelhttp contrib usage.
func NewHTTPBackend(baseURL string) *HTTPBackend {
	return &HTTPBackend{
		BaseURL: baseURL,
		client: &http.Client{
			Timeout:   DefaultSocketTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Health probes GET /health; any non-200 response, or a body whose
// "status" field isn't "healthy", is "service not running" (§4.G/§6).
func (b *HTTPBackend) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.BaseURL+"/health", nil)
	if err != nil {
		return hiveerrors.New("modelrouter.Health", hiveerrors.KindModelUnavailable, b.BaseURL, err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return hiveerrors.New("modelrouter.Health", hiveerrors.KindModelUnavailable, b.BaseURL,
			fmt.Errorf("service not running: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return hiveerrors.New("modelrouter.Health", hiveerrors.KindModelUnavailable, b.BaseURL,
			fmt.Errorf("service not running: unexpected status %d", resp.StatusCode))
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return hiveerrors.New("modelrouter.Health", hiveerrors.KindModelUnavailable, b.BaseURL,
			fmt.Errorf("service not running: unparseable health body: %w", err))
	}
	if body.Status != "healthy" {
		return hiveerrors.New("modelrouter.Health", hiveerrors.KindModelUnavailable, b.BaseURL,
			fmt.Errorf("service not running: status %q", body.Status))
	}

	b.healthy = true
	return nil
}

// Resolve implements Resolver. The first call probes /health if it has
// not already succeeded once on this backend.
func (b *HTTPBackend) Resolve(ctx context.Context, req Request) (*Response, error) {
	if !b.healthy {
		if err := b.Health(ctx); err != nil {
			return nil, err
		}
	}

	prompt := RenderPrompt(req.Messages)
	timeout := req.TimeoutSecs
	if timeout <= 0 {
		timeout = int(DefaultRequestTimeout.Seconds())
	}

	payload, err := json.Marshal(map[string]interface{}{
		"prompt":  prompt,
		"model":   ResolveAlias(req.Model),
		"timeout": timeout,
	})
	if err != nil {
		return nil, hiveerrors.New("modelrouter.Resolve", hiveerrors.KindModelUnavailable, req.Model, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, b.BaseURL+"/claude", bytes.NewReader(payload))
	if err != nil {
		return nil, hiveerrors.New("modelrouter.Resolve", hiveerrors.KindModelUnavailable, req.Model, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		if callCtx.Err() != nil {
			return nil, &hiveerrors.TimeoutError{TimeoutSeconds: timeout, Err: err}
		}
		return nil, hiveerrors.New("modelrouter.Resolve", hiveerrors.KindModelUnavailable, req.Model, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, hiveerrors.New("modelrouter.Resolve", hiveerrors.KindModelUnavailable, req.Model, readErr)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &hiveerrors.RateLimitedError{WaitSeconds: 2, Err: fmt.Errorf("429: %s", string(body))}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, hiveerrors.New("modelrouter.Resolve", hiveerrors.KindModelUnavailable, req.Model,
			fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, hiveerrors.New("modelrouter.Resolve", hiveerrors.KindModelUnavailable, req.Model, err)
	}

	return bridgeStructuredOutput(result.Response, req.WantStructured), nil
}

// bridgeStructuredOutput implements the §4.G structured-output bridge:
// when the caller requested a typed result, attempt to parse the response
// body as JSON; if it parses, return a single "final_result" tool-call
// part with the JSON fields as arguments, else return it as text.
func bridgeStructuredOutput(raw string, wantStructured bool) *Response {
	tokens := EstimateTokens(raw)
	if wantStructured {
		var asMap map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &asMap); err == nil {
			return &Response{
				Parts: []Part{{
					Kind:      "tool_call",
					ToolName:  "final_result",
					Arguments: asMap,
				}},
				EstimatedTokens: tokens,
			}
		}
	}
	return &Response{
		Parts:           []Part{{Kind: "text", Text: raw}},
		EstimatedTokens: tokens,
	}
}
