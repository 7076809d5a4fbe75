package modelrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivemind-ai/queen/internal/hiveerrors"
)

type recordingResolver struct {
	req  Request
	resp *Response
	err  error
}

func (r *recordingResolver) Resolve(ctx context.Context, req Request) (*Response, error) {
	r.req = req
	return r.resp, r.err
}

func TestCompleteDispatchesByScheme(t *testing.T) {
	r := NewRouter()
	custom := &recordingResolver{resp: &Response{Parts: []Part{{Kind: "text", Text: "ok"}}}}
	r.Register("custom", custom)

	resp, err := r.Complete(context.Background(), "custom:max-subscription", Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Parts[0].Text)
	assert.Equal(t, "custom:max-subscription", custom.req.Model)
}

func TestCompleteFallsBackToDefaultResolverForUnregisteredScheme(t *testing.T) {
	r := NewRouter()
	fallback := &recordingResolver{resp: &Response{Parts: []Part{{Kind: "text", Text: "fallback"}}}}
	r.RegisterDefault(fallback)

	resp, err := r.Complete(context.Background(), "openai:gpt-5", Request{})
	require.NoError(t, err)
	assert.Equal(t, "fallback", resp.Parts[0].Text)
}

func TestCompleteErrorsWhenNoResolverAndNoFallback(t *testing.T) {
	r := NewRouter()
	_, err := r.Complete(context.Background(), "openai:gpt-5", Request{})
	assert.Error(t, err)
}

func TestRegisterReplacesEarlierResolverForSameScheme(t *testing.T) {
	r := NewRouter()
	first := &recordingResolver{resp: &Response{Parts: []Part{{Kind: "text", Text: "first"}}}}
	second := &recordingResolver{resp: &Response{Parts: []Part{{Kind: "text", Text: "second"}}}}
	r.Register("custom", first)
	r.Register("custom", second)

	resp, err := r.Complete(context.Background(), "custom:anything", Request{})
	require.NoError(t, err)
	assert.Equal(t, "second", resp.Parts[0].Text)
}

func TestRenderPromptJoinsTextPartsAndCapitalizesRole(t *testing.T) {
	messages := []Message{
		{Role: "system", Content: []ContentPart{{Kind: "text", Text: "be terse"}}},
		{Role: "user", Content: []ContentPart{{Kind: "text", Text: "do"}, {Kind: "text", Text: "the thing"}}},
	}
	rendered := RenderPrompt(messages)
	assert.Equal(t, "System: be terse\n\nUser: do the thing", rendered)
}

func TestRenderPromptDefaultsBlankRoleToUser(t *testing.T) {
	rendered := RenderPrompt([]Message{{Role: "", Content: []ContentPart{{Kind: "text", Text: "hi"}}}})
	assert.Equal(t, "User: hi", rendered)
}

func TestEstimateTokensIsLengthOverFour(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 2, EstimateTokens("12345678"))
	assert.Equal(t, 2, EstimateTokens("123456789"))
}

func TestResolveAliasMapsKnownCustomNames(t *testing.T) {
	assert.Equal(t, "sonnet", ResolveAlias("custom:max-subscription"))
	assert.Equal(t, "opus", ResolveAlias("custom:claude-opus-4"))
	assert.Equal(t, "haiku", ResolveAlias("custom:claude-3-5-haiku"))
}

func TestResolveAliasFallsBackToSuffixForUnknownAlias(t *testing.T) {
	assert.Equal(t, "some-future-model", ResolveAlias("custom:some-future-model"))
}

func newHealthyServer(t *testing.T, claudeHandler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("/claude", claudeHandler)
	return httptest.NewServer(mux)
}

func TestHTTPBackendResolveHappyPathTextResponse(t *testing.T) {
	server := newHealthyServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sonnet", body["model"])
		json.NewEncoder(w).Encode(map[string]string{"response": "hello from the model"})
	})
	defer server.Close()

	backend := NewHTTPBackend(server.URL)
	resp, err := backend.Resolve(context.Background(), Request{
		Model:    "custom:max-subscription",
		Messages: []Message{{Role: "user", Content: []ContentPart{{Kind: "text", Text: "hi"}}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello from the model", resp.Parts[0].Text)
	assert.Equal(t, "text", resp.Parts[0].Kind)
}

func TestHTTPBackendResolveBridgesStructuredOutputWhenRequested(t *testing.T) {
	server := newHealthyServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"response": `{"worker":"backend-worker","status":"completed"}`})
	})
	defer server.Close()

	backend := NewHTTPBackend(server.URL)
	resp, err := backend.Resolve(context.Background(), Request{
		Model:          "custom:max-subscription",
		WantStructured: true,
	})
	require.NoError(t, err)
	require.Equal(t, "tool_call", resp.Parts[0].Kind)
	assert.Equal(t, "final_result", resp.Parts[0].ToolName)
	assert.Equal(t, "backend-worker", resp.Parts[0].Arguments["worker"])
}

func TestHTTPBackendResolveRateLimitedMapsTo429(t *testing.T) {
	server := newHealthyServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	})
	defer server.Close()

	backend := NewHTTPBackend(server.URL)
	_, err := backend.Resolve(context.Background(), Request{Model: "custom:max-subscription"})
	require.Error(t, err)
	var rateLimited *hiveerrors.RateLimitedError
	assert.ErrorAs(t, err, &rateLimited)
}

func TestHTTPBackendHealthFailsWhenStatusNotHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "degraded"})
	}))
	defer server.Close()

	backend := NewHTTPBackend(server.URL)
	err := backend.Health(context.Background())
	assert.Error(t, err)
	assert.False(t, backend.healthy)
}

func TestHTTPBackendResolveFailsWhenServiceUnreachable(t *testing.T) {
	backend := NewHTTPBackend("http://127.0.0.1:1")
	_, err := backend.Resolve(context.Background(), Request{Model: "custom:max-subscription"})
	assert.Error(t, err)
}
