// Package modelrouter hides the concrete model backend behind a logical
// model name (§4.G). A Router dispatches a logical name of the form
// "<provider>:<model>" or "custom:<alias>" to a Resolver registered for
// that scheme; unknown schemes fall through to a default resolver
// (§9 redesign: explicit registry instead of monkey-patched globals).
package modelrouter

import (
	"context"
	"fmt"
	"strings"
)

// Message is one chat message in a completion request (§4.G).
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content []ContentPart
}

// ContentPart is one part of a message's content. Only Text is used by
// this core; other kinds are accepted but left out of the rendered prompt
// (lossy, as specified).
type ContentPart struct {
	Kind string // "text" | other (opaque, not used by the core)
	Text string
}

// Request is a structured completion request.
type Request struct {
	Model        string
	Messages     []Message
	TimeoutSecs  int
	WantStructured bool
}

// Part is one part of a Response — either plain text or a structured
// tool-call-style part.
type Part struct {
	Kind      string // "text" | "tool_call"
	Text      string
	ToolName  string                 // set when Kind == "tool_call"
	Arguments map[string]interface{} // set when Kind == "tool_call"
}

// Response is what a Resolver returns.
type Response struct {
	Parts            []Part
	EstimatedTokens  int
}

// Resolver executes a Request against one concrete backend.
type Resolver interface {
	Resolve(ctx context.Context, req Request) (*Response, error)
}

// Router is the pluggable indirection described in §4.G.
type Router struct {
	resolvers map[string]Resolver
	fallback  Resolver
}

// NewRouter constructs an empty router. Callers register scheme resolvers
// explicitly at process start (§9: "registration happens explicitly at
// process start", replacing the source's import-time monkey-patch).
func NewRouter() *Router {
	return &Router{resolvers: map[string]Resolver{}}
}

// Register binds scheme (e.g. "custom", "openai", "anthropic") to a
// Resolver. A later call for the same scheme replaces the earlier one.
func (r *Router) Register(scheme string, resolver Resolver) {
	r.resolvers[scheme] = resolver
}

// RegisterDefault sets the resolver used when no scheme-specific resolver
// matches.
func (r *Router) RegisterDefault(resolver Resolver) {
	r.fallback = resolver
}

// Complete resolves logicalModel's scheme and dispatches the request.
func (r *Router) Complete(ctx context.Context, logicalModel string, req Request) (*Response, error) {
	req.Model = logicalModel
	scheme := schemeOf(logicalModel)
	if resolver, ok := r.resolvers[scheme]; ok {
		return resolver.Resolve(ctx, req)
	}
	if r.fallback != nil {
		return r.fallback.Resolve(ctx, req)
	}
	return nil, fmt.Errorf("modelrouter: no resolver registered for scheme %q (model %q)", scheme, logicalModel)
}

func schemeOf(logicalModel string) string {
	if i := strings.IndexByte(logicalModel, ':'); i >= 0 {
		return logicalModel[:i]
	}
	return ""
}

// RenderPrompt serializes messages into a single prompt string (§4.G):
// multipart text parts are joined with a single space, messages are
// joined with a blank line, each message prefixed with its capitalized
// role. This rendering is lossy for non-text parts.
func RenderPrompt(messages []Message) string {
	rendered := make([]string, 0, len(messages))
	for _, m := range messages {
		texts := make([]string, 0, len(m.Content))
		for _, part := range m.Content {
			if part.Kind == "" || part.Kind == "text" {
				texts = append(texts, part.Text)
			}
		}
		body := strings.Join(texts, " ")
		rendered = append(rendered, capitalizeRole(m.Role)+": "+body)
	}
	return strings.Join(rendered, "\n\n")
}

func capitalizeRole(role string) string {
	if role == "" {
		return "User"
	}
	return strings.ToUpper(role[:1]) + role[1:]
}

// EstimateTokens is the §4.G token estimate: len(serialized)/4, with no
// attempt made to call a token-counting endpoint.
func EstimateTokens(serialized string) int {
	return len(serialized) / 4
}
