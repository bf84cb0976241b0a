// Package observability provides hooks for metrics around registry traffic
// and resolution decisions.
//
// Libraries emit events through the registered hooks; the default hooks
// do nothing, so packages such as resolve and integrations carry no
// dependency on a metrics backend. The command line registers a
// Prometheus-backed implementation when --metrics is given.
//
//	observability.SetResolveHooks(myHooks)
//	defer observability.Reset()
//
// Libraries call:
//
//	observability.Resolve().OnLookup(ctx, registry, name, outcome, duration)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Resolve Hooks
// =============================================================================

// ResolveHooks receives events from the resolution engine.
type ResolveHooks interface {
	// OnLookup records one registry query and its outcome
	// ("ok", "not_found", "transport", "base").
	OnLookup(ctx context.Context, registry, name, outcome string, duration time.Duration)

	// OnDecision records the terminal decision for one encountered node.
	OnDecision(ctx context.Context, ecosystem, decision string)

	// OnRunComplete records a finished (or aborted) resolution run.
	OnRunComplete(ctx context.Context, ecosystem string, nodes int, duration time.Duration, err error)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)
	// OnError records a transport failure (refused connection, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopResolveHooks is a no-op implementation of ResolveHooks.
type NoopResolveHooks struct{}

func (NoopResolveHooks) OnLookup(context.Context, string, string, string, time.Duration) {}
func (NoopResolveHooks) OnDecision(context.Context, string, string)                       {}
func (NoopResolveHooks) OnRunComplete(context.Context, string, int, time.Duration, error) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	resolveHooks ResolveHooks = NoopResolveHooks{}
	httpHooks    HTTPHooks    = NoopHTTPHooks{}
	hooksMu      sync.RWMutex
)

// SetResolveHooks registers resolution hooks. nil is ignored.
func SetResolveHooks(h ResolveHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		resolveHooks = h
	}
}

// SetHTTPHooks registers HTTP hooks. nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Resolve returns the registered resolution hooks.
func Resolve() ResolveHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return resolveHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	resolveHooks = NoopResolveHooks{}
	httpHooks = NoopHTTPHooks{}
}
