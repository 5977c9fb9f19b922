// Package shutdown coordinates graceful process termination.
//
// A Handler collects hooks and runs them in reverse registration order
// when SIGINT or SIGTERM arrives, when its context is canceled, or when
// Trigger is called. All hooks share one deadline.
//
// Usage:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown(func(ctx context.Context) error { return store.Close() })
//	go work(h.Context())
//	err := h.Wait(ctx)
package shutdown
