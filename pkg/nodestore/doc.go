// Package nodestore is the public entry point of the node store.
//
// A node store maps opaque string keys to JSON-serializable values, one
// document per key, with optional expiration:
//
//	cfg, err := nodestore.LoadConfig("nodestore.yaml", nil)
//	store, err := nodestore.Open(ctx, cfg)
//	defer store.Close()
//
//	err = store.Set(ctx, "event-1", payload, nodestore.WithTTL(24*time.Hour))
//	v, found, err := store.Get(ctx, "event-1")
//
// Errors are matched with errors.Is against the exported sentinels.
package nodestore
