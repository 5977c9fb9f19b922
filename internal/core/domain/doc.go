// Package domain defines the core domain models for the node store.
//
// Domain models are pure value objects without any IO dependencies
// or framework coupling. This package contains:
//
//   - Node: the stored unit, a key with its payload and expiration
//   - Errors: domain error definitions shared by every layer
package domain
