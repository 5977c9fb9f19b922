package domain

import (
	"crypto/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

// Node constraints.
const (
	// MaxIDLength bounds node IDs. MongoDB caps index keys well above this,
	// but event ids in practice are short hashes.
	MaxIDLength = 1024

	// GeneratedIDPrefix is the prefix for IDs produced by NewNodeID.
	GeneratedIDPrefix = "nd-"
)

// Node is the stored unit: a key, its binary payload and an optional
// absolute expiration time.
type Node struct {
	// ID is the caller-supplied lookup key and the document identity.
	ID string `json:"id"`

	// Data is the UTF-8 JSON encoding of the caller's value, possibly
	// wrapped by ContentEncoding.
	Data []byte `json:"data"`

	// ContentEncoding names the codec applied to Data ("" for identity).
	ContentEncoding string `json:"content_encoding,omitempty"`

	// ExpiresAt is the instant after which the engine may remove the node.
	// The zero value means the node never expires.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// HasExpiry reports whether the node carries an expiration time.
func (n *Node) HasExpiry() bool {
	return !n.ExpiresAt.IsZero()
}

// IsExpired reports whether the node's expiration time has passed at now.
// Nodes without an expiration never expire.
func (n *Node) IsExpired(now time.Time) bool {
	return n.HasExpiry() && !now.Before(n.ExpiresAt)
}

// TTL returns the remaining time-to-live at now, or 0 when expired or unset.
func (n *Node) TTL(now time.Time) time.Duration {
	if !n.HasExpiry() {
		return 0
	}
	if d := n.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	clone := *n
	if n.Data != nil {
		clone.Data = append([]byte(nil), n.Data...)
	}
	return &clone
}

// ValidateID checks that id is usable as a node key.
func ValidateID(id string) error {
	if id == "" {
		return ErrInvalidArgument.WithDetails("id must not be empty")
	}
	if len(id) > MaxIDLength {
		return ErrInvalidArgument.WithDetailsf("id exceeds %d bytes", MaxIDLength)
	}
	if !utf8.ValidString(id) {
		return ErrInvalidArgument.WithDetails("id must be valid UTF-8")
	}
	return nil
}

// NewNodeID generates a sortable random node ID.
// Format: nd-{ulid_lowercase}.
func NewNodeID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return GeneratedIDPrefix + strings.ToLower(id.String()), nil
}
