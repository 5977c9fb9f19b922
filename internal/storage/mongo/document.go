package mongo

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/yndnr/nodestore-go/internal/core/domain"
)

// malformedEncoding marks a stored document that does not have the node
// shape. No codec accepts it, so reads of that id report corruption while
// the rest of a batch is still served.
const malformedEncoding = "mongo-malformed-document"

// nodeDocument is the BSON shape of a stored node.
type nodeDocument struct {
	ID              string     `bson:"_id"`
	Data            []byte     `bson:"data"`
	ContentEncoding string     `bson:"content_encoding,omitempty"`
	ExpiresAt       *time.Time `bson:"expires_at,omitempty"`
}

func toDocument(node *domain.Node) nodeDocument {
	doc := nodeDocument{
		ID:              node.ID,
		Data:            node.Data,
		ContentEncoding: node.ContentEncoding,
	}
	if node.HasExpiry() {
		// BSON dates have millisecond precision.
		exp := node.ExpiresAt.UTC()
		doc.ExpiresAt = &exp
	}
	return doc
}

func (d nodeDocument) node() *domain.Node {
	node := &domain.Node{
		ID:              d.ID,
		Data:            d.Data,
		ContentEncoding: d.ContentEncoding,
	}
	if d.ExpiresAt != nil {
		node.ExpiresAt = d.ExpiresAt.UTC()
	}
	return node
}

// decodeDocument converts a raw document into a node.
func decodeDocument(raw bson.Raw) (*domain.Node, error) {
	var doc nodeDocument
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc.node(), nil
}

// batchNode converts one document of a batch read. A document that fails
// to decode becomes a node carrying malformedEncoding. ok is false when
// not even its string _id can be read.
func batchNode(raw bson.Raw) (node *domain.Node, decodeErr error, ok bool) {
	node, decodeErr = decodeDocument(raw)
	if decodeErr == nil {
		return node, nil, true
	}
	id, ok := documentID(raw)
	if !ok {
		return nil, decodeErr, false
	}
	return &domain.Node{
		ID:              id,
		Data:            append([]byte(nil), raw...),
		ContentEncoding: malformedEncoding,
	}, decodeErr, true
}

func documentID(raw bson.Raw) (string, bool) {
	v, err := raw.LookupErr("_id")
	if err != nil {
		return "", false
	}
	return v.StringValueOK()
}

// corruptDocument reports a document for id that does not decode.
func corruptDocument(id string, err error) error {
	return domain.ErrCorruption.WithDetails(fmt.Sprintf("mongo: document %q", id)).WithCause(err)
}
