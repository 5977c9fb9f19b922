package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/yndnr/nodestore-go/internal/core/domain"
	"github.com/yndnr/nodestore-go/internal/telemetry/logger"
)

// Server error codes for an index that exists with other options.
const (
	codeIndexOptionsConflict  = 85
	codeIndexKeySpecsConflict = 86
)

// Repository stores nodes as MongoDB documents.
type Repository struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *slog.Logger
}

// New connects to MongoDB, pings the primary and, when configured,
// ensures the TTL index. An unreachable server fails construction.
func New(ctx context.Context, cfg Config, log *slog.Logger) (*Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With("backend", "mongo")

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetLoggerOptions(loggerOptions(log))
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout).
			SetServerSelectionTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, domain.ErrInvalidConfig.WithDetails("mongo: connect").WithCause(err)
	}

	r := &Repository{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
		logger: log,
	}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, classify("ping", err)
	}

	if cfg.EnsureIndexes {
		if err := r.EnsureTTLIndex(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
	}

	log.Info("mongo repository connected",
		"uri", logger.RedactURI(cfg.URI),
		"database", cfg.Database,
		"collection", cfg.Collection)

	return r, nil
}

// EnsureTTLIndex creates the expires_at TTL index. An existing index with
// the same name but different options is dropped and created again.
func (r *Repository) EnsureTTLIndex(ctx context.Context) error {
	model := ttlIndexModel()

	_, err := r.coll.Indexes().CreateOne(ctx, model)
	if err == nil {
		return nil
	}
	if !isIndexConflict(err) {
		return classify("create index", err)
	}

	r.logger.Warn("ttl index exists with different options, recreating", "index", TTLIndexName)
	if err := r.coll.Indexes().DropOne(ctx, TTLIndexName); err != nil {
		return classify("drop index", err)
	}
	if _, err := r.coll.Indexes().CreateOne(ctx, model); err != nil {
		return classify("create index", err)
	}
	return nil
}

// Replace upserts the document for node.ID in one round trip.
func (r *Repository) Replace(ctx context.Context, node *domain.Node) error {
	_, err := r.coll.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: node.ID}},
		toDocument(node),
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return classify("replace", err)
	}
	return nil
}

// Find returns the node for id, or domain.ErrNodeNotFound.
func (r *Repository) Find(ctx context.Context, id string) (*domain.Node, error) {
	raw, err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNodeNotFound
	}
	if err != nil {
		return nil, classify("find", err)
	}

	node, err := decodeDocument(raw)
	if err != nil {
		return nil, corruptDocument(id, err)
	}
	return node, nil
}

// FindMany returns the nodes present for ids with one $in query.
// Documents that do not decode are returned as nodes with an unknown
// encoding, so the caller reports them without losing the batch.
func (r *Repository) FindMany(ctx context.Context, ids []string) ([]*domain.Node, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cur, err := r.coll.Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return nil, classify("find many", err)
	}

	defer cur.Close(ctx)

	nodes := make([]*domain.Node, 0, len(ids))
	for cur.Next(ctx) {
		node, decodeErr, ok := batchNode(cur.Current)
		switch {
		case !ok:
			r.logger.Warn("skipping document without string _id", "error", decodeErr)
			continue
		case decodeErr != nil:
			r.logger.Warn("undecodable document", "id", node.ID, "error", decodeErr)
		}
		nodes = append(nodes, node)
	}
	if err := cur.Err(); err != nil {
		return nil, classify("find many", err)
	}
	return nodes, nil
}

// Delete removes the document for id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		return classify("delete", err)
	}
	return nil
}

// DeleteMany removes the documents for ids with one $in delete.
func (r *Repository) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.coll.DeleteMany(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return classify("delete many", err)
	}
	return nil
}

// Ping checks connectivity with the primary.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx, readpref.Primary()); err != nil {
		return classify("ping", err)
	}
	return nil
}

// Close disconnects the client.
func (r *Repository) Close() error {
	if err := r.client.Disconnect(context.Background()); err != nil {
		return fmt.Errorf("mongo: disconnect: %w", err)
	}
	return nil
}

func ttlIndexModel() mongo.IndexModel {
	return mongo.IndexModel{
		Keys: bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().
			SetName(TTLIndexName).
			SetExpireAfterSeconds(0),
	}
}

func isIndexConflict(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == codeIndexOptionsConflict || cmdErr.Code == codeIndexKeySpecsConflict
	}
	return false
}

// classify wraps a driver error as ErrBackendUnavailable, noting whether
// it was a timeout or a network failure.
func classify(op string, err error) error {
	details := "mongo: " + op
	switch {
	case mongo.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		details += ": timeout"
	case mongo.IsNetworkError(err):
		details += ": network"
	}
	return domain.ErrBackendUnavailable.WithDetails(details).WithCause(err)
}
