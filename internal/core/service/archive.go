package service

import (
	"context"
	"errors"

	"github.com/yndnr/nodestore-go/internal/core/domain"
	"github.com/yndnr/nodestore-go/internal/telemetry/metric"
	"github.com/yndnr/nodestore-go/pkg/codec"
)

// fetchArchived reads id from the archive and migrates it into the
// primary store. Read failures match both ErrArchiveUnavailable and
// ErrBackendUnavailable. The archived copy is removed only after the primary
// write succeeded, so a failed migration is retried on the next read.
func (s *NodeStore) fetchArchived(ctx context.Context, id string) ([]byte, bool, error) {
	fetchCtx, cancel := s.withTimeout(ctx)
	archived, err := s.archive.Fetch(fetchCtx, id)
	cancel()

	if errors.Is(err, domain.ErrNodeNotFound) {
		return nil, false, nil
	}
	if err != nil {
		s.logger.Warn("archive read failed", "id", id, "error", err)
		return nil, false, domain.ErrArchiveUnavailable.WithDetailsf("id %q", id).
			WithCause(domain.ErrBackendUnavailable.WithDetails("archive").WithCause(err))
	}

	raw, err := unwrapPayload(archived)
	if err != nil {
		return nil, false, s.corruptionError(err, id)
	}

	s.migrate(ctx, id, raw)
	return raw, true, nil
}

func (s *NodeStore) migrate(ctx context.Context, id string, raw []byte) {
	data, enc, err := codec.Compact(s.codec, raw)
	if err != nil {
		data, enc = raw, codec.EncodingIdentity
	}

	node := &domain.Node{
		ID:              id,
		Data:            data,
		ContentEncoding: string(enc),
	}
	if s.defaultTTL > 0 {
		node.ExpiresAt = s.now().Add(s.defaultTTL)
	}

	writeCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.Replace(writeCtx, node); err != nil {
		s.logger.Warn("archive migration write failed", "id", id, "error", err)
		s.recordMigration(metric.ResultError)
		return
	}
	if err := s.archive.Remove(writeCtx, id); err != nil {
		s.logger.Warn("archive cleanup failed", "id", id, "error", err)
	}

	s.logger.Debug("node migrated from archive", "id", id, "bytes", len(raw))
	s.recordMigration(metric.ResultOK)
}

func (s *NodeStore) recordMigration(result string) {
	if s.metrics != nil {
		s.metrics.RecordArchiveMigration(result)
	}
}
