package s3archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/yndnr/nodestore-go/internal/core/domain"
	"github.com/yndnr/nodestore-go/pkg/codec"
)

// MaxObjectSize bounds the archived body read into memory.
const MaxObjectSize = 64 << 20

// ObjectAPI is the subset of the S3 client the archive uses.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Archive implements service.Archive on an S3 bucket.
type Archive struct {
	api    ObjectAPI
	bucket string
	prefix string
	logger *slog.Logger
}

// NewWithAPI creates an Archive on an existing client.
func NewWithAPI(api ObjectAPI, bucket, prefix string, logger *slog.Logger) (*Archive, error) {
	if api == nil {
		return nil, domain.ErrInvalidConfig.WithDetails("s3archive: client is required")
	}
	if bucket == "" {
		return nil, domain.ErrInvalidConfig.WithDetails("s3archive: bucket is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Archive{
		api:    api,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.With("component", "s3archive"),
	}, nil
}

// Key returns the object key for id.
func (a *Archive) Key(id string) string {
	if a.prefix == "" {
		return id
	}
	return a.prefix + "/" + id
}

// Fetch returns the archived node for id, or domain.ErrNodeNotFound when
// the bucket has no such object.
func (a *Archive) Fetch(ctx context.Context, id string) (*domain.Node, error) {
	out, err := a.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.Key(id)),
	})
	if isNotFound(err) {
		return nil, domain.ErrNodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("s3archive: get %s: %w", a.Key(id), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, MaxObjectSize+1))
	if err != nil {
		return nil, fmt.Errorf("s3archive: read %s: %w", a.Key(id), err)
	}
	if len(data) > MaxObjectSize {
		return nil, fmt.Errorf("s3archive: object %s exceeds %d bytes", a.Key(id), MaxObjectSize)
	}

	return &domain.Node{
		ID:              id,
		Data:            data,
		ContentEncoding: string(contentEncoding(aws.ToString(out.ContentEncoding))),
	}, nil
}

// Remove deletes the archived object for id. Deleting a missing object
// succeeds.
func (a *Archive) Remove(ctx context.Context, id string) error {
	_, err := a.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.Key(id)),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("s3archive: delete %s: %w", a.Key(id), err)
	}
	a.logger.Debug("archived object removed", "key", a.Key(id))
	return nil
}

func contentEncoding(header string) codec.Encoding {
	if strings.EqualFold(strings.TrimSpace(header), string(codec.EncodingZstd)) {
		return codec.EncodingZstd
	}
	return codec.EncodingIdentity
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}
