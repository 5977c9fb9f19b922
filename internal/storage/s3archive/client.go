package s3archive

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yndnr/nodestore-go/internal/config"
	"github.com/yndnr/nodestore-go/internal/core/domain"
)

// New builds an S3 client from the archive configuration section and
// wraps it in an Archive. Static credentials are used when configured;
// otherwise the SDK's default credential chain applies.
func New(ctx context.Context, sec config.ArchiveSection, logger *slog.Logger) (*Archive, error) {
	if sec.Bucket == "" {
		return nil, domain.ErrInvalidConfig.WithDetails("s3archive: bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(sec.Region),
	}
	if sec.RetryAttempts > 0 {
		opts = append(opts, awsconfig.WithRetryMaxAttempts(sec.RetryAttempts))
	}
	if sec.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(sec.AccessKeyID, sec.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, domain.ErrInvalidConfig.WithDetails("s3archive: load aws config").WithCause(err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if sec.Endpoint != "" {
			o.BaseEndpoint = aws.String(sec.Endpoint)
		}
		o.UsePathStyle = sec.PathStyle
	})

	return NewWithAPI(client, sec.Bucket, sec.Prefix, logger)
}
