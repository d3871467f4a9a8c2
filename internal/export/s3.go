package export

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// PutObjectAPI is the subset of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads exports to Bucket under Prefix. Each export gets its own
// timestamped folder so repeated downloads of the fixed name do not collide.
type S3Sink struct {
	Client  PutObjectAPI
	Presign *s3.PresignClient
	Bucket  string
	Prefix  string
	// Expiry of presigned links. Zero means 15 minutes.
	Expiry time.Duration
	Now    func() time.Time
}

// NewS3Sink builds a sink from the default AWS configuration chain.
func NewS3Sink(ctx context.Context, bucket, prefix string) (*S3Sink, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &S3Sink{
		Client:  client,
		Presign: s3.NewPresignClient(client),
		Bucket:  bucket,
		Prefix:  prefix,
	}, nil
}

// Key returns the object key for name at time t.
func (s *S3Sink) Key(name string, t time.Time) string {
	return path.Join(s.Prefix, t.UTC().Format("20060102T150405Z"), path.Base(name))
}

// Export uploads data and returns a presigned GET URL when a presign client is
// configured, otherwise the s3:// location.
func (s *S3Sink) Export(ctx context.Context, name, mimeType string, data []byte) (string, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	key := s.Key(name, now())

	log.Debug().
		Str("bucket", s.Bucket).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("Uploading result to S3")

	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload result to S3: %w", err)
	}

	log.Info().Str("bucket", s.Bucket).Str("key", key).Msg("Result uploaded to S3")

	if s.Presign == nil {
		return fmt.Sprintf("s3://%s/%s", s.Bucket, key), nil
	}
	expiry := s.Expiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	req, err := s.Presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign GetObject: %w", err)
	}
	return req.URL, nil
}
