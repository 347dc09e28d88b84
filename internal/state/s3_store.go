package state

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/overcast-io/overcast/internal/interfaces"
)

// S3Config configures the S3-backed snapshot store. Endpoint is only set for
// S3-compatible stores (MinIO, LocalStack); empty means real AWS.
type S3Config struct {
	Bucket   string
	Region   string
	Prefix   string
	Endpoint string
}

// S3SnapshotStore persists snapshots as JSON objects under
// <prefix>/infrastructure/<id>.json and <prefix>/operations/<id>.json.
type S3SnapshotStore struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3SnapshotStore builds the store from ambient AWS credentials
func NewS3SnapshotStore(ctx context.Context, cfg S3Config) (*S3SnapshotStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 snapshot store requires a bucket")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3SnapshotStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// NewS3SnapshotStoreWithClient injects a prebuilt client; used by integration
// tests pointing at LocalStack.
func NewS3SnapshotStoreWithClient(client *s3.Client, bucket, prefix string) *S3SnapshotStore {
	return &S3SnapshotStore{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *S3SnapshotStore) key(kind, id string) string {
	return path.Join(s.prefix, kind, id+".json")
}

func (s *S3SnapshotStore) put(ctx context.Context, key string, payload []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to write s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *S3SnapshotStore) get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, key)
		}
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close() //nolint:errcheck
	return io.ReadAll(out.Body)
}

// SaveInfrastructure implements SnapshotStore
func (s *S3SnapshotStore) SaveInfrastructure(ctx context.Context, infra *interfaces.Infrastructure) error {
	payload, err := encodeInfrastructure(infra)
	if err != nil {
		return err
	}
	return s.put(ctx, s.key("infrastructure", infra.ID), payload)
}

// LoadInfrastructure implements SnapshotStore
func (s *S3SnapshotStore) LoadInfrastructure(ctx context.Context, id string) (*interfaces.Infrastructure, error) {
	payload, err := s.get(ctx, s.key("infrastructure", id))
	if err != nil {
		return nil, err
	}
	return decodeInfrastructure(payload)
}

// ListInfrastructureIDs implements SnapshotStore
func (s *S3SnapshotStore) ListInfrastructureIDs(ctx context.Context) ([]string, error) {
	prefix := path.Join(s.prefix, "infrastructure") + "/"

	var ids []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%s/%s: %w", s.bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}
	return ids, nil
}

// SaveOperation implements SnapshotStore
func (s *S3SnapshotStore) SaveOperation(ctx context.Context, op *interfaces.Operation) error {
	payload, err := encodeOperation(op)
	if err != nil {
		return err
	}
	return s.put(ctx, s.key("operations", op.ID), payload)
}

// LoadOperation implements SnapshotStore
func (s *S3SnapshotStore) LoadOperation(ctx context.Context, id string) (*interfaces.Operation, error) {
	payload, err := s.get(ctx, s.key("operations", id))
	if err != nil {
		return nil, err
	}
	return decodeOperation(payload)
}
