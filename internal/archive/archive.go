// Package archive stores a JSON snapshot of every ingestion run in S3 so
// past runs can be audited or replayed.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/NathanBvumbwe/peza-ganyu/internal/config"
	"github.com/NathanBvumbwe/peza-ganyu/internal/schemas"
	"github.com/NathanBvumbwe/peza-ganyu/internal/types"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultPrefix is the key prefix for ingestion snapshots.
const DefaultPrefix = "ingest"

// Snapshot is the archived record of one ingestion run.
type Snapshot struct {
	RunID     string             `json:"run_id"`
	CreatedAt time.Time          `json:"created_at"`
	Report    types.IngestReport `json:"report"`
	Postings  []types.RawPosting `json:"postings"`
}

// Archiver stores snapshots and returns where each was written.
type Archiver interface {
	Archive(ctx context.Context, snap Snapshot) (string, error)
}

// Nop archives nothing.
type Nop struct{}

// Archive returns an empty location.
func (Nop) Archive(context.Context, Snapshot) (string, error) { return "", nil }

// PutObjectAPI is the subset of the S3 client the archiver needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes snapshots to <prefix>/<date>/<run-id>.json.
type S3Archiver struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Archiver loads the default AWS credential chain. A custom endpoint
// (MinIO, LocalStack) switches to path-style addressing.
func NewS3Archiver(ctx context.Context, cfg config.ArchiveConfig) (*S3Archiver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3ArchiverWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3ArchiverWithClient creates an archiver using client.
func NewS3ArchiverWithClient(client PutObjectAPI, bucket, prefix string) *S3Archiver {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key for snap.
func (a *S3Archiver) Key(snap Snapshot) string {
	return fmt.Sprintf("%s/%s/%s.json", a.prefix, snap.CreatedAt.UTC().Format(time.DateOnly), snap.RunID)
}

// Archive validates and uploads snap, returning its s3:// location.
func (a *S3Archiver) Archive(ctx context.Context, snap Snapshot) (string, error) {
	if snap.Postings == nil {
		snap.Postings = []types.RawPosting{}
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := schemas.Validate(schemas.IngestSnapshot, string(body)); err != nil {
		return "", fmt.Errorf("invalid snapshot: %w", err)
	}

	key := a.Key(snap)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot to S3: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}
