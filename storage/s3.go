// Package storage uploads export artifacts to S3 so downloads survive the
// process. The store is optional: with no bucket configured every method is a
// no-op and exports are served inline instead.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"storyreel/config"
	"storyreel/types"
)

// ArtifactStore puts finished exports into an S3 bucket under a configurable
// prefix. A nil store is valid and stores nothing.
type ArtifactStore struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewArtifactStore builds the store from the default AWS configuration chain.
// Returns (nil, nil) when no bucket is configured.
func NewArtifactStore(ctx context.Context, cfg config.Config) (*ArtifactStore, error) {
	if cfg.S3Bucket == "" {
		return nil, nil
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.S3Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return &ArtifactStore{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.S3Bucket,
		prefix: cfg.S3Prefix,
	}, nil
}

// Put uploads an export artifact and returns the object key. Keys are
// prefixed with the job id and dated so repeated exports never collide.
func (a *ArtifactStore) Put(ctx context.Context, jobID string, artifact *types.ExportArtifact) (string, error) {
	if a == nil {
		return "", nil
	}

	key := path.Join(a.prefix, jobID, fmt.Sprintf("%d-%s", time.Now().Unix(), artifact.Filename))
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(artifact.Data),
		ContentType: aws.String(artifact.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	return key, nil
}

// Exists reports whether an uploaded artifact is still present.
func (a *ArtifactStore) Exists(ctx context.Context, key string) (bool, error) {
	if a == nil {
		return false, nil
	}

	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return false, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		return false, nil
	}
	return false, err
}

// Enabled reports whether uploads will actually happen.
func (a *ArtifactStore) Enabled() bool {
	return a != nil
}
