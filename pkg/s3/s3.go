// Package s3 issues presigned URLs against an S3-compatible bucket. Clients
// upload and download directly; the API never proxies file bodies.
package s3

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/Alijeyrad/simward_backend/config"
)

// Client wraps the AWS S3 client and its presigner.
type Client struct {
	s3     *s3.Client
	presig *s3.PresignClient
	bucket string
	ttl    time.Duration
}

// New creates a client. An empty endpoint means AWS itself; otherwise the
// endpoint is used verbatim (MinIO, R2 and friends).
func New(cfg config.S3Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket name is required")
	}

	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load config: %w", err)
	}

	cli := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	ttl := time.Duration(cfg.PresignTTLSec) * time.Second
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &Client{
		s3:     cli,
		presig: s3.NewPresignClient(cli),
		bucket: cfg.Bucket,
		ttl:    ttl,
	}, nil
}

// TTL is how long presigned URLs stay valid.
func (c *Client) TTL() time.Duration { return c.ttl }

// PresignUpload generates a presigned PUT URL. The client must send the same
// Content-Type header it was signed with.
func (c *Client) PresignUpload(ctx context.Context, key, contentType string) (string, error) {
	req, err := c.presig.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(c.ttl))
	if err != nil {
		return "", fmt.Errorf("s3 presign put %q: %w", key, err)
	}
	return req.URL, nil
}

// PresignDownload generates a presigned GET URL valid for the configured TTL.
func (c *Client) PresignDownload(ctx context.Context, key string) (string, error) {
	req, err := c.presig.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(c.ttl))
	if err != nil {
		return "", fmt.Errorf("s3 presign %q: %w", key, err)
	}
	return req.URL, nil
}

// Delete removes an object from S3.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %q: %w", key, err)
	}
	return nil
}

// OrgPrefix is the key prefix every object uploaded for orgID lives under.
func OrgPrefix(orgID uuid.UUID) string {
	return "uploads/" + orgID.String() + "/"
}

// ObjectKey builds uploads/<org>/<purpose>/<uuid><ext>, keeping only the
// lower-cased extension of fileName.
func ObjectKey(orgID uuid.UUID, purpose, fileName string) string {
	ext := strings.ToLower(path.Ext(path.Base(fileName)))
	return OrgPrefix(orgID) + purpose + "/" + uuid.Must(uuid.NewV7()).String() + ext
}

// InOrg reports whether key sits under the organisation's prefix and does
// not climb out of it.
func InOrg(orgID uuid.UUID, key string) bool {
	return strings.HasPrefix(key, OrgPrefix(orgID)) && !strings.Contains(key, "..")
}
