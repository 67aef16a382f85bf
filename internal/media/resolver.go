// Package media resolves stored asset refs (avatar keys) to URLs the
// client can fetch. Used for display decoration only, never for message
// content.
package media

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type Resolver interface {
	// ResolveURL returns a fetchable URL for ref, or "" when ref is
	// empty or cannot be resolved.
	ResolveURL(ctx context.Context, ref string) (string, error)
}

type S3Resolver struct {
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
}

func NewS3Resolver(ctx context.Context, region, bucket string, ttl time.Duration) (*S3Resolver, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg)
	return &S3Resolver{
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		ttl:     ttl,
	}, nil
}

func (r *S3Resolver) ResolveURL(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(ref),
	}, s3.WithPresignExpires(r.ttl))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// Noop is used when no media bucket is configured; avatars then render
// without a URL.
type Noop struct{}

func (Noop) ResolveURL(ctx context.Context, ref string) (string, error) { return "", nil }
