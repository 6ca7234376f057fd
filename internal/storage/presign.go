package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectSigner issues time-limited download URLs for stored objects. The
// URL is a bearer capability: whoever holds it can fetch the object until
// the expiry passes, with no further authorization check.
type ObjectSigner interface {
	SignDownloadURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
}

// R2Signer presigns GET requests against a Cloudflare R2 account through
// the S3-compatible API.
type R2Signer struct {
	presign *s3.PresignClient
}

func NewR2Signer(accountID, accessKeyID, secretAccessKey string) *R2Signer {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
	client := s3.New(s3.Options{
		Region:       "auto",
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
	})
	return &R2Signer{presign: s3.NewPresignClient(client)}
}

func (r *R2Signer) SignDownloadURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	out, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presigning %s/%s: %w", bucket, key, err)
	}
	return out.URL, nil
}
