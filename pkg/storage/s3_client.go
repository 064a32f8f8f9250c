package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client uploads objects to a bucket.
type S3Client interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) error
}

// AWSS3Client uploads through the S3 transfer manager, which switches to
// multipart uploads for large bodies.
type AWSS3Client struct {
	uploader *manager.Uploader
}

// NewS3Client creates an uploader for the given S3 client.
func NewS3Client(client *s3.Client) *AWSS3Client {
	return NewS3ClientWithAPI(client)
}

// NewS3ClientWithAPI creates an uploader over any upload API implementation.
func NewS3ClientWithAPI(api manager.UploadAPIClient) *AWSS3Client {
	return &AWSS3Client{uploader: manager.NewUploader(api)}
}

func (c *AWSS3Client) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := c.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}
