package settings

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// GetObjectAPI is the slice of the S3 client the fetcher needs
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher downloads the settings cache from an S3 object
type S3Fetcher struct {
	bucket string
	key    string
	client GetObjectAPI
}

// NewS3Fetcher uses the default AWS credential chain
func NewS3Fetcher(ctx context.Context, bucket, key, region string) (*S3Fetcher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3FetcherWithClient(s3.NewFromConfig(cfg), bucket, key), nil
}

// NewS3FetcherWithClient wraps an existing client
func NewS3FetcherWithClient(client GetObjectAPI, bucket, key string) *S3Fetcher {
	return &S3Fetcher{bucket: bucket, key: key, client: client}
}

// Source returns the s3:// URI of the object
func (f *S3Fetcher) Source() string {
	return "s3://" + f.bucket + "/" + f.key
}

// Fetch writes the object body to w
func (f *S3Fetcher) Fetch(ctx context.Context, w io.Writer) error {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key),
	})
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", f.Source(), err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("failed to read %s: %w", f.Source(), err)
	}
	return nil
}
