package prebuilt

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectGetter is the part of the S3 client the fetcher uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

func (f *Fetcher) s3Client(ctx context.Context) (ObjectGetter, error) {
	if f.objects != nil {
		return f.objects, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if f.region != "" {
		opts = append(opts, awsconfig.WithRegion(f.region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}
	f.objects = s3.NewFromConfig(cfg)
	return f.objects, nil
}

func (f *Fetcher) downloadS3(ctx context.Context, bucket, key string, w io.Writer) (int64, error) {
	if bucket == "" || key == "" {
		return 0, fmt.Errorf("%w: s3 url needs a bucket and a key", ErrDownloadFailed)
	}

	client, err := f.s3Client(ctx)
	if err != nil {
		return 0, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: s3://%s/%s: %w", ErrDownloadFailed, bucket, key, err)
	}
	defer func() { _ = out.Body.Close() }()

	n, err := io.Copy(w, out.Body)
	if err != nil {
		return n, fmt.Errorf("%w: reading s3 object: %w", ErrDownloadFailed, err)
	}
	return n, nil
}
