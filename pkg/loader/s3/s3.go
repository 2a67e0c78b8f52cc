package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/singleflight"

	"github.com/OFFIS-RIT/idisk/backend/pkg/loader"
)

// S3FileLoader is a FileLoader implementation that loads file contents
// from an S3 bucket. It uses the AWS SDK v2 for Go.
//
// The worker uses it to read concept and connection files that were
// uploaded alongside a job.
type S3FileLoader struct {
	bucket string
	client *s3.Client

	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewS3FileLoaderWithClient creates a new S3FileLoader using an existing
// s3.Client.
func NewS3FileLoaderWithClient(bucket string, client *s3.Client) *S3FileLoader {
	return &S3FileLoader{
		bucket: bucket,
		client: client,
		cache:  make(map[string][]byte),
	}
}

// NewS3FileLoaderParams defines the configuration parameters for
// creating a new S3FileLoader.
//
// Endpoint allows overriding the S3 endpoint for S3-compatible storage
// like MinIO, in which case path style addressing is used.
type NewS3FileLoaderParams struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// NewS3FileLoader creates a new S3FileLoader with static credentials.
//
// Example:
//
//	l, err := s3.NewS3FileLoader(ctx, s3.NewS3FileLoaderParams{
//		Bucket:    "idisk",
//		Endpoint:  "http://localhost:9000",
//		Region:    "us-east-1",
//		AccessKey: os.Getenv("AWS_ACCESS_KEY"),
//		SecretKey: os.Getenv("AWS_SECRET_KEY"),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	file := loader.NewConceptsFile(loader.NewSourceFileParams{FilePath: "v1/nmcd.jsonl", Loader: l})
//	content, err := file.GetContent(ctx)
func NewS3FileLoader(ctx context.Context, params NewS3FileLoaderParams) (*S3FileLoader, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(params.Region),
		config.WithBaseEndpoint(params.Endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = params.Endpoint != ""
	})

	return NewS3FileLoaderWithClient(params.Bucket, client), nil
}

// GetFileContent retrieves the object at file.FilePath from the configured
// bucket. It implements the FileLoader interface.
func (l *S3FileLoader) GetFileContent(ctx context.Context, file loader.SourceFile) ([]byte, error) {
	cacheKey := loader.CacheKey(file)

	l.cacheMu.RLock()
	if cached, ok := l.cache[cacheKey]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(cacheKey, func() (any, error) {
		l.cacheMu.RLock()
		if cached, ok := l.cache[cacheKey]; ok {
			l.cacheMu.RUnlock()
			return cached, nil
		}
		l.cacheMu.RUnlock()

		out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(l.bucket),
			Key:    aws.String(file.FilePath),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get s3://%s/%s: %w", l.bucket, file.FilePath, err)
		}
		defer out.Body.Close()

		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, out.Body); err != nil {
			return nil, fmt.Errorf("failed to read s3://%s/%s: %w", l.bucket, file.FilePath, err)
		}

		byts := buf.Bytes()

		l.cacheMu.Lock()
		l.cache[cacheKey] = byts
		l.cacheMu.Unlock()

		return byts, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}
