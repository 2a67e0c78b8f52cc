package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/OFFIS-RIT/idisk/backend/internal/util"
)

// Bucket returns the configured bucket, "idisk" when AWS_BUCKET is unset.
func Bucket() string {
	return util.GetEnvString("AWS_BUCKET", "idisk")
}

func NewS3Client(ctx context.Context) (*s3.Client, error) {
	region := util.GetEnv("AWS_REGION")
	endpoint := util.GetEnv("AWS_ENDPOINT")
	accessKey := util.GetEnv("AWS_ACCESS_KEY")
	secretKey := util.GetEnv("AWS_SECRET_KEY")

	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return client, nil
}

// ContentType guesses the content type of key from its extension.
func ContentType(key string) string {
	switch ext := strings.ToLower(path.Ext(key)); ext {
	case ".jsonl":
		return "application/x-ndjson"
	case ".rrf", ".csv", ".log":
		return "text/plain; charset=utf-8"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}

func GetFile(ctx context.Context, client *s3.Client, key string) ([]byte, error) {
	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(Bucket()),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get file from S3: %w", err)
	}
	defer result.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, result.Body); err != nil {
		return nil, fmt.Errorf("failed to read file contents: %w", err)
	}
	return buf.Bytes(), nil
}

func PutFile(ctx context.Context, client *s3.Client, key string, body io.Reader) error {
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(Bucket()),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(ContentType(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}
	return nil
}

// ObjectWriter buffers writes and uploads the object on Close.
type ObjectWriter struct {
	ctx    context.Context
	client *s3.Client
	key    string
	buf    bytes.Buffer
}

func NewObjectWriter(ctx context.Context, client *s3.Client, key string) *ObjectWriter {
	return &ObjectWriter{ctx: ctx, client: client, key: key}
}

func (w *ObjectWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

// Close uploads the buffered object, retrying transient failures.
func (w *ObjectWriter) Close() error {
	return util.RetryErrWithContext(w.ctx, 3, 500*time.Millisecond, func(ctx context.Context) error {
		return PutFile(ctx, w.client, w.key, bytes.NewReader(w.buf.Bytes()))
	})
}

func DeleteFile(ctx context.Context, client *s3.Client, key string) error {
	_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(Bucket()),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}
	return nil
}

// GenerateDownloadLink presigns a GET of key against AWS_PUBLIC_ENDPOINT.
func GenerateDownloadLink(ctx context.Context, baseClient *s3.Client, key string) (string, error) {
	publicEndpoint := util.GetEnv("AWS_PUBLIC_ENDPOINT")

	publicURL, err := url.Parse(publicEndpoint)
	if err != nil || publicURL.Scheme == "" || publicURL.Host == "" {
		return "", fmt.Errorf("invalid AWS_PUBLIC_ENDPOINT: %s", publicEndpoint)
	}
	prefix := strings.TrimSuffix(publicURL.Path, "/")
	publicBaseEndpoint := fmt.Sprintf("%s://%s", publicURL.Scheme, publicURL.Host)

	// signature must match the Host header the client sends
	presignClient := s3.NewFromConfig(
		aws.Config{
			Region:      baseClient.Options().Region,
			Credentials: baseClient.Options().Credentials,
			HTTPClient:  baseClient.Options().HTTPClient,
		},
		func(o *s3.Options) {
			o.BaseEndpoint = aws.String(publicBaseEndpoint)
			o.UsePathStyle = true
		},
	)

	out, err := s3.NewPresignClient(presignClient).PresignGetObject(
		ctx,
		&s3.GetObjectInput{
			Bucket: aws.String(Bucket()),
			Key:    aws.String(key),
		},
		s3.WithPresignExpires(15*time.Minute),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate download link: %w", err)
	}

	if prefix != "" {
		signedURL, err := url.Parse(out.URL)
		if err != nil {
			return "", fmt.Errorf("failed to parse presigned url: %w", err)
		}
		signedURL.Path = prefix + signedURL.Path
		return signedURL.String(), nil
	}
	return out.URL, nil
}

func ListFilesWithPrefix(ctx context.Context, client *s3.Client, prefix string) ([]string, error) {
	var keys []string
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(Bucket()),
		Prefix: aws.String(prefix),
	}
	for {
		out, err := client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects with prefix %s: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			return keys, nil
		}
		input.ContinuationToken = out.NextContinuationToken
	}
}

func DeleteFolder(ctx context.Context, client *s3.Client, prefix string) error {
	keys, err := ListFilesWithPrefix(ctx, client, prefix)
	if err != nil {
		return err
	}
	for start := 0; start < len(keys); start += 1000 {
		end := min(start+1000, len(keys))
		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(k)})
		}
		_, err := client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(Bucket()),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects in folder %s: %w", prefix, err)
		}
	}
	return nil
}
