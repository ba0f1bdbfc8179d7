package pdfdoc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"manual-markers/internal/config"
)

// S3Getter is the subset of the S3 client used to download manuals.
type S3Getter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Fetcher resolves a manual URL to its bytes. Supported forms are a local
// path, file://, http(s):// and s3://bucket/key.
type Fetcher struct {
	HTTP   *http.Client
	S3     S3Getter
	Logger *zap.Logger
}

// NewFetcher builds a fetcher from storage settings. The S3 client is only
// created when an endpoint or credentials are configured.
func NewFetcher(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*Fetcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fetcher{
		HTTP:   &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutSec) * time.Second},
		Logger: logger,
	}
	if cfg.Endpoint != "" || cfg.AccessKeyID != "" {
		client, err := NewS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		f.S3 = client
	}
	return f, nil
}

// NewS3Client creates an S3 client with static credentials and an optional
// custom endpoint (MinIO and similar).
func NewS3Client(ctx context.Context, cfg config.StorageConfig) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// Fetch downloads or reads the manual at rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// plain path; a one-letter scheme is a windows drive
		return os.ReadFile(rawURL)
	}
	switch u.Scheme {
	case "file":
		return os.ReadFile(u.Path)
	case "http", "https":
		return f.fetchHTTP(ctx, rawURL)
	case "s3":
		return f.fetchS3(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
	}
	return nil, fmt.Errorf("unsupported manual url scheme %q", u.Scheme)
}

func (f *Fetcher) fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	client := f.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", rawURL, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func (f *Fetcher) fetchS3(ctx context.Context, bucket, key string) ([]byte, error) {
	if f.S3 == nil {
		return nil, errors.New("s3 storage is not configured")
	}
	out, err := f.S3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Parser turns PDF bytes into a Document.
type Parser func([]byte) (Document, error)

// Loader opens manuals through a Fetcher.
type Loader struct {
	Fetcher *Fetcher
	Parse   Parser
	Logger  *zap.Logger
}

// Open fetches and parses the manual. Every failure is a *LoadError.
func (l *Loader) Open(ctx context.Context, rawURL string) (Document, error) {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	parse := l.Parse
	if parse == nil {
		parse = FromBytes
	}
	fetcher := l.Fetcher
	if fetcher == nil {
		fetcher = &Fetcher{}
	}
	started := time.Now()

	data, err := fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, &LoadError{URL: rawURL, Err: err}
	}
	doc, err := parse(data)
	if err != nil {
		return nil, &LoadError{URL: rawURL, Err: err}
	}
	logger.Info("manual opened",
		zap.String("url", rawURL),
		zap.Int("pages", doc.NumPages()),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(started)))
	return doc, nil
}
