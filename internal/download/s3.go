package download

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"albumsync/internal/config"
	"albumsync/internal/fs"
	"albumsync/internal/syncer"
)

// S3Downloader fetches s3://bucket/key URLs. The client is built on first use,
// so configs that never reference S3 need no AWS credentials.
type S3Downloader struct {
	cfg config.S3Config

	once       sync.Once
	downloader *manager.Downloader
	initErr    error
}

var _ syncer.Downloader = (*S3Downloader)(nil)

func NewS3Downloader(cfg config.S3Config) *S3Downloader {
	return &S3Downloader{cfg: cfg}
}

func (d *S3Downloader) Download(ctx context.Context, rawURL, dest string) error {
	bucket, key, err := ParseS3URL(rawURL)
	if err != nil {
		return err
	}

	dl, err := d.client(ctx)
	if err != nil {
		return fmt.Errorf("configuring s3 client: %w", err)
	}

	return fs.WriteAtomic(dest, func(f *os.File) error {
		_, err := dl.Download(ctx, f, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("downloading s3://%s/%s: %w", bucket, key, err)
		}
		return nil
	})
}

// client builds the shared downloader once. The first caller's cancellation
// does not carry into it.
func (d *S3Downloader) client(ctx context.Context) (*manager.Downloader, error) {
	d.once.Do(func() {
		d.downloader, d.initErr = d.newDownloader(context.WithoutCancel(ctx))
	})
	return d.downloader, d.initErr
}

func (d *S3Downloader) newDownloader(ctx context.Context) (*manager.Downloader, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if d.cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(d.cfg.Region))
	}
	if d.cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			d.cfg.AccessKeyID,
			d.cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if d.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(d.cfg.Endpoint)
		}
		o.UsePathStyle = d.cfg.UsePathStyle
	})
	return manager.NewDownloader(client), nil
}

// ParseS3URL splits s3://bucket/key into its parts.
func ParseS3URL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parsing s3 url: %w", err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("not an s3 url: %s", rawURL)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("s3 url needs a bucket and a key: %s", rawURL)
	}
	return u.Host, key, nil
}
