package source

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cockroachdb/errors"

	"github.com/pable/squad-standings/internal/config"
	"github.com/pable/squad-standings/internal/model"
)

// objectGetter is the part of *s3.Client the source needs.
type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 reads match files from an S3-compatible bucket such as Cloudflare R2.
type S3 struct {
	client objectGetter
	bucket string
	layout Layout
	limit  int64
}

// NewS3 builds a client from cfg. A custom endpoint switches to path-style
// addressing, which R2 and MinIO expect.
func NewS3(ctx context.Context, cfg config.Source, layout Layout) (*S3, error) {
	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load AWS SDK config")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3(client, cfg.Bucket, layout), nil
}

func newS3(client objectGetter, bucket string, layout Layout) *S3 {
	return &S3{client: client, bucket: bucket, layout: layout, limit: maxFileSize}
}

func (s *S3) String() string { return "s3:" + s.bucket }

// Fetch downloads the object for key.
func (s *S3) Fetch(ctx context.Context, key model.MatchKey) (*File, error) {
	objKey := strings.TrimLeft(s.layout.Path(key), "/")
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objKey),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, unavailable(nil, "s3://%s/%s: not found", s.bucket, objKey)
		}
		return nil, unavailable(err, "s3://%s/%s", s.bucket, objKey)
	}
	defer out.Body.Close()

	data, err := readLimited(out.Body, s.limit)
	if err != nil {
		return nil, unavailable(err, "read s3://%s/%s", s.bucket, objKey)
	}
	return &File{Name: objKey, Data: data}, nil
}
