package lake

import (
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/xerrors"
)

var _ Fetcher = (*S3Fetcher)(nil)

// S3API is the part of the S3 client used by the fetcher.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // optional, for S3 compatible stores
}

// S3Fetcher reads blocks from a lake bucket. Lake buckets are requester pays.
type S3Fetcher struct {
	client S3API
	bucket string
}

// NewS3Fetcher builds a client from the default AWS credential chain.
func NewS3Fetcher(ctx context.Context, cfg S3Config) (*S3Fetcher, error) {
	if cfg.Bucket == "" {
		return nil, xerrors.Errorf("lake bucket must be set")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, xerrors.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3FetcherWithClient(client, cfg.Bucket), nil
}

func NewS3FetcherWithClient(client S3API, bucket string) *S3Fetcher {
	return &S3Fetcher{client: client, bucket: bucket}
}

func (f *S3Fetcher) Kind() string {
	return "s3"
}

func (f *S3Fetcher) ListBlocks(ctx context.Context, from uint64, limit int) ([]uint64, error) {
	in := &s3.ListObjectsV2Input{
		Bucket:       aws.String(f.bucket),
		Delimiter:    aws.String("/"),
		StartAfter:   aws.String(HeightPrefix(from)),
		RequestPayer: types.RequestPayerRequester,
	}
	if limit > 0 {
		in.MaxKeys = aws.Int32(int32(limit))
	}
	out, err := f.client.ListObjectsV2(ctx, in)
	if err != nil {
		return nil, xerrors.Errorf("list %s from %d: %w", f.bucket, from, err)
	}

	heights := make([]uint64, 0, len(out.CommonPrefixes))
	for _, p := range out.CommonPrefixes {
		h, err := ParseHeightPrefix(aws.ToString(p.Prefix))
		if err != nil {
			return nil, err
		}
		if h < from {
			continue
		}
		heights = append(heights, h)
		if limit > 0 && len(heights) == limit {
			break
		}
	}
	return heights, nil
}

func (f *S3Fetcher) FetchMessage(ctx context.Context, height uint64) (*StreamerMessage, error) {
	return assembleMessage(ctx, height, f.read)
}

func (f *S3Fetcher) read(ctx context.Context, key string) ([]byte, error) {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket:       aws.String(f.bucket),
		Key:          aws.String(key),
		RequestPayer: types.RequestPayerRequester,
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, xerrors.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, err
	}
	defer out.Body.Close() // nolint: errcheck
	return io.ReadAll(out.Body)
}
