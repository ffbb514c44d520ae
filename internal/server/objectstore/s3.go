package objectstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/sethvargo/go-retry"

	"github.com/prtfnx/ttrpg-system-sub001/internal/common"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
	headObject = func(c *s3.Client, ctx context.Context, in *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
		return c.HeadObject(ctx, in)
	}
	listObjectsV2 = func(c *s3.Client, ctx context.Context, in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		return c.ListObjectsV2(ctx, in)
	}
)

// S3Config holds the settings needed to reach an S3-compatible backend
// (AWS S3, MinIO, R2, ...).
type S3Config struct {
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	BaseEndpoint string
	// Timeout bounds every call against the backend so a stalled backend
	// cannot hang the coordinator.
	Timeout time.Duration
}

// S3Store implements Store against an S3-compatible backend. Existence
// checks and listings retry transient failures with capped backoff;
// presign calls are local signature computations and are not retried.
type S3Store struct {
	cfg     S3Config
	client  *s3.Client
	presign *s3.PresignClient
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		}
	})

	return &S3Store{
		cfg:     cfg,
		client:  client,
		presign: newS3PresignClient(client),
	}, nil
}

func (s *S3Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

func (s *S3Store) newBackoff() retry.Backoff {
	b := retry.NewExponential(200 * time.Millisecond)
	b = retry.WithCappedDuration(2*time.Second, b)
	return retry.WithMaxRetries(2, b)
}

func (s *S3Store) GenerateUploadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	req, err := presignPutObject(s.presign, ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", fmt.Errorf("%w: presign put %s: %w", common.ErrBackendUnavailable, key, err)
	}

	return req.URL, nil
}

func (s *S3Store) GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	req, err := presignGetObject(s.presign, ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", fmt.Errorf("%w: presign get %s: %w", common.ErrBackendUnavailable, key, err)
	}

	return req.URL, nil
}

// isNotFound matches the API error codes S3-compatible backends use for a
// missing object.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}
	return false
}

func (s *S3Store) ObjectExists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	exists := false
	err := retry.Do(ctx, s.newBackoff(), func(ctx context.Context) error {
		_, err := headObject(s.client, ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.cfg.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			if isNotFound(err) {
				exists = false
				return nil
			}
			return retry.RetryableError(err)
		}
		exists = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: head %s: %w", common.ErrBackendUnavailable, key, err)
	}
	return exists, nil
}

func (s *S3Store) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result []ObjectInfo
	err := retry.Do(ctx, s.newBackoff(), func(ctx context.Context) error {
		result = result[:0]
		var token *string
		for {
			out, err := listObjectsV2(s.client, ctx, &s3.ListObjectsV2Input{
				Bucket:            aws.String(s.cfg.Bucket),
				Prefix:            aws.String(prefix),
				ContinuationToken: token,
			})
			if err != nil {
				return retry.RetryableError(err)
			}
			for _, obj := range out.Contents {
				info := ObjectInfo{Key: aws.ToString(obj.Key)}
				if obj.Size != nil {
					info.SizeBytes = *obj.Size
				}
				result = append(result, info)
			}
			if out.NextContinuationToken == nil {
				return nil
			}
			token = out.NextContinuationToken
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", common.ErrBackendUnavailable, prefix, err)
	}
	return result, nil
}
