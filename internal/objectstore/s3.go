// File: internal/objectstore/s3.go
// Brief: Store backed by Amazon S3.

package objectstore

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/go-logr/logr"
	pkgerrors "github.com/pkg/errors"
)

// deleteBatch is the DeleteObjects per-request key limit.
const deleteBatch = 1000

// S3API is the subset of the S3 client used by S3Store, so tests can swap it.
type S3API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, opts ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutBucketVersioning(ctx context.Context, in *s3.PutBucketVersioningInput, opts ...func(*s3.Options)) (*s3.PutBucketVersioningOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, opts ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3Store implements Store for a single bucket.
type S3Store struct {
	client S3API
	bucket string
	region string
	log    logr.Logger
}

// NewS3Store builds a Store from an AWS config.
func NewS3Store(cfg aws.Config, bucket string, log logr.Logger) *S3Store {
	return NewS3StoreWithClient(s3.NewFromConfig(cfg), bucket, cfg.Region, log)
}

// NewS3StoreWithClient wraps an existing client.
func NewS3StoreWithClient(client S3API, bucket, region string, log logr.Logger) *S3Store {
	return &S3Store{client: client, bucket: bucket, region: region, log: log.WithValues("bucket", bucket)}
}

func (s *S3Store) Bucket() string { return s.bucket }
func (s *S3Store) Region() string { return s.region }

func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	in := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket), Prefix: aws.String(prefix)}
	for {
		out, err := s.client.ListObjectsV2(ctx, in)
		if err != nil {
			if isNoSuchBucket(err) {
				return nil, ErrBucketNotFound
			}
			return nil, pkgerrors.Wrapf(err, "list s3://%s/%s", s.bucket, prefix)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}
			keys = append(keys, key)
		}
		if !aws.ToBool(out.IsTruncated) || aws.ToString(out.NextContinuationToken) == "" {
			break
		}
		in.ContinuationToken = out.NextContinuationToken
	}
	s.log.V(1).Info("listed objects", "prefix", prefix, "count", len(keys))
	return keys, nil
}

func (s *S3Store) CreateBucket(ctx context.Context) error {
	in := &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}
	// us-east-1 rejects an explicit location constraint.
	if s.region != "" && s.region != "us-east-1" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}
	if _, err := s.client.CreateBucket(ctx, in); err != nil {
		return pkgerrors.Wrapf(err, "create bucket %s in %s", s.bucket, s.region)
	}
	s.log.Info("created bucket", "region", s.region)
	return nil
}

func (s *S3Store) EnableVersioning(ctx context.Context) error {
	_, err := s.client.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
		Bucket: aws.String(s.bucket),
		VersioningConfiguration: &types.VersioningConfiguration{
			Status: types.BucketVersioningStatusEnabled,
		},
	})
	if err != nil {
		return pkgerrors.Wrapf(err, "enable versioning on %s", s.bucket)
	}
	s.log.Info("enabled bucket versioning")
	return nil
}

func (s *S3Store) Put(ctx context.Context, obj Object) error {
	in := &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(obj.Key),
		Body:     obj.Body,
		Metadata: obj.Metadata,
	}
	if obj.Size >= 0 {
		in.ContentLength = aws.Int64(obj.Size)
	}
	if obj.ContentType != "" {
		in.ContentType = aws.String(obj.ContentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return pkgerrors.Wrapf(err, "put s3://%s/%s", s.bucket, obj.Key)
	}
	s.log.V(1).Info("put object", "key", obj.Key, "bytes", obj.Size)
	return nil
}

func (s *S3Store) Delete(ctx context.Context, keys []string) error {
	for start := 0; start < len(keys); start += deleteBatch {
		end := min(start+deleteBatch, len(keys))
		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(key)})
		}
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return pkgerrors.Wrapf(err, "delete %d objects from %s", len(ids), s.bucket)
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return pkgerrors.Errorf("delete %s from %s: %s", aws.ToString(first.Key), s.bucket, aws.ToString(first.Message))
		}
	}
	return nil
}

func isNoSuchBucket(err error) bool {
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchBucket"
}
