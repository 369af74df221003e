package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store keeps each snapshot as a JSON object under <folder>/<key>.json.
type S3Store struct {
	client S3API
	bucket string
	folder string
}

var _ Store = (*S3Store)(nil)

func NewS3Store(client S3API, bucket, folder string) *S3Store {
	if client == nil {
		panic("store: s3 client cannot be nil")
	}
	if bucket == "" {
		panic("store: s3 bucket cannot be empty")
	}
	if folder == "" {
		folder = "snapshots"
	}
	return &S3Store{client: client, bucket: bucket, folder: folder}
}

func (s *S3Store) objectKey(key string) string {
	return s.folder + "/" + key + ".json"
}

func (s *S3Store) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrKeyRequired
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var missing *s3types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store: s3 get %s: %w", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("store: s3 read %s: %w", key, err)
	}
	return data, true, nil
}

func (s *S3Store) Save(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return ErrKeyRequired
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("store: s3 put %s: %w", key, err)
	}
	return nil
}
