package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubS3 struct {
	objects map[string][]byte
	getErr  error
}

func (s *stubS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	s.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (s *stubS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	data, ok := s.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3Store(t *testing.T) {
	client := &stubS3{objects: map[string][]byte{}}
	exerciseStore(t, NewS3Store(client, "bucket", ""))
	assert.Contains(t, client.objects, "bucket/snapshots/referrals.json")
}

func TestS3StoreWrapsErrors(t *testing.T) {
	boom := errors.New("access denied")
	s := NewS3Store(&stubS3{objects: map[string][]byte{}, getErr: boom}, "bucket", "data")
	_, _, err := s.Load(context.Background(), "referrals")
	assert.ErrorIs(t, err, boom)
}

type stubDynamo struct {
	items map[string]map[string]types.AttributeValue
}

func (s *stubDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	key := in.Item["snapshotKey"].(*types.AttributeValueMemberS).Value
	s.items[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (s *stubDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	key := in.Key["snapshotKey"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: s.items[key]}, nil
}

func TestDynamoStore(t *testing.T) {
	client := &stubDynamo{items: map[string]map[string]types.AttributeValue{}}
	exerciseStore(t, NewDynamoStore(client, "snapshots"))

	item := client.items["referrals"]
	require.NotNil(t, item)
	_, isBinary := item["data"].(*types.AttributeValueMemberB)
	assert.True(t, isBinary)
	assert.Contains(t, item, "updatedAt")
}

func TestDynamoStorePanicsWithoutTable(t *testing.T) {
	assert.Panics(t, func() { NewDynamoStore(&stubDynamo{}, "") })
}
