package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Store_Put(t *testing.T) {
	fake := &fakePutter{}
	store := newS3Store(fake, Config{Region: "eu-west-1", Bucket: "certs"})

	url, err := store.Put(context.Background(), "/certificates/CE-1.pdf", []byte("pdf"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, "https://certs.s3.eu-west-1.amazonaws.com/certificates/CE-1.pdf", url)
	assert.Equal(t, "certs", aws.ToString(fake.input.Bucket))
	assert.Equal(t, "certificates/CE-1.pdf", aws.ToString(fake.input.Key))
	assert.Equal(t, "application/pdf", aws.ToString(fake.input.ContentType))
	assert.Equal(t, "pdf", string(fake.body))
}

func TestS3Store_PutPublicBaseURL(t *testing.T) {
	store := newS3Store(&fakePutter{}, Config{Bucket: "certs", PublicBaseURL: "https://cdn.example.com/"})

	url, err := store.Put(context.Background(), "a.pdf", nil, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.pdf", url)
}

func TestS3Store_PutError(t *testing.T) {
	store := newS3Store(&fakePutter{err: errors.New("denied")}, Config{Bucket: "certs"})

	_, err := store.Put(context.Background(), "a.pdf", nil, "application/pdf")
	assert.Error(t, err)
}
