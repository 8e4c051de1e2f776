// Package minio implements the ports.BlobStore interface over an S3-compatible
// object store. Type-signature blobs are content-addressed: the object name
// is the SHA-256 digest of the payload, so re-uploading an identical
// signature is a no-op on the server side.
package minio

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds the connection settings for the blob store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
}

// BlobStore implements ports.BlobStore.
type BlobStore struct {
	client *minio.Client
	bucket string
}

// NewBlobStore connects to the object store and ensures the bucket exists.
func NewBlobStore(ctx context.Context, cfg Config) (*BlobStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio connect: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	return &BlobStore{client: client, bucket: cfg.Bucket}, nil
}

// UploadBlob stores data under its content digest and returns the digest.
func (b *BlobStore) UploadBlob(ctx context.Context, data []byte) (string, error) {
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	// Already present: content addressing makes the upload idempotent.
	if _, err := b.client.StatObject(ctx, b.bucket, digest, minio.StatObjectOptions{}); err == nil {
		return digest, nil
	}

	_, err := b.client.PutObject(ctx, b.bucket, digest,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return "", fmt.Errorf("minio put %s: %w", digest, err)
	}
	return digest, nil
}
