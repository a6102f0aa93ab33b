package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const minioLocationScheme = "s3://"

// MinioOption configures the s3 compatible backend.
type MinioOption struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
	Bucket    string
	// Prefix is prepended to every object key
	Prefix string
}

// Minio stores contents as objects of a single bucket.
type Minio struct {
	cli    *minio.Client
	bucket string
	prefix string
}

// NewMinioClient create minio client
func NewMinioClient(opt MinioOption) (*minio.Client, error) {
	cli, err := minio.New(opt.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opt.AccessKey, opt.SecretKey, ""),
		Secure: opt.Secure,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "new minio client for %q", opt.Endpoint)
	}

	return cli, nil
}

// NewMinio create object storage
func NewMinio(cli *minio.Client, bucket, prefix string) *Minio {
	return &Minio{
		cli:    cli,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (s *Minio) objectKey(name string) string {
	if s.prefix == "" {
		return name
	}

	return fmt.Sprintf("%s/%s", s.prefix, name)
}

func (s *Minio) location(objkey string) string {
	return minioLocationScheme + s.bucket + "/" + objkey
}

// parseLocation returns the object key of a location written by this bucket.
func (s *Minio) parseLocation(location string) (string, error) {
	want := minioLocationScheme + s.bucket + "/"
	if !strings.HasPrefix(location, want) || len(location) == len(want) {
		return "", errors.Errorf("location %q does not belong to bucket %q", location, s.bucket)
	}

	return strings.TrimPrefix(location, want), nil
}

// Write uploads data as a new object and returns its s3:// location.
func (s *Minio) Write(ctx context.Context, data []byte) (string, error) {
	objkey := s.objectKey(uuid.NewString())
	_, err := s.cli.PutObject(ctx,
		s.bucket,
		objkey,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{
			ContentType: "application/octet-stream",
		},
	)
	if err != nil {
		return "", errors.Wrapf(err, "upload object %q", objkey)
	}

	return s.location(objkey), nil
}

// Remove deletes an object previously returned by Write.
func (s *Minio) Remove(ctx context.Context, location string) error {
	objkey, err := s.parseLocation(location)
	if err != nil {
		return err
	}

	if err = s.cli.RemoveObject(ctx, s.bucket, objkey, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrapf(err, "remove object %q", objkey)
	}

	return nil
}
