package filestore

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/danthegoodman1/icecatalog/utils"
)

type (
	S3FileStore struct {
		client   *s3.S3
		uploader *s3manager.Uploader
		bucket   string
	}
)

func NewS3FileStore(ctx context.Context) (*S3FileStore, error) {
	if utils.S3_BUCKET_NAME == "" {
		return nil, fmt.Errorf("S3_BUCKET_NAME not set")
	}

	s3Config := &aws.Config{
		Region:      aws.String(utils.AWS_DEFAULT_REGION),
		Credentials: credentials.NewEnvCredentials(),
	}
	if utils.S3_ENDPOINT != "" {
		s3Config.Endpoint = aws.String(utils.S3_ENDPOINT)
		s3Config.S3ForcePathStyle = aws.Bool(true)
	}

	s3Session, err := session.NewSession(s3Config)
	if err != nil {
		return nil, fmt.Errorf("error making new session: %w", err)
	}

	return &S3FileStore{
		client:   s3.New(s3Session),
		uploader: s3manager.NewUploader(s3Session),
		bucket:   utils.S3_BUCKET_NAME,
	}, nil
}

func (sfs *S3FileStore) OpenFile(ctx context.Context, path string) (io.ReadCloser, error) {
	out, err := sfs.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(sfs.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return nil, fmt.Errorf("error in GetObject: %w", err)
	}
	return out.Body, nil
}

func (sfs *S3FileStore) WriteFile(ctx context.Context, path string, r io.Reader) error {
	_, err := sfs.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(sfs.bucket),
		Key:    aws.String(path),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("error uploading to s3: %w", err)
	}
	return nil
}

func (sfs *S3FileStore) DeleteFile(ctx context.Context, path string) error {
	_, err := sfs.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(sfs.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("error in DeleteObject: %w", err)
	}
	return nil
}

func (sfs *S3FileStore) Shutdown(_ context.Context) error {
	return nil
}
