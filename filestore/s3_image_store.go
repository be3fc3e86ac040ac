package filestore

import (
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/google/uuid"
)

type S3ImageStore struct {
	bucket    string
	urlPrefix string
	uploader  *s3manager.Uploader
}

// NewS3ImageStore stores images in the bucket named by IMAGE_BUCKET,
// served through the CDN prefix named by IMAGE_URL_PREFIX.
func NewS3ImageStore() (*S3ImageStore, error) {
	// AWS client session
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(os.Getenv("AWS_REGION")),
	})
	if err != nil {
		return nil, err
	}

	return &S3ImageStore{
		bucket:    os.Getenv("IMAGE_BUCKET"),
		urlPrefix: os.Getenv("IMAGE_URL_PREFIX"),
		uploader:  s3manager.NewUploader(sess),
	}, nil
}

// Save uploads the image under a fresh uuid key, keeping the original
// file extension so the CDN serves the right content type.
func (s *S3ImageStore) Save(fileName string, r io.Reader) (string, error) {
	key := uuid.New().String() + filepath.Ext(fileName)

	_, err := s.uploader.Upload(&s3manager.UploadInput{
		ACL:    aws.String("public-read"),
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (s *S3ImageStore) GetUrlFromKey(key string) string {
	return s.urlPrefix + key
}

func (s *S3ImageStore) CleanUp() {}
