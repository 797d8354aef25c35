package storage

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/opentracing/opentracing-go"

	"github.com/opendesk/mailroom/internal/tracing"
	"github.com/opendesk/mailroom/interfaces"
)

// Config selects the bucket holding attachment bytes. Endpoint is optional
// and covers S3-compatible stores like Cloudflare R2 or MinIO.
type Config struct {
	Region          string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"STORAGE_ENDPOINT"`
	AccessKeyID     string `env:"STORAGE_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"STORAGE_ACCESS_KEY_SECRET"`
	Bucket          string `env:"STORAGE_BUCKET"`
	PublicBaseURL   string `env:"STORAGE_PUBLIC_BASE_URL"`
}

// attachmentStore keeps attachment bytes in an S3 bucket, keyed by
// conversation/thread/attachment id.
type attachmentStore struct {
	uploader   *s3manager.Uploader
	downloader *s3manager.Downloader
	session    *session.Session
	bucket     string
	baseURL    string
}

// NewAttachmentStore builds an S3-backed store. Returns nil when no bucket
// is configured; callers treat a nil store as "attachments stay in the
// database record only".
func NewAttachmentStore(config Config) interfaces.StorageService {
	if config.Bucket == "" {
		return nil
	}

	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
	}
	if config.AccessKeyID != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKeyID, config.AccessKeySecret, "")
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess := session.Must(session.NewSession(awsConfig))

	return &attachmentStore{
		uploader:   s3manager.NewUploader(sess),
		downloader: s3manager.NewDownloader(sess),
		session:    sess,
		bucket:     config.Bucket,
		baseURL:    config.PublicBaseURL,
	}
}

func (s *attachmentStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "attachmentStore.Upload")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("key", key)

	_, err := s.uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	return err
}

func (s *attachmentStore) Download(ctx context.Context, key string) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "attachmentStore.Download")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("key", key)

	buffer := &aws.WriteAtBuffer{}
	_, err := s.downloader.Download(buffer, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func (s *attachmentStore) Delete(ctx context.Context, key string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "attachmentStore.Delete")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("key", key)

	svc := s3.New(s.session)
	_, err := svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *attachmentStore) GetPublicURL(key string) string {
	if s.baseURL == "" {
		return ""
	}
	return s.baseURL + "/" + key
}
