package mail

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// ObjectPutter is the part of the S3 client the outbox needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config describes an S3-compatible bucket (AWS or MinIO).
type S3Config struct {
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	BaseEndpoint string
}

// S3Sender stores each message as an .eml object; a separate relay picks
// them up for delivery.
type S3Sender struct {
	client ObjectPutter
	bucket string
	from   string
	log    logging.Logger
	now    func() time.Time
}

// NewS3Sender builds an S3 client from cfg.
func NewS3Sender(ctx context.Context, cfg S3Config, from string, log logging.Logger) (*S3Sender, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3SenderWithClient(client, cfg.Bucket, from, log), nil
}

func NewS3SenderWithClient(client ObjectPutter, bucket, from string, log logging.Logger) *S3Sender {
	return &S3Sender{client: client, bucket: bucket, from: from, log: log.With("module", "mail"), now: time.Now}
}

// OutboxKey returns the object key for a message created at t.
func OutboxKey(t time.Time, id string) string {
	t = t.UTC()
	return fmt.Sprintf("outbox/%04d/%02d/%02d/%s.eml", t.Year(), int(t.Month()), t.Day(), id)
}

func (s *S3Sender) Send(ctx context.Context, to, subject, html string) error {
	now := s.now()
	msg := &Message{
		ID:      uuid.NewString(),
		From:    s.from,
		To:      to,
		Subject: subject,
		HTML:    html,
		Date:    now,
	}
	key := OutboxKey(now, msg.ID)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(msg.Bytes()),
		ContentType: aws.String("message/rfc822"),
	})
	if err != nil {
		return fmt.Errorf("put outbox object: %w", err)
	}

	s.log.Info(ctx, "mail stored in outbox", "to", to, "bucket", s.bucket, "key", key)
	return nil
}
