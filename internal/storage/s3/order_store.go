// Package s3 хранит журнал заказов одним JSON-объектом в бакете S3.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	log "github.com/sirupsen/logrus"

	"github.com/psalsa30/unithrift/internal/domain"
	"github.com/psalsa30/unithrift/internal/storage/document"
)

const contentType = "application/json"

// ObjectAPI - подмножество клиента S3, которое нужно хранилищу.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// ClientConfig описывает подключение к S3 или совместимому хранилищу (MinIO, LocalStack).
type ClientConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// NewClient создаёт клиента S3. Без явных ключей используется стандартная цепочка учётных данных AWS.
func NewClient(ctx context.Context, cfg ClientConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// OrderStore - реализация domain.OrderStore поверх одного объекта.
type OrderStore struct {
	client ObjectAPI
	bucket string
	key    string
	logger *log.Entry
}

// NewOrderStore создаёт хранилище для объекта bucket/key.
func NewOrderStore(client ObjectAPI, bucket, key string, logger *log.Entry) *OrderStore {
	if logger == nil {
		logger = log.New().WithField("component", "s3-store")
	}
	return &OrderStore{
		client: client,
		bucket: bucket,
		key:    key,
		logger: logger.WithFields(log.Fields{"bucket": bucket, "key": key}),
	}
}

// LoadAll скачивает документ. Отсутствующий объект даёт пустую коллекцию.
func (s *OrderStore) LoadAll(ctx context.Context) ([]domain.Order, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if isNotFound(err) {
			return []domain.Order{}, nil
		}
		return nil, fmt.Errorf("%w: get s3://%s/%s: %v", domain.ErrPersistence, s.bucket, s.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read s3 object: %v", domain.ErrPersistence, err)
	}

	orders, err := document.Decode(data)
	if err != nil {
		s.logger.WithError(err).Warn("orders object is not readable, treating as empty")
		return []domain.Order{}, nil
	}
	return orders, nil
}

// SaveAll перезаписывает объект целиком; PUT в S3 атомарен для читателей.
func (s *OrderStore) SaveAll(ctx context.Context, orders []domain.Order) error {
	data, err := document.Encode(orders)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("%w: put s3://%s/%s: %v", domain.ErrPersistence, s.bucket, s.key, err)
	}
	return nil
}

// Check проверяет доступ к бакету.
func (s *OrderStore) Check(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("head bucket %s: %w", s.bucket, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

var _ domain.OrderStore = (*OrderStore)(nil)
