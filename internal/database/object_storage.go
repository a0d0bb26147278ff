package database

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hypernova-labs/invoicing-service/internal/config"
	"github.com/sirupsen/logrus"
)

// ObjectStorage es el cliente de almacenamiento compatible con S3 para los PDFs
type ObjectStorage struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
	logger        *logrus.Logger
}

// NewObjectStorage crea el cliente S3 con endpoint propio y direccionamiento por ruta
func NewObjectStorage(ctx context.Context, s3cfg config.S3Config, storage config.StorageConfig, logger *logrus.Logger) (*ObjectStorage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(s3cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s3cfg.AccessKeyID, s3cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s3cfg.Endpoint)
		o.UsePathStyle = true
	})

	publicBaseURL := storage.PublicBaseURL
	if publicBaseURL == "" {
		publicBaseURL = strings.TrimRight(s3cfg.Endpoint, "/") + "/" + storage.Bucket
	}

	return &ObjectStorage{
		client:        client,
		bucket:        storage.Bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}, nil
}

// HealthCheck verifica que el bucket exista
func (s *ObjectStorage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("error checking object storage bucket %s: %w", s.bucket, err)
	}

	return nil
}

// Save sube el documento y retorna su URL pública
func (s *ObjectStorage) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("error uploading %s to object storage: %w", key, err)
	}

	url := s.publicBaseURL + "/" + key

	s.logger.WithFields(logrus.Fields{
		"bucket": s.bucket,
		"key":    key,
		"size":   len(data),
	}).Info("Document uploaded to object storage")

	return url, nil
}
