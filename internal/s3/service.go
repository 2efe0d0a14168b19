package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/h2non/filetype"
	"github.com/numera/numera/internal/config"
	ierr "github.com/numera/numera/internal/errors"
)

const (
	defaultPresignExpiryDuration = 15 * time.Minute
)

type Service interface {
	UploadArtifact(ctx context.Context, artifact *Artifact) error
	GetPresignedUrl(ctx context.Context, customerID, documentNumber string) (string, error)
	GetArtifact(ctx context.Context, customerID, documentNumber string) ([]byte, error)
	Exists(ctx context.Context, customerID, documentNumber string) (bool, error)
	// ObjectKey returns the bucket key an artifact for the document lives
	// under, so callers can persist it alongside the document
	ObjectKey(customerID, documentNumber string) string
}

type s3ServiceImpl struct {
	client *s3.Client
	config *config.S3Config
}

func NewService(config *config.Configuration) (Service, error) {
	if !config.S3.Enabled {
		return nil, nil
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(context.Background(),
		awsConfig.WithRegion(config.S3.Region),
	)
	if err != nil {
		return nil, ierr.WithError(err).WithHint("failed to load aws config").
			Mark(ierr.ErrHTTPClient)
	}

	return &s3ServiceImpl{
		config: &config.S3,
		client: s3.NewFromConfig(awsCfg),
	}, nil
}

func (s *s3ServiceImpl) getObjectKey(customerID, documentNumber string) string {
	if s.config.KeyPrefix != "" {
		return fmt.Sprintf("%s/%s/%s.pdf", s.config.KeyPrefix, customerID, documentNumber)
	}
	return fmt.Sprintf("%s/%s.pdf", customerID, documentNumber)
}

// ObjectKey implements Service.
func (s *s3ServiceImpl) ObjectKey(customerID, documentNumber string) string {
	return s.getObjectKey(customerID, documentNumber)
}

func (s *s3ServiceImpl) getContentType(kind ArtifactKind) string {
	switch kind {
	case ArtifactKindPdf:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// Exists implements Service.
func (s *s3ServiceImpl) Exists(ctx context.Context, customerID, documentNumber string) (bool, error) {
	key := s.getObjectKey(customerID, documentNumber)

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})

	if err != nil {
		var nsk *types.NoSuchKey
		var nske *types.NotFound
		if errors.As(err, &nsk) || errors.As(err, &nske) {
			return false, nil
		}
		return false, ierr.WithError(err).WithHint("failed to check if artifact exists").
			WithMessagef("bucket:%s, key:%s", s.config.Bucket, key).
			Mark(ierr.ErrHTTPClient)
	}

	return true, nil
}

// GetPresignedUrl implements Service.
func (s *s3ServiceImpl) GetPresignedUrl(ctx context.Context, customerID, documentNumber string) (string, error) {
	key := s.getObjectKey(customerID, documentNumber)

	duration := defaultPresignExpiryDuration
	if s.config.PresignExpiryMins > 0 {
		duration = time.Duration(s.config.PresignExpiryMins) * time.Minute
	}

	presigner := s3.NewPresignClient(s.client)
	result, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(duration))
	if err != nil {
		return "", ierr.WithError(err).WithHint("failed to get presigned url").
			WithMessagef("bucket:%s, key:%s", s.config.Bucket, key).
			Mark(ierr.ErrHTTPClient)
	}

	return result.URL, nil
}

// UploadArtifact implements Service.
func (s *s3ServiceImpl) UploadArtifact(ctx context.Context, artifact *Artifact) error {
	if artifact.Kind == ArtifactKindPdf && !filetype.Is(artifact.Data, "pdf") {
		return ierr.NewError("artifact payload is not a pdf").
			WithHint("Only PDF renderings of ledger documents can be attached").
			WithReportableDetails(map[string]any{
				"document_number": artifact.DocumentNumber,
			}).
			Mark(ierr.ErrValidation)
	}

	key := s.getObjectKey(artifact.CustomerID, artifact.DocumentNumber)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(artifact.Data),
		ContentType: aws.String(s.getContentType(artifact.Kind)),
	})
	if err != nil {
		return ierr.WithError(err).WithHint("failed to upload artifact").
			WithMessagef("bucket:%s, key:%s", s.config.Bucket, key).
			Mark(ierr.ErrHTTPClient)
	}

	return nil
}

// GetArtifact implements Service.
func (s *s3ServiceImpl) GetArtifact(ctx context.Context, customerID, documentNumber string) ([]byte, error) {
	key := s.getObjectKey(customerID, documentNumber)

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, ierr.WithError(err).WithHint("failed to get artifact").
			WithMessagef("bucket:%s, key:%s", s.config.Bucket, key).
			Mark(ierr.ErrHTTPClient)
	}

	defer result.Body.Close()

	return io.ReadAll(result.Body)
}
