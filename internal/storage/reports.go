// Package storage archives raw credit bureau responses in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Dan9191/loan-service/internal/config"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// ReportArchive stores raw credit reports keyed by evaluation
type ReportArchive struct {
	client *minio.Client
	bucket string
	log    *logrus.Logger
}

// NewReportArchive creates the client; call EnsureBucket before first use
func NewReportArchive(cfg *config.Config, log *logrus.Logger) (*ReportArchive, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &ReportArchive{client: client, bucket: cfg.S3Bucket, log: log}, nil
}

// EnsureBucket creates the bucket if it does not exist yet
func (a *ReportArchive) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	a.log.Infof("Bucket %s created", a.bucket)
	return nil
}

// ReportKey names the object for one pull of an evaluation's credit report
func ReportKey(evaluationID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("evaluations/%s/%s.xml", evaluationID, at.UTC().Format("20060102T150405Z"))
}

// Put stores a raw report and returns its key
func (a *ReportArchive) Put(ctx context.Context, evaluationID uuid.UUID, raw []byte) (string, error) {
	key := ReportKey(evaluationID, time.Now())
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: "text/xml",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload report: %w", err)
	}
	a.log.WithField("key", key).Info("Credit report archived")
	return key, nil
}

// Get downloads a stored report
func (a *ReportArchive) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("report %s: %w", key, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	return data, nil
}
