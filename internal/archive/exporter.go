package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Shamsear/ssleague-sub021/internal/database/models"
)

// Exporter writes season settlement logs to a Spaces/S3 bucket for audit.
type Exporter struct {
	client    *s3.Client
	bucket    string
	region    string
	AuditRoot string
}

func NewExporter(key, secret, region, bucket, auditRoot string) (*Exporter, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load object storage config: %w", err)
	}

	return &Exporter{
		client:    s3.NewFromConfig(cfg),
		bucket:    bucket,
		region:    region,
		AuditRoot: strings.TrimPrefix(auditRoot, "/"),
	}, nil
}

type seasonArchive struct {
	SeasonID   int64                 `json:"season_id"`
	ExportedAt time.Time             `json:"exported_at"`
	Count      int                   `json:"count"`
	Txns       []*models.Transaction `json:"transactions"`
}

// ExportSeason uploads the season's transaction log as one JSON object and
// returns the object key. Exports are timestamped, never overwritten.
func (e *Exporter) ExportSeason(ctx context.Context, seasonID int64, txns []*models.Transaction) (string, error) {
	now := time.Now().UTC()
	doc := seasonArchive{
		SeasonID:   seasonID,
		ExportedAt: now,
		Count:      len(txns),
		Txns:       txns,
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize season archive: %w", err)
	}

	key := fmt.Sprintf("%s/season_%d/transactions_%s.json",
		e.AuditRoot, seasonID, now.Format("20060102T150405Z"))
	contentType := "application/json"

	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &e.bucket,
		Key:         &key,
		Body:        bytes.NewReader(payload),
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload season archive: %w", err)
	}

	slog.Info("Season transaction log archived",
		slog.Int64("season_id", seasonID),
		slog.String("key", key),
		slog.Int("count", len(txns)))

	return key, nil
}
