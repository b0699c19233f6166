package digest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

// S3API is the subset of the S3 client used by Archive.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archive keeps a copy of each weekly report in S3.
type Archive struct {
	bucket string
	client S3API
	logger *logging.Logger
}

// NewArchive creates a report archive. If bucket is empty, all operations are no-ops.
func NewArchive(client S3API, bucket string, logger *logging.Logger) *Archive {
	if logger == nil {
		logger = logging.Default()
	}
	return &Archive{bucket: bucket, client: client, logger: logger}
}

// Enabled returns true if archival is configured.
func (a *Archive) Enabled() bool {
	return a != nil && a.bucket != "" && a.client != nil
}

// SaveWeekly writes the result JSON and rendered HTML under
// reports/weekly/<end date>.{json,html}.
func (a *Archive) SaveWeekly(ctx context.Context, result WeeklyResult, htmlBody string) error {
	if !a.Enabled() {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("digest: marshal report: %w", err)
	}

	prefix := "reports/weekly/" + result.Period.End
	objects := []struct {
		key         string
		body        []byte
		contentType string
	}{
		{prefix + ".json", data, "application/json"},
		{prefix + ".html", []byte(htmlBody), "text/html; charset=utf-8"},
	}
	for _, obj := range objects {
		_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.bucket),
			Key:         aws.String(obj.key),
			Body:        bytes.NewReader(obj.body),
			ContentType: aws.String(obj.contentType),
		})
		if err != nil {
			return fmt.Errorf("digest: s3 put %s: %w", obj.key, err)
		}
	}
	a.logger.Info("archived weekly report", "bucket", a.bucket, "key_prefix", prefix)
	return nil
}
