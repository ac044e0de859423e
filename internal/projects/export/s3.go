package export

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/GoSim-25-26J-441/codegen-backend/config"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/logger"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/domain"
)

// ObjectPutter is the part of the S3 client the exporter uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Exporter uploads files as s3://<bucket>/<prefix>/<project id>/<path>.
type S3Exporter struct {
	client ObjectPutter
	bucket string
	prefix string
}

func NewS3Exporter(client ObjectPutter, bucket, prefix string) *S3Exporter {
	return &S3Exporter{client: client, bucket: bucket, prefix: prefix}
}

// NewS3ExporterFromConfig builds the client from the default AWS credential
// chain.
func NewS3ExporterFromConfig(ctx context.Context, cfg config.ExportConfig) (*S3Exporter, error) {
	awsConf, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("aws config load: %w", err)
	}
	client := s3.NewFromConfig(awsConf, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3Exporter(client, cfg.S3Bucket, cfg.S3Prefix), nil
}

func (e *S3Exporter) Export(ctx context.Context, p *domain.Project) (*Receipt, error) {
	now := time.Now().UTC()
	files, manifest, err := prepare(p, now)
	if err != nil {
		return nil, err
	}

	base := path.Join(e.prefix, p.ID)
	for _, f := range files {
		if err := e.put(ctx, path.Join(base, f.Path), []byte(f.Content)); err != nil {
			return nil, err
		}
	}
	if err := e.put(ctx, path.Join(base, domain.ManifestFile), manifest); err != nil {
		return nil, err
	}

	location := fmt.Sprintf("s3://%s/%s/", e.bucket, base)
	logger.NewLogger(ctx).WithProject(p.ID).LogInfof("export.s3", "uploaded %d files to %s", len(files), location)
	return &Receipt{Target: "s3", Location: location, Files: len(files), ExportedAt: now}, nil
}

func (e *S3Exporter) put(ctx context.Context, key string, body []byte) error {
	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", e.bucket, key, err)
	}
	return nil
}
