package recording

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/quietcut/quietcut/internal/types"
)

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint        string // Custom S3 endpoint (empty for AWS)
	Bucket          string // S3 bucket name
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
}

// IsConfigured returns true if S3 settings are configured.
func (c *S3Config) IsConfigured() bool {
	return c.Bucket != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// createS3Client creates an S3 client with the given configuration.
func createS3Client(cfg *S3Config) *s3.Client {
	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKeyID,
		cfg.SecretAccessKey,
		"",
	)

	options := []func(*s3.Options){
		func(o *s3.Options) {
			o.Credentials = creds
			o.Region = "auto"
		},
	}

	if cfg.Endpoint != "" {
		options = append(options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return s3.New(s3.Options{}, options...)
}

// UploadArtifact uploads a finished artifact to S3 and records the outcome on
// the artifact itself. The local file is kept either way.
func UploadArtifact(cfg *S3Config, artifact *types.Artifact, logger *slog.Logger) {
	if !cfg.IsConfigured() {
		logger.Info("S3 not configured, keeping local artifact", "path", artifact.Path)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	file, err := os.Open(artifact.Path)
	if err != nil {
		artifact.UploadErr = err.Error()
		logger.Error("Failed to open artifact for upload", "path", artifact.Path, "error", err)
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Warn("Failed to close artifact after upload", "error", err)
		}
	}()

	client := createS3Client(cfg)
	key := fmt.Sprintf("%s/%s", time.Now().UTC().Format("2006/01"), filepath.Base(artifact.Path))
	contentType := types.PresetFor(artifact.Codec).MIME

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(cfg.Bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(artifact.SizeBytes),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		artifact.UploadErr = err.Error()
		logger.Error("Artifact upload failed", "s3_key", key, "error", err)
		return
	}

	artifact.URL = objectURL(cfg, key)
	logger.Info("Artifact upload completed", "s3_key", key, "url", artifact.URL)
}

// objectURL builds the public URL for an uploaded object.
func objectURL(cfg *S3Config, key string) string {
	if cfg.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", cfg.Endpoint, cfg.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", cfg.Bucket, key)
}

// TestS3Connection tests connectivity to an S3 bucket by uploading and deleting a test file.
func TestS3Connection(cfg *S3Config) error {
	if !cfg.IsConfigured() {
		return fmt.Errorf("S3 is not configured")
	}

	client := createS3Client(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30000*time.Millisecond)
	defer cancel()

	testKey := fmt.Sprintf("test-connection-%d.txt", time.Now().UnixNano())
	testContent := []byte("QuietCut storage connection test")

	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(cfg.Bucket),
		Key:           aws.String(testKey),
		Body:          bytes.NewReader(testContent),
		ContentLength: aws.Int64(int64(len(testContent))),
	})
	if err != nil {
		return fmt.Errorf("upload test file: %w", err)
	}

	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(cfg.Bucket),
		Key:    aws.String(testKey),
	})
	if err != nil {
		slog.Warn("failed to delete test file", "key", testKey, "error", err)
	}

	return nil
}
