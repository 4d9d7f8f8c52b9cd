package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ErrUpload wraps any transport or quota failure from the media store.
var ErrUpload = errors.New("media upload failed")

// Uploader turns raw image payloads into stable content URLs.
type Uploader interface {
	Upload(ctx context.Context, dataURL string) (string, error)
}

// S3Uploader stores image payloads in an S3 bucket.
type S3Uploader struct {
	uploader *manager.Uploader
	bucket   string
	region   string
}

// NewS3Uploader constructs the uploader from ambient AWS configuration.
func NewS3Uploader(ctx context.Context, region, bucket string) (*S3Uploader, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg)
	return &S3Uploader{uploader: manager.NewUploader(client), bucket: bucket, region: region}, nil
}

// Upload accepts a base64 data URL (or bare base64 payload), stores the
// decoded bytes under a fresh key and returns the public object URL.
func (u *S3Uploader) Upload(ctx context.Context, dataURL string) (string, error) {
	contentType, data, err := decodeDataURL(dataURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}

	key := uuid.NewString() + extensionFor(contentType)
	_, err = u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, url.PathEscape(key)), nil
}

func decodeDataURL(dataURL string) (string, []byte, error) {
	contentType := "application/octet-stream"
	payload := dataURL
	if strings.HasPrefix(dataURL, "data:") {
		meta, rest, found := strings.Cut(strings.TrimPrefix(dataURL, "data:"), ",")
		if !found {
			return "", nil, errors.New("malformed data url")
		}
		if ct, _, _ := strings.Cut(meta, ";"); ct != "" {
			contentType = ct
		}
		payload = rest
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, err
	}
	return contentType, data, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
