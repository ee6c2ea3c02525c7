package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/oklog/ulid/v2"

	"github.com/vidshare/backend/internal/config"
	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/videos"
)

type objectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type objectDeleter interface {
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Gateway implements Gateway backed by an S3-compatible service.
type S3Gateway struct {
	uploader objectUploader
	deleter  objectDeleter
	prober   videos.Prober
	bucket   string
	baseURL  string
}

// NewS3Gateway configures an uploader targeting the provided object store.
// Video durations are read with prober before upload.
func NewS3Gateway(ctx context.Context, cfg config.ObjectStoreConfig, prober videos.Prober) (*S3Gateway, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 storage: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if strings.TrimSpace(cfg.Endpoint) != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:           cfg.Endpoint,
					SigningRegion: cfg.Region,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		loadOpts = append(loadOpts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	baseURL := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if baseURL == "" && strings.TrimSpace(cfg.Endpoint) != "" {
		baseURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return &S3Gateway{
		uploader: uploader,
		deleter:  client,
		prober:   prober,
		bucket:   cfg.Bucket,
		baseURL:  baseURL,
	}, nil
}

// Upload sniffs the file type, probes video durations, and stores the file
// under a time-ordered key. The local file is removed on every outcome.
func (s *S3Gateway) Upload(ctx context.Context, localPath string) (result UploadResult, err error) {
	defer RemoveTempFile(ctx, localPath)
	defer func() { observe("upload", result.Kind, err) }()

	if strings.TrimSpace(localPath) == "" {
		return UploadResult{}, ErrNoFile
	}

	detected, err := mimetype.DetectFile(localPath)
	if err != nil {
		return UploadResult{}, fmt.Errorf("detect media type: %w", err)
	}
	kind, err := kindOf(detected)
	if err != nil {
		return UploadResult{}, err
	}

	var duration float64
	if kind == KindVideo && s.prober != nil {
		duration, err = s.prober.Duration(ctx, localPath)
		if err != nil {
			logging.FromContext(ctx).Warn("probe video duration", slog.String("path", localPath), slog.Any("error", err))
			duration, err = 0, nil
		}
	}

	file, err := os.Open(localPath)
	if err != nil {
		return UploadResult{}, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	publicID := ulid.Make().String()
	key := keyPrefix(kind) + publicID + detected.Extension()

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(detected.String()),
		ACL:         s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return UploadResult{}, fmt.Errorf("s3 storage upload %s: %w", key, err)
	}

	return UploadResult{
		URL:             s.publicURL(key),
		PublicID:        publicID,
		Kind:            kind,
		DurationSeconds: duration,
	}, nil
}

// Delete removes the object behind url. The kind, and so the key prefix, is
// inferred from the URL path.
func (s *S3Gateway) Delete(ctx context.Context, url string) {
	key, kind, ok := keyFromURL(url)
	if !ok {
		if strings.TrimSpace(url) != "" {
			logging.FromContext(ctx).Warn("skip delete of unrecognised media url", slog.String("url", url))
		}
		return
	}

	_, err := s.deleter.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	observe("delete", kind, err)
	if err != nil {
		logging.FromContext(ctx).Error("delete remote media",
			slog.String("key", key),
			slog.String("kind", string(kind)),
			slog.Any("error", err),
		)
	}
}

func (s *S3Gateway) publicURL(key string) string {
	if s.baseURL == "" {
		return key
	}
	return s.baseURL + "/" + key
}

func kindOf(detected *mimetype.MIME) (Kind, error) {
	for m := detected; m != nil; m = m.Parent() {
		switch {
		case strings.HasPrefix(m.String(), "video/"), strings.HasPrefix(m.String(), "audio/"):
			return KindVideo, nil
		case strings.HasPrefix(m.String(), "image/"):
			return KindImage, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedMedia, detected.String())
}
