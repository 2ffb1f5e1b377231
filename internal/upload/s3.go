package upload

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"

	"github.com/kiranshivaraju/caseflow/pkg/models"
)

// S3TargetSource presigns PUT URLs directly against a bucket, for
// deployments without an upload-URL service. Every call gets a fresh key
// namespace so batches never overwrite each other.
type S3TargetSource struct {
	svc    *s3.S3
	bucket string
	prefix string
	ttl    time.Duration
}

// NewS3TargetSource creates a presigner using the default AWS credential
// chain for region.
func NewS3TargetSource(region, bucket, prefix string, ttl time.Duration) (*S3TargetSource, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("creating aws session: %w", err)
	}
	return NewS3TargetSourceWithClient(s3.New(sess), bucket, prefix, ttl), nil
}

// NewS3TargetSourceWithClient uses an existing S3 client.
func NewS3TargetSourceWithClient(svc *s3.S3, bucket, prefix string, ttl time.Duration) *S3TargetSource {
	return &S3TargetSource{svc: svc, bucket: bucket, prefix: prefix, ttl: ttl}
}

func (s *S3TargetSource) GetUploadTargets(ctx context.Context, filenames []string) (map[string]models.UploadTarget, error) {
	batch := uuid.NewString()
	targets := make(map[string]models.UploadTarget, len(filenames))

	for _, name := range filenames {
		if err := ctx.Err(); err != nil {
			return nil, classifyError(ErrTargetsUnavailable, err)
		}

		key := path.Join(s.prefix, batch, name)
		req, _ := s.svc.PutObjectRequest(&s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			ContentType: aws.String(imageContentType),
		})
		url, err := req.Presign(s.ttl)
		if err != nil {
			return nil, fmt.Errorf("%w: presign %s: %v", ErrTargetsUnavailable, name, err)
		}
		targets[name] = models.UploadTarget{
			Filename:   name,
			UploadURL:  url,
			StorageKey: key,
		}
	}
	return targets, nil
}

var _ TargetSource = (*S3TargetSource)(nil)
