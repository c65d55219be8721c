package buckets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cqlab/cqlab/pkg/utils/awserrors"
)

// Watcher manages the lab's artifact buckets
type Watcher struct {
	s3API SDKBucketOps
}

// SDKBucketOps is an interface that combines the necessary S3 SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKBucketOps interface {
	s3.ListObjectsV2APIClient
	DeleteObjects(context.Context, *s3.DeleteObjectsInput, ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	DeleteBucket(context.Context, *s3.DeleteBucketInput, ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
}

// NewWatcher creates a new bucket Watcher
func NewWatcher(s3API SDKBucketOps) Watcher {
	return Watcher{
		s3API: s3API,
	}
}

// Empty deletes every object in a bucket in paginated batches.
// A bucket that does not exist is treated as empty.
func (w Watcher) Empty(ctx context.Context, bucket string) error {
	pager := s3.NewListObjectsV2Paginator(w.s3API, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			if awserrors.IsNotFound(err) {
				return nil
			}
			return fmt.Errorf("listing objects in s3://%s: %w", bucket, err)
		}
		if len(page.Contents) == 0 {
			continue
		}
		objects := make([]s3types.ObjectIdentifier, len(page.Contents))
		for i, obj := range page.Contents {
			objects[i] = s3types.ObjectIdentifier{Key: obj.Key}
		}
		if _, err := w.s3API.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &s3types.Delete{Objects: objects},
		}); err != nil {
			return fmt.Errorf("deleting objects in s3://%s: %w", bucket, err)
		}
	}
	return nil
}

// Delete empties and removes a bucket.
// A bucket that is already gone is treated as deleted.
func (w Watcher) Delete(ctx context.Context, bucket string) error {
	if err := w.Empty(ctx, bucket); err != nil {
		return err
	}
	if _, err := w.s3API.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)}); err != nil && !awserrors.IsNotFound(err) {
		return fmt.Errorf("deleting bucket s3://%s: %w", bucket, err)
	}
	return nil
}
