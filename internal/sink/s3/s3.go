// Package s3 is the upload collaborator: it syncs the csvfile sink's output
// to an object-storage bucket and verifies each object landed. The pipeline
// core hands it a manifest and does not retry uploads itself; the SDK's
// built-in retrier covers transient failures.
package s3

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"faoetl/internal/sink"
)

// Uploader syncs manifest entries to a bucket.
type Uploader struct {
	bucket string
	prefix string

	uploader *s3manager.Uploader
	svc      *awss3.S3
}

// NewUploader builds an Uploader. Credentials come from the default chain
// (env, shared config, instance role).
func NewUploader(bucket, region, prefix string) (*Uploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3: bucket required")
	}
	cfg := aws.NewConfig()
	if region != "" {
		cfg = cfg.WithRegion(region)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("s3: new session: %w", err)
	}
	return &Uploader{
		bucket:   bucket,
		prefix:   prefix,
		uploader: s3manager.NewUploader(sess),
		svc:      awss3.New(sess),
	}, nil
}

// Sync uploads every manifest entry's file to the bucket under
// prefix/<table>.csv and then verifies each object is listed with a
// non-zero size. Any failure is returned; the caller decides whether the
// run is still useful (local output exists either way).
func (u *Uploader) Sync(ctx context.Context, manifest sink.Manifest) error {
	for _, entry := range manifest {
		if err := u.uploadOne(ctx, entry); err != nil {
			return err
		}
	}
	return u.verify(ctx, manifest)
}

func (u *Uploader) uploadOne(ctx context.Context, entry sink.ManifestEntry) error {
	f, err := os.Open(entry.Location)
	if err != nil {
		return fmt.Errorf("s3: open %s: %w", entry.Location, err)
	}
	defer f.Close()

	key := u.key(entry.Table)
	if _, err := u.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return fmt.Errorf("s3: upload %s: %w", key, err)
	}
	log.Printf("s3: uploaded table=%s rows=%d key=%s", entry.Table, entry.Rows, key)
	return nil
}

// verify re-lists each uploaded object, mirroring the original pipeline's
// post-upload quality checks (object present, non-zero size).
func (u *Uploader) verify(ctx context.Context, manifest sink.Manifest) error {
	for _, entry := range manifest {
		key := u.key(entry.Table)
		out, err := u.svc.ListObjectsV2WithContext(ctx, &awss3.ListObjectsV2Input{
			Bucket: aws.String(u.bucket),
			Prefix: aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("s3: list %s: %w", key, err)
		}
		found := false
		for _, obj := range out.Contents {
			if aws.StringValue(obj.Key) == key {
				if aws.Int64Value(obj.Size) == 0 {
					return fmt.Errorf("s3: object %s uploaded empty", key)
				}
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("s3: object %s not found after upload", key)
		}
	}
	return nil
}

func (u *Uploader) key(table string) string {
	return path.Join(u.prefix, table+".csv")
}
