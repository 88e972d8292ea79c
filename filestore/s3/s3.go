// Package s3 provides a filestore.Store backed by an S3 bucket. Objects are
// stored flat under an optional key prefix; upload metadata travels in
// object metadata so List can reconstruct entries without a side index.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/jmcleod/sharedrop/filestore"
)

const (
	metaOriginalName = "original-name"
	metaUploadedAt   = "uploaded-at"
)

// Store implements filestore.Store on an S3 bucket.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
	now    func() time.Time
}

var _ filestore.Store = (*Store)(nil)

// NewStore creates a Store using the default AWS credential chain.
func NewStore(ctx context.Context, bucket, prefix string) (*Store, error) {
	if bucket == "" {
		return nil, errors.New("s3 bucket name is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return NewStoreWithClient(s3.NewFromConfig(cfg), bucket, prefix), nil
}

// NewStoreWithClient creates a Store around an existing client. Tests use it
// with a stubbed endpoint.
func NewStoreWithClient(client *s3.Client, bucket, prefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

func (s *Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *Store) name(key string) string {
	if s.prefix == "" {
		return key
	}
	return key[len(s.prefix)+1:]
}

func isNoSuchKey(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}

func (s *Store) Save(ctx context.Context, name string, content io.Reader) (*filestore.Entry, error) {
	uploadedAt := s.now()
	stored := filestore.StoredName(name, uploadedAt)

	// PutObject needs a seekable body or a known length for signing; buffer
	// through io.ReadAll since uploads are request-bounded anyway.
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(stored)),
		Body:   bytes.NewReader(data),
		Metadata: map[string]string{
			metaOriginalName: url.PathEscape(name),
			metaUploadedAt:   strconv.FormatInt(uploadedAt.UnixMilli(), 10),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("putting object: %w", err)
	}
	return &filestore.Entry{
		Name:         stored,
		OriginalName: name,
		Size:         int64(len(data)),
		UploadedAt:   uploadedAt,
	}, nil
}

func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, *filestore.Entry, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, nil, fmt.Errorf("%s: %w", name, filestore.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("getting object: %w", err)
	}
	entry := &filestore.Entry{Name: name, Size: aws.ToInt64(out.ContentLength)}
	if out.LastModified != nil {
		entry.UploadedAt = *out.LastModified
	}
	applyMetadata(entry, out.Metadata)
	return out.Body, entry, nil
}

func (s *Store) List(ctx context.Context) ([]filestore.Entry, error) {
	var entries []filestore.Entry
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix + "/")
	}
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing objects: %w", err)
		}
		for _, obj := range page.Contents {
			entry := filestore.Entry{
				Name: s.name(aws.ToString(obj.Key)),
				Size: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				entry.UploadedAt = *obj.LastModified
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if err := s.head(ctx, name); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return fmt.Errorf("deleting object: %w", err)
	}
	return nil
}

// Rename copies oldName to newName and deletes the original. The existence
// probe and the copy are separate calls; same-name races resolve
// last-writer-wins, as with the local backend.
func (s *Store) Rename(ctx context.Context, oldName, newName string) error {
	if err := s.head(ctx, newName); err == nil {
		return fmt.Errorf("%s: %w", newName, filestore.ErrExists)
	} else if !errors.Is(err, filestore.ErrNotFound) {
		return err
	}
	if err := s.head(ctx, oldName); err != nil {
		return err
	}

	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(s.bucket + "/" + s.key(oldName)),
		Key:        aws.String(s.key(newName)),
	})
	if err != nil {
		return fmt.Errorf("copying object: %w", err)
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(oldName)),
	})
	if err != nil {
		return fmt.Errorf("deleting source object: %w", err)
	}
	return nil
}

func (s *Store) head(ctx context.Context, name string) error {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return fmt.Errorf("%s: %w", name, filestore.ErrNotFound)
		}
		return fmt.Errorf("heading object: %w", err)
	}
	return nil
}

func applyMetadata(entry *filestore.Entry, metadata map[string]string) {
	if raw, ok := metadata[metaOriginalName]; ok {
		if original, err := url.PathUnescape(raw); err == nil {
			entry.OriginalName = original
		}
	}
	if raw, ok := metadata[metaUploadedAt]; ok {
		if millis, err := strconv.ParseInt(raw, 10, 64); err == nil {
			entry.UploadedAt = time.UnixMilli(millis)
		}
	}
}
