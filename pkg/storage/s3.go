package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Client is the part of the S3 API used by S3Store. *s3.Client
// satisfies it.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Store is a FileStore on an S3 bucket, or any S3-compatible store.
// Paths map to object keys below an optional prefix.
type S3Store struct {
	client S3Client
	bucket string
	prefix string
}

var _ FileStore = (*S3Store)(nil)

// NewS3 creates a store for bucket. Prefix may be empty.
func NewS3(client S3Client, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// NewS3Client creates an S3 client for region. With empty keys requests
// are unsigned, which only works for public buckets.
func NewS3Client(region, accessKey, secretKey string) *s3.Client {
	opts := s3.Options{Region: region}
	if accessKey != "" && secretKey != "" {
		opts.Credentials = aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""))
	}
	return s3.New(opts)
}

// ParseS3URL splits "s3://bucket/prefix" into bucket and prefix. The
// prefix may be empty; surrounding slashes are removed.
func ParseS3URL(u string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(u, "s3://")
	if !ok {
		return "", "", fmt.Errorf("storage: %q is not an s3:// URL", u)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("storage: %q has no bucket", u)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

// URL returns the s3:// URL of the named object.
func (s *S3Store) URL(name string) string {
	return "s3://" + s.bucket + "/" + s.key(name)
}

func (s *S3Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// Read implements FileStore.
func (s *S3Store) Read(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("storage: read %s: %w", s.URL(name), fs.ErrNotExist)
		}
		return nil, err
	}
	return out.Body, nil
}

// Write implements FileStore. The object is held in memory and uploaded
// in one PutObject call on Close.
func (s *S3Store) Write(ctx context.Context, name string) (io.WriteCloser, error) {
	return &s3Writer{ctx: ctx, s: s, name: name}, nil
}

// Upload stores body as the named object with user metadata attached.
// Body is sent as is, so large files are not buffered.
func (s *S3Store) Upload(ctx context.Context, name string, body io.ReadSeeker, meta map[string]string) error {
	size, err := body.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(name)),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   contentType(name),
		Metadata:      meta,
	})
	if err != nil {
		return fmt.Errorf("storage: upload %s: %w", s.URL(name), err)
	}
	return nil
}

// Delete implements FileStore.
func (s *S3Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	return err
}

// Exists implements FileStore.
func (s *S3Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

type s3Writer struct {
	ctx  context.Context
	s    *S3Store
	name string
	buf  bytes.Buffer
	done bool
}

func (w *s3Writer) Write(p []byte) (int, error) {
	if w.done {
		return 0, fs.ErrClosed
	}
	return w.buf.Write(p)
}

// Close uploads the buffered object.
func (w *s3Writer) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	return w.s.Upload(w.ctx, w.name, bytes.NewReader(w.buf.Bytes()), nil)
}

// Abort drops the buffered object without uploading it.
func (w *s3Writer) Abort() error {
	w.done = true
	w.buf.Reset()
	return nil
}

// contentType maps the extension of name to a Content-Type so published
// audio plays in browsers.
func contentType(name string) *string {
	switch ext := path.Ext(name); ext {
	case ".mp3":
		return aws.String("audio/mpeg")
	case ".wav":
		return aws.String("audio/wav")
	case "":
		return nil
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return aws.String(t)
		}
		return nil
	}
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
