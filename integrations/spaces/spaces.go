// Package spaces archives snapshots in a DigitalOcean Spaces (S3
// compatible) bucket.
package spaces

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/net/context"
)

var (
	ErrNotFound = errors.New("object not found")
	ErrTooLarge = errors.New("object too large")
)

type Config struct {
	Endpoint string
	Region   string
	Bucket   string
	Key      string
	Secret   string
	Prefix   string
}

type Archive struct {
	client s3iface.S3API
	bucket string
	prefix string
}

func New(cfg Config) (*Archive, error) {
	s3Config := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(cfg.Key, cfg.Secret, ""),
		Endpoint:         aws.String(cfg.Endpoint),
		S3ForcePathStyle: aws.Bool(false),
		Region:           aws.String(cfg.Region),
	}
	newSession, err := session.NewSession(s3Config)
	if err != nil {
		return nil, fmt.Errorf("creating spaces session: %w", err)
	}
	return NewWithClient(s3.New(newSession), cfg.Bucket, cfg.Prefix), nil
}

func NewWithClient(client s3iface.S3API, bucket, prefix string) *Archive {
	return &Archive{client: client, bucket: bucket, prefix: prefix}
}

// Key is where a guild's snapshot file lives: <prefix>/<guildID>/<name>.
func (a *Archive) Key(guildID snowflake.ID, name string) string {
	return path.Join(a.prefix, guildID.String(), name)
}

func (a *Archive) Upload(ctx context.Context, key string, body []byte, tags map[string]string) error {
	metadata := make(map[string]*string, len(tags))
	for k, v := range tags {
		metadata[k] = aws.String(v)
	}
	_, err := a.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ACL:         aws.String("private"),
		ContentType: aws.String("application/json"),
		Metadata:    metadata,
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

// Download reads the object at key, refusing bodies over max bytes when max
// is positive.
func (a *Archive) Download(ctx context.Context, key string, max int64) ([]byte, error) {
	out, err := a.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("downloading %s: %w", key, err)
	}
	defer out.Body.Close()

	if max > 0 && out.ContentLength != nil && *out.ContentLength > max {
		return nil, fmt.Errorf("%s: %d bytes: %w", key, *out.ContentLength, ErrTooLarge)
	}
	reader := io.Reader(out.Body)
	if max > 0 {
		reader = io.LimitReader(out.Body, max+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	if max > 0 && int64(len(body)) > max {
		return nil, fmt.Errorf("%s: %w", key, ErrTooLarge)
	}
	return body, nil
}

func notFound(err error) bool {
	var requestFailure awserr.RequestFailure
	if errors.As(err, &requestFailure) && requestFailure.StatusCode() == http.StatusNotFound {
		return true
	}
	var awsErr awserr.Error
	return errors.As(err, &awsErr) && awsErr.Code() == s3.ErrCodeNoSuchKey
}
