package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/OFFIS-RIT/stockrag/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const downloadLinkExpiry = 15 * time.Minute

// objectAPI is the part of *s3.Client used by Bucket.
type objectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Bucket stores uploaded documents and graph snapshots in one S3 bucket.
type Bucket struct {
	Name   string
	Client *s3.Client

	api       objectAPI
	presigner *s3.PresignClient
	// prefix of AWS_PUBLIC_ENDPOINT, prepended to presigned paths
	publicPrefix string
}

// NewS3Client creates a path-style client from the AWS_* environment.
func NewS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(util.GetEnv("AWS_REGION")),
		config.WithBaseEndpoint(util.GetEnv("AWS_ENDPOINT")),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			util.GetEnv("AWS_ACCESS_KEY"),
			util.GetEnv("AWS_SECRET_KEY"),
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	}), nil
}

// NewBucket wraps client for AWS_BUCKET. Download links are signed for
// AWS_PUBLIC_ENDPOINT when it is set, so that they resolve from outside the
// cluster.
func NewBucket(client *s3.Client) (*Bucket, error) {
	b := &Bucket{
		Name:   util.GetEnv("AWS_BUCKET"),
		Client: client,
		api:    client,
	}

	public := util.GetEnvString("AWS_PUBLIC_ENDPOINT", "")
	if public == "" {
		b.presigner = s3.NewPresignClient(client)
		return b, nil
	}

	publicURL, err := url.Parse(public)
	if err != nil || publicURL.Scheme == "" || publicURL.Host == "" {
		return nil, fmt.Errorf("invalid AWS_PUBLIC_ENDPOINT: %s", public)
	}
	b.publicPrefix = strings.TrimSuffix(publicURL.Path, "/")

	// sign against the public host so the signature matches the Host header
	// the downloading client sends
	publicClient := s3.NewFromConfig(
		aws.Config{
			Region:      client.Options().Region,
			Credentials: client.Options().Credentials,
			HTTPClient:  client.Options().HTTPClient,
		},
		func(o *s3.Options) {
			o.BaseEndpoint = aws.String(fmt.Sprintf("%s://%s", publicURL.Scheme, publicURL.Host))
			o.UsePathStyle = true
		},
	)
	b.presigner = s3.NewPresignClient(publicClient)
	return b, nil
}

// GraphPrefix is the folder holding every object of a graph.
func GraphPrefix(graphID string) string {
	return fmt.Sprintf("graphs/%s", graphID)
}

// DocumentKey returns the object key of an uploaded document.
func DocumentKey(graphID, fileID, name string) string {
	key := path.Join(GraphPrefix(graphID), "documents", fileID)
	if ext := path.Ext(name); ext != "" {
		key += ext
	}
	return key
}

func contentType(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// PutFile uploads body under key.
func (b *Bucket) PutFile(ctx context.Context, key string, body io.Reader) error {
	_, err := b.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.Name),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload file to S3: %w", err)
	}
	return nil
}

func (b *Bucket) GetFile(ctx context.Context, key string) ([]byte, error) {
	result, err := b.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.Name),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get file from S3: %w", err)
	}
	defer result.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, result.Body); err != nil {
		return nil, fmt.Errorf("failed to read file contents: %w", err)
	}
	return buf.Bytes(), nil
}

// ListFiles returns every key under prefix in listing order.
func (b *Bucket) ListFiles(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := b.eachPage(ctx, prefix, func(objects []types.Object) error {
		for _, obj := range objects {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
		return nil
	})
	return keys, err
}

// DeleteFolder removes every object under prefix.
func (b *Bucket) DeleteFolder(ctx context.Context, prefix string) error {
	return b.eachPage(ctx, prefix, func(objects []types.Object) error {
		if len(objects) == 0 {
			return nil
		}
		ids := make([]types.ObjectIdentifier, 0, len(objects))
		for _, obj := range objects {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}
		_, err := b.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(b.Name),
			Delete: &types.Delete{
				Objects: ids,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects in folder %s: %w", prefix, err)
		}
		return nil
	})
}

func (b *Bucket) eachPage(ctx context.Context, prefix string, fn func([]types.Object) error) error {
	in := &s3.ListObjectsV2Input{
		Bucket: aws.String(b.Name),
		Prefix: aws.String(prefix),
	}
	for {
		out, err := b.api.ListObjectsV2(ctx, in)
		if err != nil {
			return fmt.Errorf("failed to list objects with prefix %s: %w", prefix, err)
		}
		if err := fn(out.Contents); err != nil {
			return err
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			return nil
		}
		in.ContinuationToken = out.NextContinuationToken
	}
}

// DownloadLink returns a presigned GET url for key.
func (b *Bucket) DownloadLink(ctx context.Context, key string) (string, error) {
	if b.presigner == nil {
		return "", fmt.Errorf("bucket has no presign client")
	}
	out, err := b.presigner.PresignGetObject(
		ctx,
		&s3.GetObjectInput{
			Bucket: aws.String(b.Name),
			Key:    aws.String(key),
		},
		s3.WithPresignExpires(downloadLinkExpiry),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate download link: %w", err)
	}
	return withPathPrefix(out.URL, b.publicPrefix)
}

func withPathPrefix(rawURL, prefix string) (string, error) {
	if prefix == "" {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse presigned url: %w", err)
	}
	u.Path = prefix + u.Path
	return u.String(), nil
}
