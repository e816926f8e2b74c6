package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	cfg "github.com/vea-digital/asistente/internal/config"
	"github.com/vea-digital/asistente/internal/core"
)

// S3Client is the durable tier: source documents, the conversation
// archive, and the provenance metadata used as the idempotency gate.
type S3Client struct {
	client *s3.Client
	region string
	bucket string
}

var _ core.ObjectStore = (*S3Client)(nil)

var invalidKeyChars = regexp.MustCompile(`[^a-zA-Z0-9/._-]`)

// SanitizeKey normalizes an object key: spaces become underscores,
// invalid characters are dropped, leading/trailing slashes trimmed.
func SanitizeKey(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	name = invalidKeyChars.ReplaceAllString(name, "")
	return strings.Trim(name, "/")
}

func NewS3Client(ctx context.Context, c *cfg.Config) (*S3Client, error) {
	if c.AwsAccessKey == "" || c.AwsSecretKey == "" {
		return nil, fmt.Errorf("AWS credentials not set")
	}
	if c.AwsRegion == "" {
		return nil, fmt.Errorf("AWS_REGION not set")
	}
	if c.BucketName == "" {
		return nil, fmt.Errorf("S3 bucket name not set")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(c.AwsRegion),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AwsAccessKey, c.AwsSecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	log.Println("Connected to AWS S3 successfully")

	return &S3Client{
		client: client,
		region: c.AwsRegion,
		bucket: c.BucketName,
	}, nil
}

// Upload stores data under key and returns the object URL.
func (c *S3Client) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key = SanitizeKey(key)
	uploader := manager.NewUploader(c.client)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	ctxUpload, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	_, err := uploader.Upload(ctxUpload, input)
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}

	url := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, c.region, key)
	return url, nil
}

func (c *S3Client) Download(ctx context.Context, key string) ([]byte, error) {
	ctxGet, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	resp, err := c.client.GetObject(ctxGet, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(SanitizeKey(key)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", core.ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// DownloadToFile streams the object into path so large documents never
// need to be buffered twice.
func (c *S3Client) DownloadToFile(ctx context.Context, key, path string) error {
	ctxGet, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	resp, err := c.client.GetObject(ctxGet, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(SanitizeKey(key)),
	})
	if err != nil {
		return fmt.Errorf("s3 get failed: %w", err)
	}
	defer resp.Body.Close()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (c *S3Client) Delete(ctx context.Context, key string) error {
	ctxDel, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := c.client.DeleteObject(ctxDel, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(SanitizeKey(key)),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed: %w", err)
	}
	return nil
}

func (c *S3Client) List(ctx context.Context, prefix string) ([]string, error) {
	ctxList, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctxList)
		if err != nil {
			return nil, fmt.Errorf("s3 list failed: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// Metadata returns the user metadata attached to an object. A missing
// object yields an error; an object without metadata yields an empty map.
func (c *S3Client) Metadata(ctx context.Context, key string) (map[string]string, error) {
	ctxHead, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := c.client.HeadObject(ctxHead, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(SanitizeKey(key)),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return nil, fmt.Errorf("%w: %s", core.ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("s3 head failed: %w", err)
	}
	if resp.Metadata == nil {
		return map[string]string{}, nil
	}
	return resp.Metadata, nil
}

// SetMetadata replaces the object's user metadata via a same-key copy,
// which is the only way S3 exposes a metadata update.
func (c *S3Client) SetMetadata(ctx context.Context, key string, metadata map[string]string) error {
	key = SanitizeKey(key)
	ctxCopy, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := c.client.CopyObject(ctxCopy, &s3.CopyObjectInput{
		Bucket:            aws.String(c.bucket),
		Key:               aws.String(key),
		CopySource:        aws.String(c.bucket + "/" + key),
		Metadata:          metadata,
		MetadataDirective: types.MetadataDirectiveReplace,
	})
	if err != nil {
		return fmt.Errorf("s3 metadata update failed: %w", err)
	}
	return nil
}
