// Package s3 implements the proxied executor for S3 and S3-compatible
// object stores (MinIO, R2) using the AWS SDK v2. Supported operations are
// read-only: list objects, fetch an object, and head an object.
package s3

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/syaikhipin/aidatasharing-sub001/pkg/adapters/connector"
)

// maxObjectBytes caps how much of an object body is returned inline.
const maxObjectBytes = 10 << 20

// Config holds object store connection settings from decrypted connector
// config.
type Config struct {
	Bucket   string
	Region   string
	Endpoint string // non-empty for S3-compatible stores
}

// ConfigFromMap parses decrypted config into an object store Config.
func ConfigFromMap(config map[string]any) (*Config, error) {
	bucket, err := connector.StringFromConfig(config, "bucket")
	if err != nil {
		return nil, err
	}

	return &Config{
		Bucket:   bucket,
		Region:   connector.OptionalString(config, "region", "us-east-1"),
		Endpoint: connector.OptionalString(config, "endpoint", ""),
	}, nil
}

// Executor runs object operations against one bucket.
type Executor struct {
	cfg         *Config
	credentials map[string]any
}

var _ connector.Executor = (*Executor)(nil)

// NewExecutor creates an S3 executor from decrypted config and credentials.
func NewExecutor(config, credentials map[string]any) (connector.Executor, error) {
	cfg, err := ConfigFromMap(config)
	if err != nil {
		return nil, err
	}
	return &Executor{cfg: cfg, credentials: credentials}, nil
}

func (e *Executor) client(ctx context.Context) (*awss3.Client, error) {
	accessKey, _ := e.credentials["access_key"].(string)
	secretKey, _ := e.credentials["secret_key"].(string)

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(e.cfg.Region),
	}
	if accessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if e.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(e.cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func (e *Executor) Execute(ctx context.Context, op *connector.Operation) (*connector.Result, error) {
	client, err := e.client(ctx)
	if err != nil {
		return nil, err
	}

	kind := op.Kind
	if kind == "" {
		// Bare requests list the bucket; requests naming a key fetch it.
		if strings.TrimLeft(op.Endpoint, "/") == "" {
			kind = "list"
		} else {
			kind = "get"
		}
	}

	switch kind {
	case "list":
		return e.list(ctx, client, op)
	case "get":
		return e.get(ctx, client, op)
	case "head":
		return e.head(ctx, client, op)
	default:
		return nil, fmt.Errorf("unsupported s3 operation %q", op.Kind)
	}
}

func (e *Executor) list(ctx context.Context, client *awss3.Client, op *connector.Operation) (*connector.Result, error) {
	input := &awss3.ListObjectsV2Input{
		Bucket:  aws.String(e.cfg.Bucket),
		MaxKeys: aws.Int32(int32(connector.ClampLimit(op.Limit))),
	}
	if prefix := op.QueryParams.Get("prefix"); prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	out, err := client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}

	result := &connector.Result{Status: "success", Rows: make([]map[string]any, 0)}
	for _, obj := range out.Contents {
		result.Rows = append(result.Rows, map[string]any{
			"key":           aws.ToString(obj.Key),
			"size":          aws.ToInt64(obj.Size),
			"last_modified": aws.ToTime(obj.LastModified),
			"etag":          strings.Trim(aws.ToString(obj.ETag), `"`),
		})
		result.RowCount++
	}
	return result, nil
}

func (e *Executor) get(ctx context.Context, client *awss3.Client, op *connector.Operation) (*connector.Result, error) {
	key := strings.TrimLeft(op.Endpoint, "/")
	if key == "" {
		return nil, fmt.Errorf("object key is required")
	}

	out, err := client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(e.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching object: %w", err)
	}
	defer out.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(out.Body, maxObjectBytes))
	if err != nil {
		return nil, fmt.Errorf("reading object body: %w", err)
	}

	result := &connector.Result{
		Status:      "success",
		ContentType: aws.ToString(out.ContentType),
	}
	if utf8.Valid(payload) {
		result.Data = string(payload)
	} else {
		result.Data = map[string]any{
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString(payload),
		}
	}
	return result, nil
}

func (e *Executor) head(ctx context.Context, client *awss3.Client, op *connector.Operation) (*connector.Result, error) {
	key := strings.TrimLeft(op.Endpoint, "/")
	if key == "" {
		return nil, fmt.Errorf("object key is required")
	}

	out, err := client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(e.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("heading object: %w", err)
	}

	return &connector.Result{
		Status:      "success",
		ContentType: aws.ToString(out.ContentType),
		Data: map[string]any{
			"key":            key,
			"content_length": aws.ToInt64(out.ContentLength),
			"last_modified":  aws.ToTime(out.LastModified),
			"etag":           strings.Trim(aws.ToString(out.ETag), `"`),
		},
	}, nil
}
