package cloudwatch

import (
	"context"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

const (
	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
)

// AWSConfig - общие параметры подключения к CloudWatch и CloudWatch Logs
type AWSConfig struct {
	Region          string
	Endpoint        string // LocalStack
	AccessKeyID     string
	SecretAccessKey string
}

func buildAWSConfig(ctx context.Context, c AWSConfig) (aws.Config, error) {
	optFns := []func(*config.LoadOptions) error{
		config.WithRegion(c.Region),
	}

	if c.AccessKeyID != "" && c.SecretAccessKey != "" {
		optFns = append(optFns, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, err
	}

	if c.Endpoint != "" {
		cfg.BaseEndpoint = aws.String(c.Endpoint)
	}

	return cfg, nil
}

// withRetry повторяет вызов AWS с экспоненциальной задержкой.
// retryIf решает, стоит ли повторять; nil - повторять любую ошибку.
func withRetry(ctx context.Context, fn func() error, retryIf func(error) bool) error {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(maxRetries),
		retry.Delay(initialBackoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	}
	if retryIf != nil {
		opts = append(opts, retry.RetryIf(retryIf))
	}

	return retry.New(opts...).Do(fn)
}
