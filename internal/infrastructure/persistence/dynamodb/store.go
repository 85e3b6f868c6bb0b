package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v5"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dreschagin/qtrack/internal/domain/repository"
)

const (
	attrPK        = "PK"
	attrSK        = "SK"
	attrData      = "data"
	attrUpdatedAt = "updated_at"

	maxAttempts = 5
)

type Config struct {
	TableName       string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	StrongReads     bool
	AutoCreate      bool // создать таблицу при старте (LocalStack)
}

type tableAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Store реализует repository.Store в одной таблице DynamoDB:
// PK = COLLECTION#<name>, SK = ID#<id>, JSON в атрибуте data.
type Store struct {
	client      tableAPI
	tableName   string
	strongReads bool
	delay       time.Duration
}

var _ repository.Store = (*Store)(nil)

func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.TableName) == "" {
		return nil, fmt.Errorf("dynamodb table name is required")
	}
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	accessKeyID := strings.TrimSpace(cfg.AccessKeyID)
	secretAccessKey := strings.TrimSpace(cfg.SecretAccessKey)
	if accessKeyID != "" || secretAccessKey != "" {
		if accessKeyID == "" || secretAccessKey == "" {
			return nil, fmt.Errorf("both dynamodb access key id and secret access key are required for static credentials")
		}
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config for dynamodb: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(options *dynamodb.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			options.BaseEndpoint = &endpoint
		}
	})

	store := newStore(client, cfg)
	if cfg.AutoCreate {
		if err := store.EnsureTable(ctx); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func newStore(client tableAPI, cfg Config) *Store {
	return &Store{
		client:      client,
		tableName:   strings.TrimSpace(cfg.TableName),
		strongReads: cfg.StrongReads,
		delay:       100 * time.Millisecond,
	}
}

// EnsureTable создает таблицу в режиме PAY_PER_REQUEST, если ее нет.
func (s *Store) EnsureTable(ctx context.Context) error {
	_, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: &s.tableName,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: stringPointer(attrPK), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: stringPointer(attrSK), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: stringPointer(attrPK), KeyType: types.KeyTypeHash},
			{AttributeName: stringPointer(attrSK), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})

	var inUse *types.ResourceInUseException
	if err != nil && !errors.As(err, &inUse) {
		return fmt.Errorf("failed to create dynamodb table: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) ([]byte, error) {
	var output *dynamodb.GetItemOutput
	err := s.withRetry(ctx, func() error {
		var err error
		output, err = s.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName:      &s.tableName,
			Key:            key(collection, id),
			ConsistentRead: boolPointer(s.strongReads),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb get %s/%s failed: %w", collection, id, err)
	}
	if len(output.Item) == 0 {
		return nil, repository.ErrNotFound
	}

	return dataOf(output.Item)
}

func (s *Store) Put(ctx context.Context, collection, id string, data []byte) error {
	item := key(collection, id)
	item[attrData] = &types.AttributeValueMemberS{Value: string(data)}
	item[attrUpdatedAt] = &types.AttributeValueMemberN{Value: strconv.FormatInt(time.Now().UnixMilli(), 10)}

	err := s.withRetry(ctx, func() error {
		_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: &s.tableName,
			Item:      item,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("dynamodb put %s/%s failed: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	var output *dynamodb.DeleteItemOutput
	err := s.withRetry(ctx, func() error {
		var err error
		output, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:    &s.tableName,
			Key:          key(collection, id),
			ReturnValues: types.ReturnValueAllOld,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("dynamodb delete %s/%s failed: %w", collection, id, err)
	}
	if len(output.Attributes) == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Scan читает партицию коллекции постранично; порядок - по SK, то есть по id.
func (s *Store) Scan(ctx context.Context, collection string) ([][]byte, error) {
	condition := "#pk = :pk"
	input := &dynamodb.QueryInput{
		TableName:                &s.tableName,
		KeyConditionExpression:   &condition,
		ConsistentRead:           boolPointer(s.strongReads),
		ExpressionAttributeNames: map[string]string{"#pk": attrPK},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: buildPK(collection)},
		},
	}

	result := make([][]byte, 0)
	for {
		var output *dynamodb.QueryOutput
		err := s.withRetry(ctx, func() error {
			var err error
			output, err = s.client.Query(ctx, input)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("dynamodb query %s failed: %w", collection, err)
		}

		for _, item := range output.Items {
			data, err := dataOf(item)
			if err != nil {
				return nil, err
			}
			result = append(result, data)
		}

		if len(output.LastEvaluatedKey) == 0 {
			return result, nil
		}
		input.ExclusiveStartKey = output.LastEvaluatedKey
	}
}

func (s *Store) Close() error {
	return nil
}

// withRetry повторяет только throttling ошибки DynamoDB.
func (s *Store) withRetry(ctx context.Context, fn func() error) error {
	return retry.New(
		retry.Context(ctx),
		retry.Attempts(maxAttempts),
		retry.Delay(s.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isThrottling),
	).Do(fn)
}

func isThrottling(err error) bool {
	var throughput *types.ProvisionedThroughputExceededException
	var limit *types.RequestLimitExceeded
	return errors.As(err, &throughput) || errors.As(err, &limit)
}

func key(collection, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: buildPK(collection)},
		attrSK: &types.AttributeValueMemberS{Value: buildSK(id)},
	}
}

func buildPK(collection string) string {
	return "COLLECTION#" + collection
}

func buildSK(id string) string {
	return "ID#" + id
}

func dataOf(item map[string]types.AttributeValue) ([]byte, error) {
	raw, ok := item[attrData]
	if !ok {
		return nil, fmt.Errorf("missing attribute %s", attrData)
	}
	value, ok := raw.(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("invalid attribute %s", attrData)
	}
	return []byte(value.Value), nil
}

func boolPointer(v bool) *bool {
	return &v
}

func stringPointer(v string) *string {
	return &v
}
