package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/overcast-io/overcast/internal/interfaces"
	"github.com/overcast-io/overcast/pkg/logging"
)

// DynamoDBLockConfig configures the distributed infrastructure lock
type DynamoDBLockConfig struct {
	Table    string
	Region   string
	Endpoint string
	// TTL bounds how long a crashed owner can keep a lock. DynamoDB reaps
	// expired items, and acquisition also treats expired items as free.
	TTL time.Duration
	// PollInterval is how often acquisition retries a held lock
	PollInterval time.Duration
}

// DynamoDBLocker implements interfaces.InfrastructureLocker on a DynamoDB
// table with a conditional put: whoever writes the item owns the lock.
type DynamoDBLocker struct {
	client *dynamodb.Client
	cfg    DynamoDBLockConfig
	owner  string
	logger *logging.Logger
}

// NewDynamoDBLocker builds the locker from ambient AWS credentials
func NewDynamoDBLocker(ctx context.Context, cfg DynamoDBLockConfig) (*DynamoDBLocker, error) {
	if cfg.Table == "" {
		return nil, fmt.Errorf("dynamodb locker requires a table")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &DynamoDBLocker{
		client: client,
		cfg:    cfg,
		owner:  interfaces.NewID("locker"),
		logger: logging.NewLogger("dynamodb-locker"),
	}, nil
}

// NewDynamoDBLockerWithClient injects a prebuilt client; used by integration
// tests pointing at LocalStack.
func NewDynamoDBLockerWithClient(client *dynamodb.Client, cfg DynamoDBLockConfig) *DynamoDBLocker {
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	return &DynamoDBLocker{
		client: client,
		cfg:    cfg,
		owner:  interfaces.NewID("locker"),
		logger: logging.NewLogger("dynamodb-locker"),
	}
}

// Lock implements interfaces.InfrastructureLocker. It polls until the
// conditional put succeeds or the context expires.
func (l *DynamoDBLocker) Lock(ctx context.Context, infrastructureID string) (func(), error) {
	for {
		acquired, err := l.tryAcquire(ctx, infrastructureID)
		if err != nil {
			return nil, err
		}
		if acquired {
			return func() { l.release(infrastructureID) }, nil
		}

		select {
		case <-time.After(l.cfg.PollInterval):
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for infrastructure %s lock: %w", infrastructureID, ctx.Err())
		}
	}
}

func (l *DynamoDBLocker) tryAcquire(ctx context.Context, infrastructureID string) (bool, error) {
	now := time.Now()
	expires := now.Add(l.cfg.TTL).Unix()

	_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.cfg.Table),
		Item: map[string]ddbtypes.AttributeValue{
			"lock_id":    &ddbtypes.AttributeValueMemberS{Value: infrastructureID},
			"owner":      &ddbtypes.AttributeValueMemberS{Value: l.owner},
			"expires_at": &ddbtypes.AttributeValueMemberN{Value: fmt.Sprintf("%d", expires)},
		},
		// Free if the item is absent or its lease expired.
		ConditionExpression: aws.String("attribute_not_exists(lock_id) OR expires_at < :now"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":now": &ddbtypes.AttributeValueMemberN{Value: fmt.Sprintf("%d", now.Unix())},
		},
	})
	if err != nil {
		var conditionFailed *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return false, nil
		}
		return false, fmt.Errorf("failed to acquire lock %s: %w", infrastructureID, err)
	}
	return true, nil
}

// release deletes the lock item if this locker still owns it. Release runs
// detached from the operation's context so shutdown cannot strand locks.
func (l *DynamoDBLocker) release(infrastructureID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := l.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(l.cfg.Table),
		Key: map[string]ddbtypes.AttributeValue{
			"lock_id": &ddbtypes.AttributeValueMemberS{Value: infrastructureID},
		},
		ConditionExpression: aws.String("#o = :owner"),
		ExpressionAttributeNames: map[string]string{
			"#o": "owner",
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":owner": &ddbtypes.AttributeValueMemberS{Value: l.owner},
		},
	})
	if err != nil {
		var conditionFailed *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			// The lease expired and someone else took over; nothing to release.
			return
		}
		l.logger.Warnf("Failed to release lock %s: %v", infrastructureID, err)
	}
}
