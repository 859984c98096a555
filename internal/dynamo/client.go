package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/b-max/backend/pkg/circuitbreaker"
	"github.com/b-max/backend/pkg/logger"
	"github.com/b-max/backend/pkg/retry"
)

var ErrUnavailable = errors.New("dynamodb client not available")

const scanPageSize = 100

// Client wraps the DynamoDB API with the table names, retry policy and
// circuit breaker the rest of the service shares.
type Client struct {
	db           *dynamodb.Client
	tendersTable string
	usersTable   string
	cb           *circuitbreaker.CircuitBreaker
	retryConfig  retry.Config
}

func NewClient(ctx context.Context, region, tendersTable, usersTable string) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	cb := circuitbreaker.NewCircuitBreaker("dynamodb", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       3 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("DynamoDB client initialized",
		zap.String("region", region),
		zap.String("tenders_table", tendersTable),
		zap.String("users_table", usersTable),
	)

	return &Client{
		db:           dynamodb.NewFromConfig(awsCfg),
		tendersTable: tendersTable,
		usersTable:   usersTable,
		cb:           cb,
		retryConfig:  retryConfig,
	}, nil
}

func (c *Client) Connected() bool {
	return c != nil && c.db != nil
}

// ScanTenders reads the full tenders table, following pagination, and
// returns every item as a plain map.
func (c *Client) ScanTenders(ctx context.Context) ([]map[string]any, error) {
	if !c.Connected() {
		return nil, ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var items []map[string]any
	var startKey map[string]types.AttributeValue

	for {
		input := &dynamodb.ScanInput{
			TableName: aws.String(c.tendersTable),
			Limit:     aws.Int32(scanPageSize),
		}
		if startKey != nil {
			input.ExclusiveStartKey = startKey
		}

		out, err := c.scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenders: %w", err)
		}

		for _, item := range out.Items {
			items = append(items, Normalize(item))
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	logger.Debug("Tender table scanned", zap.Int("items", len(items)))

	return items, nil
}

// ScanCategories runs a projection scan over the Category attribute and
// returns the distinct non-empty values, unsorted.
func (c *Client) ScanCategories(ctx context.Context) ([]string, error) {
	if !c.Connected() {
		return nil, ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	seen := make(map[string]struct{})
	var startKey map[string]types.AttributeValue

	for {
		input := &dynamodb.ScanInput{
			TableName:            aws.String(c.tendersTable),
			ProjectionExpression: aws.String("Category"),
		}
		if startKey != nil {
			input.ExclusiveStartKey = startKey
		}

		out, err := c.scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan categories: %w", err)
		}

		for _, item := range out.Items {
			if s, ok := item["Category"].(*types.AttributeValueMemberS); ok {
				if category := strings.TrimSpace(s.Value); category != "" {
					seen[category] = struct{}{}
				}
			}
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	categories := make([]string, 0, len(seen))
	for category := range seen {
		categories = append(categories, category)
	}
	return categories, nil
}

// GetUserByID fetches a user item by its primary key. A miss is (nil, nil).
func (c *Client) GetUserByID(ctx context.Context, userID string) (map[string]any, error) {
	if !c.Connected() {
		return nil, ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var out *dynamodb.GetItemOutput
	err := c.cb.Execute(ctx, func() error {
		var err error
		out, err = retry.DoWithResult(ctx, c.retryConfig, func() (*dynamodb.GetItemOutput, error) {
			return c.db.GetItem(ctx, &dynamodb.GetItemInput{
				TableName: aws.String(c.usersTable),
				Key: map[string]types.AttributeValue{
					"userId": &types.AttributeValueMemberS{Value: userID},
				},
			})
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user %q: %w", userID, err)
	}
	if out.Item == nil {
		return nil, nil
	}
	return Normalize(out.Item), nil
}

// FindUserByEmail scans the users table for a matching email attribute.
// A miss is (nil, nil).
func (c *Client) FindUserByEmail(ctx context.Context, email string) (map[string]any, error) {
	if !c.Connected() {
		return nil, ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	input := &dynamodb.ScanInput{
		TableName:        aws.String(c.usersTable),
		FilterExpression: aws.String("email = :email"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
		},
	}

	out, err := c.scan(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	return Normalize(out.Items[0]), nil
}

func (c *Client) scan(ctx context.Context, input *dynamodb.ScanInput) (*dynamodb.ScanOutput, error) {
	var out *dynamodb.ScanOutput
	err := c.cb.Execute(ctx, func() error {
		var err error
		out, err = retry.DoWithResult(ctx, c.retryConfig, func() (*dynamodb.ScanOutput, error) {
			return c.db.Scan(ctx, input)
		})
		return err
	})
	return out, err
}
