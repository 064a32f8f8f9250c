package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"gatherhub/collab-portal/collab-portal-backend/internal/apperr"
)

// DynamoAPI is the part of the DynamoDB client the connection store uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Connection is one API Gateway websocket connection of a user.
type Connection struct {
	UserID       string `dynamodbav:"user_id"`
	ConnectionID string `dynamodbav:"connection_id"`
	ConnectedAt  int64  `dynamodbav:"connected_at"`
	// ExpiresAt is the table's TTL attribute.
	ExpiresAt int64 `dynamodbav:"expires_at"`
}

// ConnectionStore keeps the live connection ids of each user in a DynamoDB
// table keyed by (user_id, connection_id).
type ConnectionStore struct {
	api   DynamoAPI
	table string
	ttl   time.Duration
	now   func() time.Time
}

func NewConnectionStore(api DynamoAPI, table string) *ConnectionStore {
	return &ConnectionStore{api: api, table: table, ttl: 24 * time.Hour, now: time.Now}
}

// Add records a connection.
func (s *ConnectionStore) Add(ctx context.Context, userID, connectionID string) error {
	if userID == "" || connectionID == "" {
		return apperr.Validation("user and connection id are required")
	}
	now := s.now()
	item, err := attributevalue.MarshalMap(Connection{
		UserID:       userID,
		ConnectionID: connectionID,
		ConnectedAt:  now.Unix(),
		ExpiresAt:    now.Add(s.ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal connection: %w", err)
	}
	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(s.table), Item: item}); err != nil {
		return apperr.Upstream("store push connection", err)
	}
	return nil
}

// Remove deletes a connection. Removing an unknown connection is not an error.
func (s *ConnectionStore) Remove(ctx context.Context, userID, connectionID string) error {
	key, err := attributevalue.MarshalMap(map[string]string{"user_id": userID, "connection_id": connectionID})
	if err != nil {
		return fmt.Errorf("failed to marshal connection key: %w", err)
	}
	if _, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{TableName: aws.String(s.table), Key: key}); err != nil {
		return apperr.Upstream("delete push connection", err)
	}
	return nil
}

// List returns the connection ids of a user.
func (s *ConnectionStore) List(ctx context.Context, userID string) ([]string, error) {
	values, err := attributevalue.MarshalMap(map[string]string{":u": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query values: %w", err)
	}

	var ids []string
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    aws.String("user_id = :u"),
		ExpressionAttributeValues: values,
	}
	for {
		out, err := s.api.Query(ctx, input)
		if err != nil {
			return nil, apperr.Upstream("list push connections", err)
		}
		var page []Connection
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal connections: %w", err)
		}
		for _, c := range page {
			ids = append(ids, c.ConnectionID)
		}
		if len(out.LastEvaluatedKey) == 0 {
			return ids, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}
