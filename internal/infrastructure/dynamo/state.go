package dynamo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// stateItem is one key of the token state store.
// Scalar keys use Value, set keys use Members. A scalar key exists when its
// item exists, so the empty-string sentinel needs no special encoding. ExpiresAt is the table TTL
// attribute (Unix seconds); DynamoDB deletes lazily, so reads filter too.
type stateItem struct {
	Key       string   `dynamodbav:"pk"`
	Value     string   `dynamodbav:"val,omitempty"`
	Members   []string `dynamodbav:"members,stringset,omitempty"`
	ExpiresAt int64    `dynamodbav:"expires_at,omitempty"`
}

// StateStore is the token state store on a single DynamoDB table.
type StateStore struct {
	client    *dynamodb.Client
	tableName string
	now       func() time.Time
}

func NewStateStore(client *dynamodb.Client, tableName string) *StateStore {
	return &StateStore{client: client, tableName: tableName, now: time.Now}
}

func (s *StateStore) load(ctx context.Context, key string) (*stateItem, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            strKey(attrKey, key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, nil
	}
	var it stateItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal state item: %w", err)
	}
	if expired(it.ExpiresAt, s.now()) {
		return nil, nil
	}
	return &it, nil
}

func (s *StateStore) Get(ctx context.Context, key string) (string, bool, error) {
	it, err := s.load(ctx, key)
	if err != nil || it == nil {
		return "", false, err
	}
	return it.Value, true, nil
}

func (s *StateStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	it := stateItem{Key: key, Value: value}
	if ttl > 0 {
		it.ExpiresAt = s.now().Add(ttl).Unix()
	}
	item, err := attributevalue.MarshalMap(it)
	if err != nil {
		return fmt.Errorf("marshal state item: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	return err
}

func (s *StateStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       strKey(attrKey, key),
	})
	return err
}

func (s *StateStore) AddToSet(ctx context.Context, key, member string) error {
	_, err := s.client.UpdateItem(ctx, addMemberInput(s.tableName, key, member))
	return err
}

func (s *StateStore) SetContains(ctx context.Context, key, member string) (bool, error) {
	it, err := s.load(ctx, key)
	if err != nil || it == nil {
		return false, err
	}
	return slices.Contains(it.Members, member), nil
}

// RemoveFromSet is a conditional update, so the check and the removal
// happen in one request.
func (s *StateStore) RemoveFromSet(ctx context.Context, key, member string) (bool, error) {
	_, err := s.client.UpdateItem(ctx, removeMemberInput(s.tableName, key, member))
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *StateStore) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tableName)})
	return err
}
