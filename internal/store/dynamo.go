package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

const (
	pkPrefix = "SHARE#"
	skMeta   = "META"
)

// DynamoAPI is the subset of the DynamoDB client the store calls.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoStore implements ShareStore on a single DynamoDB table.
type DynamoStore struct {
	client    DynamoAPI
	tableName string
	now       func() time.Time
}

var _ ShareStore = (*DynamoStore)(nil)

// NewDynamoStore returns a store writing to tableName.
func NewDynamoStore(client DynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName, now: time.Now}
}

// TableName returns the table the store writes to.
func (s *DynamoStore) TableName() string { return s.tableName }

func sharePK(id string) string { return pkPrefix + id }

func itemKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// putItem marshals data and writes it with its PK and SK.
func (s *DynamoStore) putItem(ctx context.Context, pk, sk string, data interface{}) error {
	item, err := attributevalue.MarshalMap(data)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	for k, v := range itemKey(pk, sk) {
		item[k] = v
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem PK=%s SK=%s: %w", pk, sk, err)
	}
	return nil
}

// getItem reads one item into out. It returns false when the item does not
// exist.
func (s *DynamoStore) getItem(ctx context.Context, pk, sk string, out interface{}) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key:       itemKey(pk, sk),
	})
	if err != nil {
		return false, fmt.Errorf("GetItem PK=%s SK=%s: %w", pk, sk, err)
	}
	if result.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal PK=%s SK=%s: %w", pk, sk, err)
	}
	return true, nil
}

func (s *DynamoStore) deleteItem(ctx context.Context, pk, sk string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.tableName,
		Key:       itemKey(pk, sk),
	})
	if err != nil {
		return fmt.Errorf("DeleteItem PK=%s SK=%s: %w", pk, sk, err)
	}
	return nil
}

func (s *DynamoStore) PutShare(ctx context.Context, rec *ShareRecord) error {
	if rec.CreatedAt == 0 {
		rec.CreatedAt = s.now().Unix()
	}
	if rec.ExpiresAt == 0 {
		rec.ExpiresAt = s.now().Add(DefaultShareTTL).Unix()
	}
	if err := s.putItem(ctx, sharePK(rec.ID), skMeta, rec); err != nil {
		return fmt.Errorf("put share %s: %w", rec.ID, err)
	}
	log.Debug().Str("shareId", rec.ID).Int64("expiresAt", rec.ExpiresAt).Msg("Share persisted to DynamoDB")
	return nil
}

// GetShare treats an expired record as missing; DynamoDB TTL deletion can
// lag expiry by hours.
func (s *DynamoStore) GetShare(ctx context.Context, id string) (*ShareRecord, error) {
	var rec ShareRecord
	found, err := s.getItem(ctx, sharePK(id), skMeta, &rec)
	if err != nil {
		return nil, fmt.Errorf("get share %s: %w", id, err)
	}
	if !found || rec.Expired(s.now()) {
		return nil, nil
	}
	return &rec, nil
}

func (s *DynamoStore) DeleteShare(ctx context.Context, id string) error {
	if err := s.deleteItem(ctx, sharePK(id), skMeta); err != nil {
		return fmt.Errorf("delete share %s: %w", id, err)
	}
	return nil
}
