// Package store keeps the share index: one record per shared photo, naming
// where its bytes live and when the share expires.
//
// Two implementations exist. DynamoStore uses a single table keyed by
// PK=SHARE#{id}, SK=META with a TTL attribute (expiresAt) so DynamoDB
// removes stale shares on its own. FileStore keeps one JSON file per share
// under a directory for local runs.
package store

import (
	"context"
	"time"
)

// DefaultShareTTL is how long a share stays reachable when no TTL is
// configured.
const DefaultShareTTL = 24 * time.Hour

// ShareRecord describes a stored share.
type ShareRecord struct {
	ID          string `json:"id" dynamodbav:"id"`
	Key         string `json:"key" dynamodbav:"key"`
	Backend     string `json:"backend" dynamodbav:"backend"`
	ContentType string `json:"contentType" dynamodbav:"contentType"`
	Size        int64  `json:"size" dynamodbav:"size"`
	CreatedAt   int64  `json:"createdAt" dynamodbav:"createdAt"`
	ExpiresAt   int64  `json:"expiresAt" dynamodbav:"expiresAt"`
}

// Expired reports whether the record's expiry has passed at now. A zero
// ExpiresAt never expires.
func (r *ShareRecord) Expired(now time.Time) bool {
	return r.ExpiresAt > 0 && now.Unix() >= r.ExpiresAt
}

// ShareStore persists share records. Methods are safe for concurrent use.
//
// GetShare returns (nil, nil) when the record does not exist or has expired.
// PutShare replaces any record with the same ID.
type ShareStore interface {
	PutShare(ctx context.Context, rec *ShareRecord) error
	GetShare(ctx context.Context, id string) (*ShareRecord, error)
	DeleteShare(ctx context.Context, id string) error
}
