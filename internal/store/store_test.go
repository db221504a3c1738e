package store

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo keeps items in memory keyed by PK|SK.
type fakeDynamo struct {
	items map[string]map[string]types.AttributeValue
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func keyOf(k map[string]types.AttributeValue) string {
	return k["PK"].(*types.AttributeValueMemberS).Value + "|" + k["SK"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.items[keyOf(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	delete(f.items, keyOf(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func stores(t *testing.T, now func() time.Time) map[string]ShareStore {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	fs.now = now
	ds := NewDynamoStore(newFakeDynamo(), "shares")
	ds.now = now
	return map[string]ShareStore{"file": fs, "dynamo": ds}
}

func TestShareStore_RoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	clock := time.Unix(1_700_000_000, 0)
	now := func() time.Time { return clock }

	for name, s := range stores(t, now) {
		t.Run(name, func(t *testing.T) {
			rec := &ShareRecord{ID: "photo_1_deadbeef", Key: "shares/photo_1_deadbeef.png", ContentType: "image/png", Size: 42}
			if err := s.PutShare(ctx, rec); err != nil {
				t.Fatal(err)
			}
			if rec.CreatedAt != clock.Unix() || rec.ExpiresAt != clock.Add(DefaultShareTTL).Unix() {
				t.Errorf("defaults not filled: %+v", rec)
			}

			got, err := s.GetShare(ctx, rec.ID)
			if err != nil || got == nil {
				t.Fatalf("GetShare = %v, %v", got, err)
			}
			if *got != *rec {
				t.Errorf("GetShare = %+v, want %+v", got, rec)
			}

			missing, err := s.GetShare(ctx, "photo_2_00000000")
			if err != nil || missing != nil {
				t.Errorf("missing record = %v, %v", missing, err)
			}

			clock = clock.Add(DefaultShareTTL)
			expired, err := s.GetShare(ctx, rec.ID)
			if err != nil || expired != nil {
				t.Errorf("expired record = %v, %v", expired, err)
			}
			clock = time.Unix(1_700_000_000, 0)

			if err := s.DeleteShare(ctx, rec.ID); err != nil {
				t.Fatal(err)
			}
			if got, _ := s.GetShare(ctx, rec.ID); got != nil {
				t.Error("record survived delete")
			}
			if err := s.DeleteShare(ctx, rec.ID); err != nil {
				t.Errorf("deleting twice: %v", err)
			}
		})
	}
}

func TestDynamoStore_KeyLayout(t *testing.T) {
	fake := newFakeDynamo()
	s := NewDynamoStore(fake, "shares")
	if err := s.PutShare(context.Background(), &ShareRecord{ID: "photo_9_abcdef01", ExpiresAt: 123}); err != nil {
		t.Fatal(err)
	}
	item, ok := fake.items["SHARE#photo_9_abcdef01|META"]
	if !ok {
		t.Fatalf("items = %v", fake.items)
	}
	ttl, ok := item["expiresAt"].(*types.AttributeValueMemberN)
	if !ok || ttl.Value != "123" {
		t.Errorf("expiresAt attribute = %#v", item["expiresAt"])
	}
}

func TestShareRecord_Expired(t *testing.T) {
	now := time.Unix(100, 0)
	tests := []struct {
		expiresAt int64
		want      bool
	}{
		{0, false},
		{99, true},
		{100, true},
		{101, false},
	}
	for _, tt := range tests {
		r := ShareRecord{ExpiresAt: tt.expiresAt}
		if got := r.Expired(now); got != tt.want {
			t.Errorf("Expired(expiresAt=%d) = %v, want %v", tt.expiresAt, got, tt.want)
		}
	}
}
