// Package events publishes photobooth domain events to EventBridge.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	eventbridgetypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/rs/zerolog/log"
)

// Source is the EventBridge source of every event.
const Source = "fish-photobooth"

// DetailTypeShareCreated is the detail type of ShareCreated events.
const DetailTypeShareCreated = "ShareCreated"

// ShareCreated is emitted after a share is stored.
type ShareCreated struct {
	ShareID   string `json:"shareId"`
	URL       string `json:"url"`
	Backend   string `json:"backend"`
	Size      int64  `json:"size"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresAt int64  `json:"expiresAt"`
}

// PutEventsAPI is the EventBridge call the publisher makes.
type PutEventsAPI interface {
	PutEvents(ctx context.Context, in *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// Publisher sends events to one bus. An empty bus name means the account's
// default bus.
type Publisher struct {
	client PutEventsAPI
	bus    string
}

// NewPublisher returns a publisher for bus.
func NewPublisher(client PutEventsAPI, bus string) *Publisher {
	return &Publisher{client: client, bus: bus}
}

// ShareCreated publishes ev. A rejected entry is an error.
func (p *Publisher) ShareCreated(ctx context.Context, ev ShareCreated) error {
	detail, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal ShareCreated: %w", err)
	}

	entry := eventbridgetypes.PutEventsRequestEntry{
		Source:     aws.String(Source),
		DetailType: aws.String(DetailTypeShareCreated),
		Detail:     aws.String(string(detail)),
	}
	if p.bus != "" {
		entry.EventBusName = aws.String(p.bus)
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []eventbridgetypes.PutEventsRequestEntry{entry},
	})
	if err != nil {
		log.Error().Err(err).Str("shareId", ev.ShareID).Msg("EventBridge PutEvents failed")
		return fmt.Errorf("PutEvents: %w", err)
	}

	if result.FailedEntryCount > 0 {
		for i, e := range result.Entries {
			if e.ErrorCode != nil || e.ErrorMessage != nil {
				log.Error().
					Int("index", i).
					Str("errorCode", aws.ToString(e.ErrorCode)).
					Str("errorMessage", aws.ToString(e.ErrorMessage)).
					Str("shareId", ev.ShareID).
					Msg("EventBridge PutEvents entry failed")
				return fmt.Errorf("PutEvents entry %d failed: %s - %s", i, aws.ToString(e.ErrorCode), aws.ToString(e.ErrorMessage))
			}
		}
	}

	log.Debug().Str("shareId", ev.ShareID).Str("bus", p.bus).Msg("ShareCreated emitted to EventBridge")
	return nil
}
