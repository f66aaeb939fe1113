package pubsub

import (
	"context"
	"errors"

	pubsub "cloud.google.com/go/pubsub/v2"
)

// TopicAdapter narrows a v2 Publisher to a blocking publish call so callers
// can be tested against a plain interface.
type TopicAdapter struct {
	pub *pubsub.Publisher
}

func NewTopicAdapter(pub *pubsub.Publisher) *TopicAdapter {
	return &TopicAdapter{pub: pub}
}

// Publish sends one message and waits for the server-assigned ID.
func (a *TopicAdapter) Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error) {
	if a == nil || a.pub == nil {
		return "", errors.New("publisher not initialized")
	}
	result := a.pub.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attributes,
	})
	return result.Get(ctx)
}
