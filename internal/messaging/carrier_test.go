package messaging

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestMessageCarrier(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{{Key: headerEventType, Value: []byte(TopicOrderPlaced)}}}
	carrier := NewMessageCarrier(&msg)

	carrier.Set("traceparent", "00-abc-def-01")
	carrier.Set("traceparent", "00-abc-123-01")

	assert.Equal(t, "00-abc-123-01", carrier.Get("traceparent"))
	assert.Equal(t, TopicOrderPlaced, carrier.Get(headerEventType))
	assert.Empty(t, carrier.Get("missing"))
	assert.ElementsMatch(t, []string{headerEventType, "traceparent"}, carrier.Keys())
	assert.Len(t, msg.Headers, 2)
}
