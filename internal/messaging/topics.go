package messaging

// TopicOrderPlaced carries domain.OrderPlacedEvent, keyed by order id.
const TopicOrderPlaced = "order.placed"

const (
	headerEventType   = "event-type"
	headerContentType = "content-type"
)
