package events

// Topic constants for domain events emitted by the store.
const (
	TopicOrderPlaced        = "order.placed"
	TopicOrderCancelled     = "order.cancelled"
	TopicOrderStatusChanged = "order.status_changed"
	TopicPaymentCompleted   = "payment.completed"
)

// DefaultTopics returns the canonical list of topics. Bus.Emit rejects
// any other topic.
func DefaultTopics() []string {
	return []string{
		TopicOrderPlaced,
		TopicOrderCancelled,
		TopicOrderStatusChanged,
		TopicPaymentCompleted,
	}
}
