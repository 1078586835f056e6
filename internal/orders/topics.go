package orders

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
	TopicOrderDeleted       = "order.deleted"
)

// Partition key = order id, so all events for one order keep their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
