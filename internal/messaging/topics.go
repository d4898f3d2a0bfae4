package messaging

import "strconv"

const (
	TopicOrderPlaced    = "order.placed"
	TopicOrderCancelled = "order.cancelled"
)

// OrderKey partitions order events by order id so per-order ordering holds.
func OrderKey(orderID int64) string {
	return strconv.FormatInt(orderID, 10)
}
