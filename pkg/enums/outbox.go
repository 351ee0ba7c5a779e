package enums

// OutboxEventType names the domain events written to the outbox.
type OutboxEventType string

const (
	EventOrderPlaced      OutboxEventType = "order.placed"
	EventOrderStatusMoved OutboxEventType = "order.status_moved"
	EventDeliveryProgress OutboxEventType = "delivery.progressed"
	EventOrderCancelled   OutboxEventType = "order.cancelled"
	EventPaymentRecorded  OutboxEventType = "payment.recorded"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder       OutboxAggregateType = "order"
	AggregateSellerOrder OutboxAggregateType = "seller_order"
)

// OutboxStatus tracks publisher progress for an outbox row.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)
