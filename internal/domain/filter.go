package domain

// FilterBucket names a displayable partition of the enriched order list
type FilterBucket string

const (
	FilterAll               FilterBucket = "all"
	FilterBeforeTransaction FilterBucket = "before_transaction"
	FilterInTransaction     FilterBucket = "in_transaction"
	FilterCompleted         FilterBucket = "completed"
)

// ParseFilterBucket maps a query-string value to a bucket. Unrecognized
// values (including empty) fall back to FilterAll rather than silently
// dropping every order.
func ParseFilterBucket(value string) FilterBucket {
	switch FilterBucket(value) {
	case FilterBeforeTransaction, FilterInTransaction, FilterCompleted, FilterAll:
		return FilterBucket(value)
	default:
		return FilterAll
	}
}

// Matches reports whether an order with the given classified status belongs
// to the bucket. StatusUnknown belongs to no named bucket, only to FilterAll.
func (b FilterBucket) Matches(status StatusKind) bool {
	switch b {
	case FilterBeforeTransaction:
		return status == StatusPending
	case FilterInTransaction:
		return status == StatusAccepted ||
			status == StatusReceived ||
			status == StatusProduced ||
			status == StatusDeliver
	case FilterCompleted:
		return status == StatusRejected || status == StatusEnd
	default:
		return true
	}
}

// FilterOrders returns the orders belonging to the bucket, in input order.
// Pure: no I/O, the input slice is never modified.
func FilterOrders(orders []EnrichedOrder, bucket FilterBucket) []EnrichedOrder {
	filtered := make([]EnrichedOrder, 0, len(orders))
	for _, order := range orders {
		if bucket.Matches(Classify(order.OrderStatus)) {
			filtered = append(filtered, order)
		}
	}
	return filtered
}
