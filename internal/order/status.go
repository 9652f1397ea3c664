package order

type Status string

const (
	StatusOrdered        Status = "Ordered"
	StatusProcessing     Status = "Processing"
	StatusShipped        Status = "Shipped"
	StatusOutForDelivery Status = "OutForDelivery"
	StatusDelivered      Status = "Delivered"
	StatusCancelled      Status = "Cancelled"
)

// ordinal positions along the delivery path. Cancelled sits outside the
// path and is handled separately.
var statusOrdinal = map[Status]int{
	StatusOrdered:        0,
	StatusProcessing:     1,
	StatusShipped:        2,
	StatusOutForDelivery: 3,
	StatusDelivered:      4,
}

var deliveryPath = []Status{
	StatusOrdered, StatusProcessing, StatusShipped, StatusOutForDelivery, StatusDelivered,
}

func (s Status) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := statusOrdinal[s]
	return ok
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition is the single authority on status legality. Cancelled is
// reachable from any non-terminal state; otherwise the target ordinal must
// not be less than the current one.
func CanTransition(current, target Status) bool {
	if current.Terminal() {
		return false
	}
	if target == StatusCancelled {
		return true
	}
	ti, ok := statusOrdinal[target]
	if !ok {
		return false
	}
	ci, ok := statusOrdinal[current]
	if !ok {
		return false
	}
	return ti >= ci
}

// pathBetween lists the statuses the timeline must record when moving from
// current to target, target included. A jump over intermediate statuses
// materializes them so the timeline always shows every status up to the
// current one as done.
func pathBetween(current, target Status) []Status {
	if target == StatusCancelled {
		return []Status{StatusCancelled}
	}
	ci, ti := statusOrdinal[current], statusOrdinal[target]
	steps := make([]Status, 0, ti-ci)
	for i := ci + 1; i <= ti; i++ {
		steps = append(steps, deliveryPath[i])
	}
	return steps
}
