package order

import "testing"

func TestCanTransition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		current Status
		target  Status
		want    bool
	}{
		{StatusOrdered, StatusProcessing, true},
		{StatusProcessing, StatusShipped, true},
		{StatusShipped, StatusOutForDelivery, true},
		{StatusOutForDelivery, StatusDelivered, true},
		{StatusOrdered, StatusDelivered, true},
		{StatusOrdered, StatusOrdered, true},

		// backwards is never legal
		{StatusShipped, StatusProcessing, false},
		{StatusDelivered, StatusProcessing, false},

		// Cancelled is reachable from every non-terminal state only
		{StatusOrdered, StatusCancelled, true},
		{StatusOutForDelivery, StatusCancelled, true},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusCancelled, false},

		// terminal states admit nothing
		{StatusDelivered, StatusDelivered, false},
		{StatusCancelled, StatusOrdered, false},

		// unknown targets
		{StatusOrdered, Status("Lost"), false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.current, tc.target); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.current, tc.target, got, tc.want)
		}
	}
}

func TestPathBetween(t *testing.T) {
	t.Parallel()

	steps := pathBetween(StatusOrdered, StatusOutForDelivery)
	want := []Status{StatusProcessing, StatusShipped, StatusOutForDelivery}
	if len(steps) != len(want) {
		t.Fatalf("pathBetween returned %v, want %v", steps, want)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("pathBetween returned %v, want %v", steps, want)
		}
	}

	if steps := pathBetween(StatusShipped, StatusCancelled); len(steps) != 1 || steps[0] != StatusCancelled {
		t.Fatalf("cancellation path = %v, want [Cancelled]", steps)
	}
}
