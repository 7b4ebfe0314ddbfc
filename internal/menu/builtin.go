package menu

// Builtin ride-hailing tree. This is the default conversation shipped
// with the gateway; deployments with carrier-specific copy load a JSON
// definition instead (see LoadFile).

// Action keys the builtin tree expects the dispatcher to provide.
const (
	ActionBookRide     = "book_ride"
	ActionCheckBalance = "check_balance"
	ActionRideStatus   = "ride_status"
)

// BuiltinNodes returns the node definitions for the default ride menu.
func BuiltinNodes() (root string, nodes []Node) {
	return "root", []Node{
		{
			Key:  "root",
			Kind: KindMenu,
			Options: []Option{
				{Selector: "1", Label: "Book Ride", Target: "book_pickup"},
				{Selector: "2", Label: "Check Balance", Target: "balance_action"},
				{Selector: "3", Label: "Ride Status", Target: "status_ref"},
			},
		},

		// Booking flow
		{
			Key:       "book_pickup",
			Kind:      KindInput,
			Prompt:    "Enter pickup location:",
			Rule:      InputRule{MinLen: 2, MaxLen: 60},
			Target:    "book_dropoff",
			AnswerKey: "pickup",
			AllowBack: true,
		},
		{
			Key:       "book_dropoff",
			Kind:      KindInput,
			Prompt:    "Enter dropoff location:",
			Rule:      InputRule{MinLen: 2, MaxLen: 60},
			Target:    "book_type",
			AnswerKey: "dropoff",
			AllowBack: true,
		},
		{
			Key:    "book_type",
			Kind:   KindMenu,
			Prompt: "Select ride type:",
			Options: []Option{
				{Selector: "1", Label: "Standard", Target: "book_confirm"},
				{Selector: "2", Label: "XL", Target: "book_confirm"},
			},
			AnswerKey: "ride_type",
			AllowBack: true,
		},
		{
			Key:    "book_confirm",
			Kind:   KindMenu,
			Prompt: "Book {ride_type} ride from {pickup} to {dropoff}?",
			Options: []Option{
				{Selector: "1", Label: "Confirm", Target: "book_action"},
				{Selector: "2", Label: "Cancel", Target: "book_cancelled"},
			},
			AllowBack: true,
		},
		{
			Key:       "book_action",
			Kind:      KindAction,
			ActionKey: ActionBookRide,
			OnSuccess: "book_done",
			OnFailure: "book_failed",
		},
		{
			Key:    "book_done",
			Kind:   KindTerminal,
			Prompt: "Your ride is booked. You will receive an SMS confirmation.",
		},
		{
			Key:    "book_failed",
			Kind:   KindTerminal,
			Prompt: "Sorry, we could not book your ride. Please try again later.",
		},
		{
			Key:    "book_cancelled",
			Kind:   KindTerminal,
			Prompt: "Booking cancelled.",
		},

		// Balance flow
		{
			Key:       "balance_action",
			Kind:      KindAction,
			ActionKey: ActionCheckBalance,
			OnSuccess: "balance_done",
			OnFailure: "balance_failed",
		},
		{
			Key:    "balance_done",
			Kind:   KindTerminal,
			Prompt: "Balance unavailable.",
		},
		{
			Key:    "balance_failed",
			Kind:   KindTerminal,
			Prompt: "Sorry, we could not fetch your balance. Please try again later.",
		},

		// Status flow
		{
			Key:       "status_ref",
			Kind:      KindInput,
			Prompt:    "Enter booking reference:",
			Rule:      InputRule{Numeric: true, MinLen: 1, MaxLen: 12},
			Target:    "status_action",
			AnswerKey: "booking_ref",
			AllowBack: true,
		},
		{
			Key:       "status_action",
			Kind:      KindAction,
			ActionKey: ActionRideStatus,
			OnSuccess: "status_done",
			OnFailure: "status_failed",
		},
		{
			Key:    "status_done",
			Kind:   KindTerminal,
			Prompt: "Status unavailable.",
		},
		{
			Key:    "status_failed",
			Kind:   KindTerminal,
			Prompt: "Sorry, we could not fetch your ride status. Please try again later.",
		},
	}
}

// Builtin constructs the validated default tree.
func Builtin(knownActions []string) (*Tree, error) {
	root, nodes := BuiltinNodes()
	return NewTree(root, nodes, knownActions)
}
