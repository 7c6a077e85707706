package event

import "time"

// Type identifies an event on the bus.
type Type string

const (
	// TypeAuthRequired is published when the session has been invalidated
	// and the user must log in again.
	TypeAuthRequired Type = "auth.required"

	// TypeAccountDisabled is published when the server reports the account
	// has been deactivated.
	TypeAccountDisabled Type = "account.disabled"

	// TypeAccountReactivated is informational only; it does not
	// re-authenticate.
	TypeAccountReactivated Type = "account.reactivated"

	// TypeDataChanged carries a server-side data change so interested
	// consumers can refresh without polling.
	TypeDataChanged Type = "data.changed"
)

// Entities carried by TypeDataChanged events.
const (
	EntityProduct   = "product"
	EntitySale      = "sale"
	EntityRefund    = "refund"
	EntityCustomer  = "customer"
	EntityInventory = "inventory"
)

// Event is the payload fanned out to subscribers. Events are transient;
// they are dispatched and never persisted.
type Event struct {
	Type      Type
	Entity    string
	Message   string
	Data      map[string]any
	Timestamp time.Time
}
