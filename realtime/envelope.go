package realtime

// Envelope is the wire format for all server push messages. Envelopes are
// consumed and dispatched, never persisted.
type Envelope struct {
	Type      string         `json:"type"`
	Message   string         `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// Server → client message types.
const (
	TypeConnected          = "connected"
	TypePing               = "ping"
	TypeAccountDeactivated = "account_deactivated"
	TypeAccountReactivated = "account_reactivated"
	TypeProductChanged     = "product_changed"
	TypeSaleCompleted      = "sale_completed"
	TypeRefundProcessed    = "refund_processed"
	TypeCustomerChanged    = "customer_changed"
	TypeInventoryChanged   = "inventory_changed"
)
