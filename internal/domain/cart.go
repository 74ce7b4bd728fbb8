package domain

// Quantity bounds for a single cart line.
const (
	MinLineQuantity = 1
	MaxLineQuantity = 10
)

// CartLine is one product entry in a user's cart. RemoteRecordID is empty until
// the line has been stored remotely.
type CartLine struct {
	ProductID      int    `json:"productId"`
	Title          string `json:"title"`
	Image          string `json:"image"`
	UnitPrice      string `json:"unitPrice"`
	Quantity       int    `json:"quantity"`
	RemoteRecordID string `json:"remoteRecordId,omitempty"`
}

// ClampQuantity bounds q to [MinLineQuantity, MaxLineQuantity].
func ClampQuantity(q int) int {
	if q < MinLineQuantity {
		return MinLineQuantity
	}
	if q > MaxLineQuantity {
		return MaxLineQuantity
	}
	return q
}
