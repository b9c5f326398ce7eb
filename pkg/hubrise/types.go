package hubrise

import "encoding/json"

// Order statuses accepted by the HubRise order lifecycle.
const (
	StatusNew                = "new"
	StatusReceived           = "received"
	StatusAccepted           = "accepted"
	StatusInPreparation      = "in_preparation"
	StatusAwaitingShipment   = "awaiting_shipment"
	StatusAwaitingCollection = "awaiting_collection"
	StatusInDelivery         = "in_delivery"
	StatusCompleted          = "completed"
	StatusRejected           = "rejected"
	StatusCancelled          = "cancelled"
	StatusDeliveryFailed     = "delivery_failed"
)

// Service types for an order.
const (
	ServiceDelivery   = "delivery"
	ServiceCollection = "collection"
	ServiceEatIn      = "eat_in"
)

// Customer carries the HubRise customer fields the backend reads.
// Money fields throughout are strings like "8.50 GBP", as HubRise expects.
type Customer struct {
	Email         string `json:"email,omitempty"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Address1      string `json:"address_1,omitempty"`
	Address2      string `json:"address_2,omitempty"`
	PostalCode    string `json:"postal_code,omitempty"`
	City          string `json:"city,omitempty"`
	Country       string `json:"country,omitempty"`
	DeliveryNotes string `json:"delivery_notes,omitempty"`
}

// OrderItem is a single line of an order.
type OrderItem struct {
	ProductName string `json:"product_name"`
	SkuName     string `json:"sku_name,omitempty"`
	SkuRef      string `json:"sku_ref,omitempty"`
	Price       string `json:"price"`
	Quantity    string `json:"quantity"`
	Subtotal    string `json:"subtotal,omitempty"`
}

// Order models a HubRise order with typed known fields plus an extension
// map. HubRise payloads carry many optional and evolving fields; unknown
// keys survive a decode/encode round trip through Extra instead of being
// dropped, so forwarding stays forward-compatible without giving up type
// safety on the fields this backend actually reads.
type Order struct {
	ID          string      `json:"-"`
	Status      string      `json:"-"`
	ServiceType string      `json:"-"`
	PrivateRef  string      `json:"-"`
	Total       string      `json:"-"`
	Customer    *Customer   `json:"-"`
	Items       []OrderItem `json:"-"`

	// Extra holds pass-through fields not modeled above.
	Extra map[string]json.RawMessage `json:"-"`
}

// orderJSON is the wire shape of the known order fields.
type orderJSON struct {
	ID          string      `json:"id,omitempty"`
	Status      string      `json:"status,omitempty"`
	ServiceType string      `json:"service_type,omitempty"`
	PrivateRef  string      `json:"private_ref,omitempty"`
	Total       string      `json:"total,omitempty"`
	Customer    *Customer   `json:"customer,omitempty"`
	Items       []OrderItem `json:"items,omitempty"`
}

// knownOrderFields are the keys owned by the typed struct; everything else
// lands in Extra.
var knownOrderFields = map[string]struct{}{
	"id": {}, "status": {}, "service_type": {}, "private_ref": {},
	"total": {}, "customer": {}, "items": {},
}

// UnmarshalJSON decodes known fields into the struct and preserves the
// rest in Extra.
func (o *Order) UnmarshalJSON(data []byte) error {
	var known orderJSON
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	o.ID = known.ID
	o.Status = known.Status
	o.ServiceType = known.ServiceType
	o.PrivateRef = known.PrivateRef
	o.Total = known.Total
	o.Customer = known.Customer
	o.Items = known.Items

	o.Extra = nil
	for key, value := range raw {
		if _, ok := knownOrderFields[key]; ok {
			continue
		}
		if o.Extra == nil {
			o.Extra = make(map[string]json.RawMessage)
		}
		o.Extra[key] = value
	}
	return nil
}

// MarshalJSON merges the typed fields with Extra. Typed fields win on key
// collision.
func (o Order) MarshalJSON() ([]byte, error) {
	merged := make(map[string]json.RawMessage, len(o.Extra)+7)
	for key, value := range o.Extra {
		merged[key] = value
	}

	known, err := json.Marshal(orderJSON{
		ID:          o.ID,
		Status:      o.Status,
		ServiceType: o.ServiceType,
		PrivateRef:  o.PrivateRef,
		Total:       o.Total,
		Customer:    o.Customer,
		Items:       o.Items,
	})
	if err != nil {
		return nil, err
	}

	var knownMap map[string]json.RawMessage
	if err := json.Unmarshal(known, &knownMap); err != nil {
		return nil, err
	}
	for key, value := range knownMap {
		merged[key] = value
	}

	return json.Marshal(merged)
}
