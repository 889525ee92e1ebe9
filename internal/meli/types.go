// Package meli talks to the MercadoLibre API. Every response body crosses a
// schema-validating parse function exactly once; downstream code only ever
// sees the typed results.
package meli

import (
	"encoding/json"
	"regexp"

	"github.com/md-rashed-zaman/melinotify/internal/fault"
)

type Buyer struct {
	FirstName string
	LastName  string
	Nickname  string
}

type Shipping struct {
	ID     int64
	Status string
}

type Order struct {
	ID       int64
	Status   string
	Shipping *Shipping
	Buyer    *Buyer
}

type ShipmentItem struct {
	Quantity    int64
	Description string
}

type Address struct {
	ReceiverName string
	AddressLine  string
	City         string
	State        string
}

type Shipment struct {
	ID              int64
	Status          string
	LogisticType    string
	Items           []ShipmentItem
	ReceiverAddress *Address
}

// LogisticTypeFulfillment is the handling mode where the marketplace's own
// warehouse ships the item.
const LogisticTypeFulfillment = "fulfillment"

var orderResourcePattern = regexp.MustCompile(`/orders/(\d+)`)

// OrderIDFromResource extracts the numeric order id from a webhook resource
// path. Non-order resources report false.
func OrderIDFromResource(resource string) (string, bool) {
	m := orderResourcePattern.FindStringSubmatch(resource)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ParseOrder validates the order response shape: numeric id, string status,
// and a well-typed shipping sub-object when present.
func ParseOrder(data []byte) (Order, error) {
	var raw struct {
		ID       *int64  `json:"id"`
		Status   *string `json:"status"`
		Shipping *struct {
			ID     *int64  `json:"id"`
			Status *string `json:"status"`
		} `json:"shipping"`
		Buyer *struct {
			FirstName *string `json:"first_name"`
			LastName  *string `json:"last_name"`
			Nickname  *string `json:"nickname"`
		} `json:"buyer"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Order{}, fault.WrapValidation(err, "invalid order response")
	}
	if raw.ID == nil {
		return Order{}, fault.Validation("order response: id must be a number")
	}
	if raw.Status == nil {
		return Order{}, fault.Validation("order response: status must be a string")
	}

	order := Order{ID: *raw.ID, Status: *raw.Status}

	if raw.Shipping != nil {
		if raw.Shipping.ID == nil {
			return Order{}, fault.Validation("order response: shipping.id must be a number")
		}
		if raw.Shipping.Status == nil {
			return Order{}, fault.Validation("order response: shipping.status must be a string")
		}
		order.Shipping = &Shipping{ID: *raw.Shipping.ID, Status: *raw.Shipping.Status}
	}

	if raw.Buyer != nil {
		order.Buyer = &Buyer{
			FirstName: stringOrEmpty(raw.Buyer.FirstName),
			LastName:  stringOrEmpty(raw.Buyer.LastName),
			Nickname:  stringOrEmpty(raw.Buyer.Nickname),
		}
	}

	return order, nil
}

// ParseShipment validates the shipment response shape. shipping_items must
// be an array and receiver_address, when present, a structured object.
func ParseShipment(data []byte) (Shipment, error) {
	var raw struct {
		ID           *int64  `json:"id"`
		Status       *string `json:"status"`
		LogisticType *string `json:"logistic_type"`
		Items        *[]struct {
			Quantity    *int64  `json:"quantity"`
			Description *string `json:"description"`
		} `json:"shipping_items"`
		ReceiverAddress *struct {
			ReceiverName *string `json:"receiver_name"`
			AddressLine  *string `json:"address_line"`
			City         *struct {
				Name *string `json:"name"`
			} `json:"city"`
			State *struct {
				Name *string `json:"name"`
			} `json:"state"`
		} `json:"receiver_address"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Shipment{}, fault.WrapValidation(err, "invalid shipment response")
	}
	if raw.ID == nil {
		return Shipment{}, fault.Validation("shipment response: id must be a number")
	}
	if raw.Status == nil {
		return Shipment{}, fault.Validation("shipment response: status must be a string")
	}
	if raw.LogisticType == nil {
		return Shipment{}, fault.Validation("shipment response: logistic_type must be a string")
	}
	if raw.Items == nil {
		return Shipment{}, fault.Validation("shipment response: shipping_items must be an array")
	}

	shipment := Shipment{
		ID:           *raw.ID,
		Status:       *raw.Status,
		LogisticType: *raw.LogisticType,
		Items:        make([]ShipmentItem, 0, len(*raw.Items)),
	}

	for _, item := range *raw.Items {
		if item.Quantity == nil {
			return Shipment{}, fault.Validation("shipment response: shipping_items[].quantity must be a number")
		}
		shipment.Items = append(shipment.Items, ShipmentItem{
			Quantity:    *item.Quantity,
			Description: stringOrEmpty(item.Description),
		})
	}

	if raw.ReceiverAddress != nil {
		addr := Address{
			ReceiverName: stringOrEmpty(raw.ReceiverAddress.ReceiverName),
			AddressLine:  stringOrEmpty(raw.ReceiverAddress.AddressLine),
		}
		if raw.ReceiverAddress.City != nil {
			addr.City = stringOrEmpty(raw.ReceiverAddress.City.Name)
		}
		if raw.ReceiverAddress.State != nil {
			addr.State = stringOrEmpty(raw.ReceiverAddress.State.Name)
		}
		shipment.ReceiverAddress = &addr
	}

	return shipment, nil
}

type tokenResponse struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

func parseTokenResponse(data []byte) (tokenResponse, error) {
	var raw struct {
		AccessToken  *string `json:"access_token"`
		RefreshToken *string `json:"refresh_token"`
		ExpiresIn    *int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return tokenResponse{}, fault.WrapValidation(err, "invalid token response")
	}
	if raw.AccessToken == nil || raw.RefreshToken == nil || raw.ExpiresIn == nil {
		return tokenResponse{}, fault.Validation("token response: access_token, refresh_token and expires_in are required")
	}
	return tokenResponse{
		AccessToken:  *raw.AccessToken,
		RefreshToken: *raw.RefreshToken,
		ExpiresIn:    *raw.ExpiresIn,
	}, nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
