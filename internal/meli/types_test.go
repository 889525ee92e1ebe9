package meli

import (
	"testing"

	"github.com/md-rashed-zaman/melinotify/internal/fault"
)

func TestOrderIDFromResource(t *testing.T) {
	id, ok := OrderIDFromResource("/orders/2000014183891392")
	if !ok || id != "2000014183891392" {
		t.Fatalf("expected id 2000014183891392, got %q (ok=%v)", id, ok)
	}

	if _, ok := OrderIDFromResource("/shipments/1"); ok {
		t.Fatalf("shipment resource must not yield an order id")
	}
	if _, ok := OrderIDFromResource(""); ok {
		t.Fatalf("empty resource must not yield an order id")
	}
}

func TestParseOrderValid(t *testing.T) {
	raw := []byte(`{
		"id": 2000014183891392,
		"status": "paid",
		"shipping": {"id": 44915012221, "status": "ready_to_ship"},
		"buyer": {"first_name": "Ana", "last_name": "Perez", "nickname": "anita"}
	}`)

	order, err := ParseOrder(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ID != 2000014183891392 {
		t.Fatalf("expected id 2000014183891392, got %d", order.ID)
	}
	if order.Shipping == nil || order.Shipping.ID != 44915012221 {
		t.Fatalf("expected shipping id 44915012221, got %+v", order.Shipping)
	}
	if order.Buyer == nil || order.Buyer.Nickname != "anita" {
		t.Fatalf("expected buyer nickname anita, got %+v", order.Buyer)
	}
}

func TestParseOrderWithoutShipping(t *testing.T) {
	order, err := ParseOrder([]byte(`{"id": 1, "status": "paid"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Shipping != nil {
		t.Fatalf("expected nil shipping, got %+v", order.Shipping)
	}
}

func TestParseOrderRejectsBadShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"string id", `{"id": "1", "status": "paid"}`},
		{"missing status", `{"id": 1}`},
		{"numeric status", `{"id": 1, "status": 7}`},
		{"shipping not object", `{"id": 1, "status": "paid", "shipping": "yes"}`},
		{"shipping missing id", `{"id": 1, "status": "paid", "shipping": {"status": "ready"}}`},
		{"not json", `nope`},
	}
	for _, tc := range cases {
		if _, err := ParseOrder([]byte(tc.raw)); !fault.IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestParseShipmentValid(t *testing.T) {
	raw := []byte(`{
		"id": 44915012221,
		"status": "handling",
		"logistic_type": "fulfillment",
		"shipping_items": [
			{"quantity": 2, "description": "Producto A"},
			{"quantity": 1, "description": "Producto B"}
		],
		"receiver_address": {
			"receiver_name": "Ana Perez",
			"address_line": "Calle 123",
			"city": {"name": "CDMX"},
			"state": {"name": "CDMX"}
		}
	}`)

	shipment, err := ParseShipment(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shipment.LogisticType != LogisticTypeFulfillment {
		t.Fatalf("expected fulfillment, got %q", shipment.LogisticType)
	}
	if len(shipment.Items) != 2 || shipment.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items: %+v", shipment.Items)
	}
	if shipment.ReceiverAddress == nil || shipment.ReceiverAddress.City != "CDMX" {
		t.Fatalf("unexpected address: %+v", shipment.ReceiverAddress)
	}
}

func TestParseShipmentRejectsBadShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"missing items", `{"id": 1, "status": "handling", "logistic_type": "xd_drop_off"}`},
		{"items not array", `{"id": 1, "status": "handling", "logistic_type": "x", "shipping_items": "none"}`},
		{"item missing quantity", `{"id": 1, "status": "handling", "logistic_type": "x", "shipping_items": [{"description": "A"}]}`},
		{"receiver_address not object", `{"id": 1, "status": "handling", "logistic_type": "x", "shipping_items": [], "receiver_address": 3}`},
		{"missing logistic_type", `{"id": 1, "status": "handling", "shipping_items": []}`},
	}
	for _, tc := range cases {
		if _, err := ParseShipment([]byte(tc.raw)); !fault.IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestParseShipmentWithoutAddress(t *testing.T) {
	shipment, err := ParseShipment([]byte(`{"id": 1, "status": "handling", "logistic_type": "x", "shipping_items": []}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shipment.ReceiverAddress != nil {
		t.Fatalf("expected nil address, got %+v", shipment.ReceiverAddress)
	}
}

func TestParseTokenResponse(t *testing.T) {
	parsed, err := parseTokenResponse([]byte(`{"access_token": "APP_USR-1", "refresh_token": "TG-2", "expires_in": 21600}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.AccessToken != "APP_USR-1" || parsed.RefreshToken != "TG-2" || parsed.ExpiresIn != 21600 {
		t.Fatalf("unexpected token response: %+v", parsed)
	}

	if _, err := parseTokenResponse([]byte(`{"access_token": "a", "expires_in": 1}`)); !fault.IsValidation(err) {
		t.Fatalf("expected validation error for missing refresh_token, got %v", err)
	}
	if _, err := parseTokenResponse([]byte(`{"access_token": "a", "refresh_token": "b", "expires_in": "soon"}`)); !fault.IsValidation(err) {
		t.Fatalf("expected validation error for string expires_in, got %v", err)
	}
}
