// Package message turns a validated order and shipment into the chat text.
package message

import (
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/melinotify/internal/meli"
)

const (
	fallbackBuyerLabel = "Cliente"
	fallbackAddress    = "Dirección no disponible"

	fulfillmentHeader = "MercadoLibre ha enviado desde Full"
	prepareHeader     = "Debes preparar el siguiente pedido"
)

// Compose is a pure transform. Blocks are separated by blank lines while
// building; empty lines are dropped before the final join.
func Compose(order meli.Order, shipment meli.Shipment) string {
	buyerName := buyerDisplayName(order.Buyer)

	receiverName := buyerName
	addressLine := fallbackAddress
	city, state := "", ""
	if addr := shipment.ReceiverAddress; addr != nil {
		receiverName = addr.ReceiverName
		addressLine = addr.AddressLine
		city, state = addr.City, addr.State
	}

	header := prepareHeader
	if shipment.LogisticType == meli.LogisticTypeFulfillment {
		header = fulfillmentHeader
	}

	lines := []string{
		header,
		"",
		"Cliente: " + buyerName,
	}
	if receiverName != "" && receiverName != buyerName {
		lines = append(lines, "Recibe: "+receiverName)
	}
	lines = append(lines, "", "Dirección: "+addressLine)
	if city != "" || state != "" {
		lines = append(lines, city+", "+state)
	}
	lines = append(lines, "", "Productos:")
	for _, item := range shipment.Items {
		lines = append(lines, fmt.Sprintf("• %d× %s", item.Quantity, item.Description))
	}

	kept := lines[:0]
	for _, line := range lines {
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// buyerDisplayName prefers "First Last", appending the nickname in
// parentheses only when both are present; otherwise the nickname alone,
// otherwise the generic label.
func buyerDisplayName(buyer *meli.Buyer) string {
	if buyer == nil {
		return fallbackBuyerLabel
	}

	var parts []string
	if buyer.FirstName != "" {
		parts = append(parts, buyer.FirstName)
	}
	if buyer.LastName != "" {
		parts = append(parts, buyer.LastName)
	}
	fullName := strings.TrimSpace(strings.Join(parts, " "))

	switch {
	case fullName != "" && buyer.Nickname != "":
		return fmt.Sprintf("%s (%s)", fullName, buyer.Nickname)
	case fullName != "":
		return fullName
	case buyer.Nickname != "":
		return buyer.Nickname
	default:
		return fallbackBuyerLabel
	}
}
