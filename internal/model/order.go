package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// WhatsAppOrder is a remote order taken over chat
type WhatsAppOrder struct {
	ID           string          `json:"id"`
	CustomerName string          `json:"customerName"`
	PhoneNumber  string          `json:"phoneNumber"`
	Items        []LineItem      `json:"items"`
	Total        decimal.Decimal `json:"total"`
	Status       OrderStatus     `json:"status"`
	CreatedAt    string          `json:"createdAt"`
	Notes        *string         `json:"notes,omitempty"`
}

// Validate checks the minimum an order needs to be accepted
func (o WhatsAppOrder) Validate() error {
	if strings.TrimSpace(o.CustomerName) == "" {
		return &ValidationError{Field: "customerName", Reason: "is required"}
	}
	if len(o.Items) == 0 {
		return &ValidationError{Field: "items", Reason: "at least one item is required"}
	}
	if o.Status != "" && !o.Status.Valid() {
		return &ValidationError{Field: "status", Reason: "unknown status " + string(o.Status)}
	}
	return nil
}

// KitchenItem is the light line a kitchen ticket carries
type KitchenItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// KitchenOrder is a ticket shown on the kitchen display
type KitchenOrder struct {
	ID        string        `json:"id"`
	TableID   string        `json:"tableId"`
	Items     []KitchenItem `json:"items"`
	Status    KitchenStatus `json:"status"`
	Timestamp string        `json:"timestamp"`
	UserID    string        `json:"userId"`
}

// KitchenTicket is what a caller supplies to place a kitchen order
type KitchenTicket struct {
	Table  string        `json:"table"`
	Items  []KitchenItem `json:"items"`
	Origin string        `json:"origin"`
}

// Validate rejects empty tickets
func (t KitchenTicket) Validate() error {
	if strings.TrimSpace(t.Table) == "" {
		return &ValidationError{Field: "table", Reason: "is required"}
	}
	if len(t.Items) == 0 {
		return &ValidationError{Field: "items", Reason: "at least one item is required"}
	}
	for _, item := range t.Items {
		if item.Quantity <= 0 {
			return &ValidationError{Field: "items", Reason: "quantity must be positive for " + item.Name}
		}
	}
	return nil
}
