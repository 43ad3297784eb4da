package model

import (
	"github.com/shopspring/decimal"
)

// PaymentMethod is how a sale was paid
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "Efectivo"
	PaymentCard     PaymentMethod = "Tarjeta"
	PaymentTransfer PaymentMethod = "Transferencia"
)

// Valid reports whether m is a known payment method
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer:
		return true
	}
	return false
}

// DocumentType is the fiscal document issued for a sale
type DocumentType string

const (
	DocumentInvoice DocumentType = "FACTURA"
	DocumentReceipt DocumentType = "RECIBO"
	DocumentNone    DocumentType = "NINGUNO"
)

// DeliveryMethod is how the document reached the customer
type DeliveryMethod string

const (
	DeliveryPrinted  DeliveryMethod = "IMPRESO"
	DeliveryEmail    DeliveryMethod = "DIGITAL_EMAIL"
	DeliveryWhatsApp DeliveryMethod = "DIGITAL_WA"
	DeliveryNone     DeliveryMethod = "NONE"
)

// LineItem is a frozen product snapshot plus the quantity sold
type LineItem struct {
	Product
	Quantity int `json:"quantity"`
}

// Subtotal is price times quantity
func (i LineItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// FreezeItems deep-copies line items so later catalog edits never reach them
func FreezeItems(items []LineItem) []LineItem {
	if items == nil {
		return []LineItem{}
	}
	out := make([]LineItem, len(items))
	for i, item := range items {
		out[i] = LineItem{Product: item.Product.Clone(), Quantity: item.Quantity}
	}
	return out
}

// ItemsTotal sums the line item subtotals
func ItemsTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Sale is an immutable record of a completed checkout
type Sale struct {
	ID             string          `json:"id"`
	Date           string          `json:"date"`
	Items          []LineItem      `json:"items"`
	Total          decimal.Decimal `json:"total"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod"`
	CashierName    string          `json:"cashierName"`
	CustomerName   string          `json:"customerName"`
	TaxID          *string         `json:"taxId,omitempty"`
	DocumentType   DocumentType    `json:"documentType"`
	DeliveryMethod *DeliveryMethod `json:"deliveryMethod,omitempty"`
	// OrderID is set on sales created by finalizing a WhatsApp order
	OrderID        string          `json:"orderId,omitempty"`
}

// Validate checks the enums of a sale; the total is not recomputed
func (s Sale) Validate() error {
	if !s.PaymentMethod.Valid() {
		return &ValidationError{Field: "paymentMethod", Reason: "unknown payment method " + string(s.PaymentMethod)}
	}
	switch s.DocumentType {
	case DocumentInvoice, DocumentReceipt, DocumentNone:
	default:
		return &ValidationError{Field: "documentType", Reason: "unknown document type " + string(s.DocumentType)}
	}
	if s.DeliveryMethod != nil {
		switch *s.DeliveryMethod {
		case DeliveryPrinted, DeliveryEmail, DeliveryWhatsApp, DeliveryNone:
		default:
			return &ValidationError{Field: "deliveryMethod", Reason: "unknown delivery method " + string(*s.DeliveryMethod)}
		}
	}
	for _, item := range s.Items {
		if item.Quantity <= 0 {
			return &ValidationError{Field: "items", Reason: "quantity must be positive for " + item.Name}
		}
	}
	return nil
}
