package model

import "github.com/shopspring/decimal"

// AssetStatus is the operating condition of a fixed asset
type AssetStatus string

const (
	AssetWorking        AssetStatus = "Funcionando"
	AssetInRepair       AssetStatus = "En Reparación"
	AssetDecommissioned AssetStatus = "Baja"
)

// Asset represents a piece of fixed equipment tagged with a QR label
type Asset struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Value        decimal.Decimal `json:"value"`
	PurchaseDate string          `json:"purchaseDate"`
	Location     string          `json:"location"`
	Status       AssetStatus     `json:"status"`
	QRCode       string          `json:"qrCode"`
}
