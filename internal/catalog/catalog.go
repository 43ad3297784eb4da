// Package catalog holds the baseline catalog merged by reconciliation and the
// demo collections a fresh local store starts from.
package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"retail-service/internal/model"
)

// Baseline is the fixed set of records reconciliation merges into live data
type Baseline struct {
	Products []model.Product
	Assets   []model.Asset
}

// Default returns the shipped baseline catalog
func Default() Baseline {
	return Baseline{Products: Products(), Assets: Assets()}
}

func image(url string) *string { return &url }

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Products returns the baseline products with their stable ids
func Products() []model.Product {
	return []model.Product{
		{ID: "p1", Name: "Alfajor de Maicena", Barcode: "779001", Price: money("2.50"), Cost: money("0.80"), Stock: 50, MinStock: 20, Category: model.CategoryAlfajores, Unit: "unid",
			Image: image("https://images.unsplash.com/photo-1598514983088-254e4c29792e?w=500")},
		{ID: "p2", Name: "Alfajor Chocolate Negro", Barcode: "779002", Price: money("3.00"), Cost: money("1.20"), Stock: 15, MinStock: 20, Category: model.CategoryAlfajores, Unit: "unid",
			Image: image("https://images.unsplash.com/photo-1621252062325-1158c56e30de?w=500")},
		{ID: "p3", Name: "Tarta de Frutilla", Barcode: "779003", Price: money("15.00"), Cost: money("8.00"), Stock: 5, MinStock: 2, Category: model.CategoryPastry, Unit: "porción",
			Image: image("https://images.unsplash.com/photo-1565958011703-44f9829ba187?w=500")},
		{ID: "p4", Name: "Café Espresso", Barcode: "990001", Price: money("10.00"), Cost: money("3.50"), Stock: 500, MinStock: 100, Category: model.CategoryHotDrinks, Unit: "taza",
			Image: image("https://images.unsplash.com/photo-1514432324607-a09d9b4aefdd?w=500")},
		{ID: "p5", Name: "Capuchino", Barcode: "990002", Price: money("14.00"), Cost: money("4.90"), Stock: 450, MinStock: 100, Category: model.CategoryHotDrinks, Unit: "taza",
			Image: image("https://images.unsplash.com/photo-1572442388796-11668a67e53d?w=500")},
		{ID: "p6", Name: "Empanada de Carne", Barcode: "880001", Price: money("8.50"), Cost: money("3.40"), Stock: 24, MinStock: 10, Category: model.CategorySavory, Unit: "unid",
			Image: image("https://images.unsplash.com/photo-1604908176997-125f25cc6f3d?w=500")},
		{ID: "p7", Name: "Frappé de Moca", Barcode: "990003", Price: money("18.00"), Cost: money("6.00"), Stock: 100, MinStock: 20, Category: model.CategoryColdDrinks, Unit: "vaso",
			Image: image("https://images.unsplash.com/photo-1577805947697-89e18249d767?w=500")},
	}
}

// Assets returns the baseline fixed assets
func Assets() []model.Asset {
	return []model.Asset{
		{ID: "a1", Name: "Cafetera Industrial Simonelli", Value: money("2500"), PurchaseDate: "2023-01-15", Location: "Barra", Status: model.AssetWorking, QRCode: "ASSET-001"},
		{ID: "a2", Name: "Vitrina Refrigerada", Value: money("1200"), PurchaseDate: "2023-02-01", Location: "Salón", Status: model.AssetWorking, QRCode: "ASSET-002"},
		{ID: "a3", Name: "Tablet Samsung (TPV)", Value: money("300"), PurchaseDate: "2023-06-10", Location: "Caja", Status: model.AssetInRepair, QRCode: "ASSET-003"},
	}
}

// Sales returns the demo sales history relative to now
func Sales(now time.Time) []model.Sale {
	printed := model.DeliveryPrinted
	none := model.DeliveryNone
	sale := func(id string, age time.Duration, total string, method model.PaymentMethod, delivery *model.DeliveryMethod) model.Sale {
		return model.Sale{
			ID:             id,
			Date:           model.ISOTime(now.Add(-age)),
			Items:          []model.LineItem{},
			Total:          money(total),
			PaymentMethod:  method,
			CashierName:    "Carlos Cajero",
			CustomerName:   "Público General",
			DocumentType:   model.DocumentReceipt,
			DeliveryMethod: delivery,
		}
	}
	return []model.Sale{
		sale("s3", 0, "45.00", model.PaymentCash, &none),
		sale("s1", 24*time.Hour, "150.50", model.PaymentCash, &printed),
		sale("s2", 48*time.Hour, "200.00", model.PaymentCard, &printed),
	}
}

// WhatsAppOrders returns the demo chat order backlog
func WhatsAppOrders(now time.Time) []model.WhatsAppOrder {
	products := Products()
	notes := "Sin azúcar en el café"
	return []model.WhatsAppOrder{
		{
			ID:           "w1",
			CustomerName: "Maria Gomez",
			PhoneNumber:  "+5491112345678",
			Items: []model.LineItem{
				{Product: products[0], Quantity: 6},
				{Product: products[3], Quantity: 1},
			},
			Total:     money("25.00"),
			Status:    model.OrderPending,
			CreatedAt: model.ISOTime(now),
			Notes:     &notes,
		},
	}
}
