package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product() Product {
	img := "https://img.example/pan.png"
	return Product{
		ID:       "p1",
		Name:     "Alfajor",
		Price:    decimal.RequireFromString("2.50"),
		Cost:     decimal.RequireFromString("1"),
		Stock:    4,
		MinStock: 5,
		Category: CategoryAlfajores,
		Image:    &img,
	}
}

func TestProduct_Validate(t *testing.T) {
	require.NoError(t, product().Validate())

	p := product()
	p.Price = decimal.RequireFromString("-1")
	var validation *ValidationError
	require.ErrorAs(t, p.Validate(), &validation)
	assert.Equal(t, "price", validation.Field)

	p = product()
	p.Name = "  "
	assert.Error(t, p.Validate())
}

func TestProduct_LowStock(t *testing.T) {
	p := product()
	assert.True(t, p.LowStock())
	p.Stock = 5
	assert.False(t, p.LowStock())
}

func TestFreezeItems_DetachesFromCatalog(t *testing.T) {
	p := product()
	items := []LineItem{{Product: p, Quantity: 2}}

	frozen := FreezeItems(items)
	*items[0].Image = "changed"
	items[0].Name = "Otro"

	assert.Equal(t, "Alfajor", frozen[0].Name)
	assert.Equal(t, "https://img.example/pan.png", *frozen[0].Image)
	assert.True(t, ItemsTotal(frozen).Equal(decimal.RequireFromString("5")))
	assert.NotNil(t, FreezeItems(nil))
}

func TestFindProduct(t *testing.T) {
	products := []Product{{ID: "p1", Name: "Pan"}, {ID: "p2", Name: "Leche"}}

	got, ok := FindProduct(products, "p2", "")
	require.True(t, ok)
	assert.Equal(t, "Leche", got.Name)

	got, ok = FindProduct(products, "old", "Pan")
	require.True(t, ok)
	assert.Equal(t, "p1", got.ID)

	_, ok = FindProduct(products, "old", "")
	assert.False(t, ok)
}
