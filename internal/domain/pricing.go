package domain

import "github.com/shopspring/decimal"

// OrderTotals captures the monetary breakdown of an order in minor currency units.
type OrderTotals struct {
	ItemsTotal  int64
	ShippingFee int64
	Tax         int64
	Discount    int64
	GrandTotal  int64
}

// Balanced reports whether GrandTotal equals ItemsTotal + ShippingFee + Tax - Discount.
func (t OrderTotals) Balanced() bool {
	return t.GrandTotal == t.ItemsTotal+t.ShippingFee+t.Tax-t.Discount
}

// ComputeTotals prices the supplied lines. Tax is itemsTotal multiplied by taxRate,
// rounded half-up to whole minor units. The discount is capped so the grand total never
// drops below zero.
func ComputeTotals(items []OrderItem, shippingFee, discount int64, taxRate decimal.Decimal) OrderTotals {
	var itemsTotal int64
	for _, item := range items {
		itemsTotal += item.LineTotal
	}
	tax := decimal.NewFromInt(itemsTotal).Mul(taxRate).Round(0).IntPart()
	if shippingFee < 0 {
		shippingFee = 0
	}
	if discount < 0 {
		discount = 0
	}
	if ceiling := itemsTotal + shippingFee + tax; discount > ceiling {
		discount = ceiling
	}
	return OrderTotals{
		ItemsTotal:  itemsTotal,
		ShippingFee: shippingFee,
		Tax:         tax,
		Discount:    discount,
		GrandTotal:  itemsTotal + shippingFee + tax - discount,
	}
}
