package pricing

import "github.com/shopspring/decimal"

// Totals accumulates line results into order-level figures.
type Totals struct {
	lineTotal decimal.Decimal
	net       decimal.Decimal
	vat       decimal.Decimal
	discount  decimal.Decimal
}

func (t *Totals) Add(r Result) {
	t.lineTotal = t.lineTotal.Add(r.LineTotal)
	t.net = t.net.Add(r.NetLineTotal)
	t.vat = t.vat.Add(r.VATAmount)
	t.discount = t.discount.Add(r.DiscountAmount)
}

type Summary struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	VATAmount      decimal.Decimal
	LinesTotal     decimal.Decimal
	ShippingCost   decimal.Decimal
	Total          decimal.Decimal
}

// Summarize rounds the accumulated figures for presentation. VATAmount is taken
// as LinesTotal minus the rounded Subtotal so Subtotal + VATAmount always equals
// the sum of line totals to the cent.
func (t *Totals) Summarize(shippingCost decimal.Decimal) Summary {
	lines := Round2(t.lineTotal)
	subtotal := Round2(t.net)
	shipping := Round2(shippingCost)
	return Summary{
		Subtotal:       subtotal,
		DiscountAmount: Round2(t.discount),
		VATAmount:      lines.Sub(subtotal),
		LinesTotal:     lines,
		ShippingCost:   shipping,
		Total:          lines.Add(shipping),
	}
}
