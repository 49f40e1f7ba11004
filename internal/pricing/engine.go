// Package pricing computes tax-inclusive line prices, the realized discount and
// the VAT contained in them. It performs no I/O.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity     = errors.New("quantity must be a positive integer")
	ErrNegativePrice       = errors.New("price must not be negative")
	ErrInvalidDiscountRate = errors.New("discount rate must be between 0 and 100")
	ErrNegativeVATRate     = errors.New("vat rate must not be negative")
)

var hundred = decimal.NewFromInt(100)

type Input struct {
	ListPrice          decimal.Decimal
	SalePrice          decimal.NullDecimal
	DealerDiscountRate decimal.Decimal
	VATRate            decimal.Decimal
	Quantity           int
}

// Result keeps NetLineTotal and VATAmount unrounded so that order totals can be
// summed without compounding rounding error.
type Result struct {
	UnitPrice           decimal.Decimal
	FinalUnitPrice      decimal.Decimal
	AppliedDiscountRate decimal.Decimal
	SalePriceApplied    bool
	LineTotal           decimal.Decimal
	NetLineTotal        decimal.Decimal
	VATAmount           decimal.Decimal
	DiscountAmount      decimal.Decimal
}

func Price(in Input) (Result, error) {
	if in.Quantity < 1 {
		return Result{}, ErrInvalidQuantity
	}
	if in.ListPrice.IsNegative() {
		return Result{}, ErrNegativePrice
	}
	if in.DealerDiscountRate.IsNegative() || in.DealerDiscountRate.GreaterThan(hundred) {
		return Result{}, ErrInvalidDiscountRate
	}
	if in.VATRate.IsNegative() {
		return Result{}, ErrNegativeVATRate
	}

	dealerPrice := in.ListPrice.Mul(decimal.NewFromInt(1).Sub(in.DealerDiscountRate.Div(hundred)))

	res := Result{
		UnitPrice:           in.ListPrice,
		FinalUnitPrice:      dealerPrice,
		AppliedDiscountRate: in.DealerDiscountRate,
	}

	// Strict less-than: a tie keeps the dealer discount attribution.
	if sale := in.SalePrice; sale.Valid && sale.Decimal.IsPositive() && sale.Decimal.LessThan(dealerPrice) {
		res.FinalUnitPrice = sale.Decimal
		res.SalePriceApplied = true
		res.AppliedDiscountRate = in.ListPrice.Sub(sale.Decimal).Div(in.ListPrice).Mul(hundred)
	}

	qty := decimal.NewFromInt(int64(in.Quantity))
	res.LineTotal = Round2(res.FinalUnitPrice.Mul(qty))
	res.DiscountAmount = Round2(in.ListPrice.Mul(qty).Sub(res.LineTotal))
	res.NetLineTotal, res.VATAmount = SplitVAT(res.LineTotal, in.VATRate)

	return res, nil
}

// SplitVAT recovers the net amount and the VAT contained in a tax-inclusive amount.
func SplitVAT(gross, vatRate decimal.Decimal) (net, vat decimal.Decimal) {
	if vatRate.IsZero() {
		return gross, decimal.Zero
	}
	net = gross.Div(decimal.NewFromInt(1).Add(vatRate.Div(hundred)))
	return net, gross.Sub(net)
}

func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
