package checkout

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/storefront-settlement/internal/domain"
	"github.com/joao-fontenele/storefront-settlement/internal/pricing"
)

const defaultLookupParallelism = 8

type CatalogReader interface {
	Get(ctx context.Context, productID string, variantID *string) (*domain.CatalogLine, error)
}

// Assembler validates requested lines against the live catalog and prices
// them. It never writes.
type Assembler struct {
	catalog     CatalogReader
	parallelism int
}

func NewAssembler(catalog CatalogReader, parallelism int) *Assembler {
	if parallelism < 1 {
		parallelism = defaultLookupParallelism
	}
	return &Assembler{
		catalog:     catalog,
		parallelism: parallelism,
	}
}

type Assembly struct {
	Lines   []domain.PricedLine
	Summary pricing.Summary
}

// Assemble returns either every line priced or the first failing line's error,
// in request order.
func (a *Assembler) Assemble(ctx context.Context, lines []domain.RequestedLine, dealerRate, shippingCost decimal.Decimal) (*Assembly, error) {
	if len(lines) == 0 {
		return nil, domain.NewValidationError(domain.ReasonMalformedRequest, "order must contain at least one item")
	}
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, domain.NewValidationError(domain.ReasonInvalidQuantity, "quantity must be a positive whole number")
		}
	}

	snapshots, err := a.lookup(ctx, lines)
	if err != nil {
		return nil, err
	}

	var (
		totals    pricing.Totals
		requested = make(map[domain.StockKey]int, len(lines))
		priced    = make([]domain.PricedLine, 0, len(lines))
	)

	for i, line := range lines {
		snap := snapshots[i]

		if line.Quantity < snap.MinQuantity {
			return nil, domain.BelowMinimumQuantity(snap.DisplayName, snap.MinQuantity)
		}

		key := line.StockKey()
		requested[key] += line.Quantity
		if requested[key] > snap.AvailableStock {
			return nil, domain.InsufficientStock(snap.DisplayName, snap.AvailableStock)
		}

		res, err := pricing.Price(pricing.Input{
			ListPrice:          snap.ListPrice,
			SalePrice:          snap.SalePrice,
			DealerDiscountRate: dealerRate,
			VATRate:            snap.VATRate,
			Quantity:           line.Quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("price product %s: %w", line.ProductID, err)
		}
		totals.Add(res)

		priced = append(priced, domain.PricedLine{
			ProductID:           line.ProductID,
			VariantID:           line.VariantID,
			VariantInfo:         line.VariantInfo,
			ProductName:         snap.DisplayName,
			Quantity:            line.Quantity,
			UnitPrice:           res.UnitPrice,
			AppliedDiscountRate: pricing.Round2(res.AppliedDiscountRate),
			VATRate:             snap.VATRate,
			LineTotal:           res.LineTotal,
			NetLineTotal:        res.NetLineTotal,
			VATAmount:           res.VATAmount,
			DiscountAmount:      res.DiscountAmount,
		})
	}

	return &Assembly{
		Lines:   priced,
		Summary: totals.Summarize(shippingCost),
	}, nil
}

// lookup reads every line concurrently; lines are independent reads.
func (a *Assembler) lookup(ctx context.Context, lines []domain.RequestedLine) ([]*domain.CatalogLine, error) {
	snapshots := make([]*domain.CatalogLine, len(lines))
	errs := make([]error, len(lines))

	var g errgroup.Group
	g.SetLimit(a.parallelism)
	for i, line := range lines {
		g.Go(func() error {
			snap, err := a.catalog.Get(ctx, line.ProductID, line.VariantID)
			if err == nil && snap == nil {
				err = domain.ProductNotFound(line.ProductID)
			}
			snapshots[i], errs[i] = snap, err
			return err
		})
	}

	if err := g.Wait(); err != nil {
		for _, e := range errs {
			if e != nil {
				return nil, e
			}
		}
	}

	return snapshots, nil
}
