// Package report derives sales summaries from the order ledger.
package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tillpoint/internal/database/models"
	"tillpoint/internal/order"
)

// SalesSummary aggregates a date range. Cancelled orders are excluded from
// the money columns but still counted.
type SalesSummary struct {
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	OrderCount     int64           `json:"order_count"`
	CancelledCount int64           `json:"cancelled_count"`
	RefundCount    int64           `json:"refund_count"`
	GrossSales     decimal.Decimal `json:"gross_sales"`
	Discounts      decimal.Decimal `json:"discounts"`
	Tax            decimal.Decimal `json:"tax"`
	Refunded       decimal.Decimal `json:"refunded"`
	NetSales       decimal.Decimal `json:"net_sales"`
}

type Service struct {
	store order.Store
}

func NewService(store order.Store) *Service {
	return &Service{store: store}
}

// SalesByRange walks every order in [from, to) and totals face values,
// discounts, tax and refunds. Net sales is gross minus refunds.
func (s *Service) SalesByRange(ctx context.Context, from, to time.Time) (*SalesSummary, error) {
	summary := &SalesSummary{
		From:       from,
		To:         to,
		GrossSales: decimal.Zero,
		Discounts:  decimal.Zero,
		Tax:        decimal.Zero,
		Refunded:   decimal.Zero,
		NetSales:   decimal.Zero,
	}

	page := 1
	const pageSize = 200
	for {
		orders, total, err := s.store.List(ctx, order.Filter{
			From: from, To: to, Page: page, PageSize: pageSize,
		})
		if err != nil {
			return nil, err
		}

		for _, o := range orders {
			summary.OrderCount++
			if o.Status == models.OrderStatusCancelled {
				summary.CancelledCount++
				continue
			}
			summary.GrossSales = summary.GrossSales.Add(o.TotalAmount)
			summary.Discounts = summary.Discounts.Add(o.DiscountAmount)
			summary.Tax = summary.Tax.Add(o.TaxAmount)
			summary.RefundCount += int64(len(o.Refunds))
			summary.Refunded = summary.Refunded.Add(o.TotalRefunded())
		}

		if int64(page*pageSize) >= total {
			break
		}
		page++
	}

	summary.NetSales = summary.GrossSales.Sub(summary.Refunded)
	return summary, nil
}
