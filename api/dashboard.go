package api

import (
	"context"
	"net/http"

	"github.com/genroar/pharmacy-client/client"
)

type DashboardService struct {
	c *client.Client
}

// DashboardStats is the aggregate snapshot rendered on the home screen.
type DashboardStats struct {
	TodaySalesTotal  float64 `json:"today_sales_total"`
	TodaySalesCount  int     `json:"today_sales_count"`
	LowStockCount    int     `json:"low_stock_count"`
	ExpiringBatches  int     `json:"expiring_batches"`
	CustomerCount    int     `json:"customer_count"`
	PendingRefunds   int     `json:"pending_refunds"`
	MonthSalesTotal  float64 `json:"month_sales_total"`
	MonthRefundTotal float64 `json:"month_refund_total"`
}

func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	var out DashboardStats
	if _, err := s.c.Do(ctx, http.MethodGet, PathDashboard, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
