package api

import (
	"context"
	"net/http"
	"time"

	"github.com/genroar/pharmacy-client/client"
)

type SaleService struct {
	c *client.Client
}

type SaleItem struct {
	ProductID string  `json:"product_id"`
	BatchID   string  `json:"batch_id,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type Sale struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customer_id,omitempty"`
	EmployeeID string     `json:"employee_id,omitempty"`
	BranchID   string     `json:"branch_id,omitempty"`
	Items      []SaleItem `json:"items"`
	Subtotal   float64    `json:"subtotal"`
	Discount   float64    `json:"discount,omitempty"`
	Tax        float64    `json:"tax,omitempty"`
	Total      float64    `json:"total"`
	Paid       float64    `json:"paid"`
	Refunded   bool       `json:"refunded,omitempty"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`
}

type SaleInput struct {
	CustomerID string     `json:"customer_id,omitempty"`
	Items      []SaleItem `json:"items"`
	Discount   float64    `json:"discount,omitempty"`
	Paid       float64    `json:"paid"`
}

type RefundInput struct {
	Reason string     `json:"reason,omitempty"`
	Items  []SaleItem `json:"items,omitempty"` // empty means full refund
}

type SaleList struct {
	Sales      []Sale     `json:"sales"`
	Pagination Pagination `json:"pagination"`
}

func (s *SaleService) List(ctx context.Context, opts ListOptions) (*SaleList, error) {
	var out SaleList
	if _, err := s.c.Do(ctx, http.MethodGet, listPath(PathSales, opts), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SaleService) Get(ctx context.Context, id string) (*Sale, error) {
	var out Sale
	if _, err := s.c.Do(ctx, http.MethodGet, PathSales+"/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SaleService) Create(ctx context.Context, input SaleInput) (*Sale, error) {
	var out Sale
	if _, err := s.c.Do(ctx, http.MethodPost, PathSales, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SaleService) Refund(ctx context.Context, id string, input RefundInput) (*Sale, error) {
	var out Sale
	if _, err := s.c.Do(ctx, http.MethodPost, PathSales+"/"+id+"/refund", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
