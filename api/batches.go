package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/genroar/pharmacy-client/client"
)

type BatchService struct {
	c *client.Client
}

type Batch struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"product_id"`
	BatchNumber string    `json:"batch_number"`
	Quantity    int       `json:"quantity"`
	CostPrice   float64   `json:"cost_price,omitempty"`
	ExpiryDate  time.Time `json:"expiry_date"`
	ReceivedAt  time.Time `json:"received_at,omitempty"`
	SupplierID  string    `json:"supplier_id,omitempty"`
}

type BatchInput struct {
	ProductID   string    `json:"product_id"`
	BatchNumber string    `json:"batch_number"`
	Quantity    int       `json:"quantity"`
	CostPrice   float64   `json:"cost_price,omitempty"`
	ExpiryDate  time.Time `json:"expiry_date"`
	SupplierID  string    `json:"supplier_id,omitempty"`
}

type BatchList struct {
	Batches    []Batch    `json:"batches"`
	Pagination Pagination `json:"pagination"`
}

func (s *BatchService) List(ctx context.Context, opts ListOptions) (*BatchList, error) {
	var out BatchList
	if _, err := s.c.Do(ctx, http.MethodGet, listPath(PathBatches, opts), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExpiringWithin lists batches that expire within the given number of days,
// the feed behind the expiry warnings on the dashboard.
func (s *BatchService) ExpiringWithin(ctx context.Context, days int) (*BatchList, error) {
	q := url.Values{}
	q.Set("expiring_within_days", strconv.Itoa(days))
	var out BatchList
	if _, err := s.c.Do(ctx, http.MethodGet, PathBatches+"?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *BatchService) Create(ctx context.Context, input BatchInput) (*Batch, error) {
	var out Batch
	if _, err := s.c.Do(ctx, http.MethodPost, PathBatches, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *BatchService) Delete(ctx context.Context, id string) error {
	_, err := s.c.Do(ctx, http.MethodDelete, PathBatches+"/"+id, nil, nil)
	return err
}
