package api

import (
	"context"
	"net/http"
	"time"

	"github.com/genroar/pharmacy-client/client"
)

type ProductService struct {
	c *client.Client
}

type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	SKU          string    `json:"sku,omitempty"`
	Barcode      string    `json:"barcode,omitempty"`
	Category     string    `json:"category,omitempty"`
	Manufacturer string    `json:"manufacturer,omitempty"`
	Price        float64   `json:"price"`
	CostPrice    float64   `json:"cost_price,omitempty"`
	Stock        int       `json:"stock"`
	ReorderLevel int       `json:"reorder_level,omitempty"`
	RequiresRx   bool      `json:"requires_rx,omitempty"`
	BranchID     string    `json:"branch_id,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type ProductInput struct {
	Name         string  `json:"name"`
	SKU          string  `json:"sku,omitempty"`
	Barcode      string  `json:"barcode,omitempty"`
	Category     string  `json:"category,omitempty"`
	Manufacturer string  `json:"manufacturer,omitempty"`
	Price        float64 `json:"price"`
	CostPrice    float64 `json:"cost_price,omitempty"`
	Stock        int     `json:"stock"`
	ReorderLevel int     `json:"reorder_level,omitempty"`
	RequiresRx   bool    `json:"requires_rx,omitempty"`
}

// ProductUpdate carries only the fields to change; nil fields are left
// untouched by the server.
type ProductUpdate struct {
	Name         *string  `json:"name,omitempty"`
	Category     *string  `json:"category,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	CostPrice    *float64 `json:"cost_price,omitempty"`
	Stock        *int     `json:"stock,omitempty"`
	ReorderLevel *int     `json:"reorder_level,omitempty"`
	RequiresRx   *bool    `json:"requires_rx,omitempty"`
}

type ProductList struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

func (s *ProductService) List(ctx context.Context, opts ListOptions) (*ProductList, error) {
	var out ProductList
	if _, err := s.c.Do(ctx, http.MethodGet, listPath(PathProducts, opts), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*Product, error) {
	var out Product
	if _, err := s.c.Do(ctx, http.MethodGet, PathProducts+"/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ProductService) Create(ctx context.Context, input ProductInput) (*Product, error) {
	var out Product
	if _, err := s.c.Do(ctx, http.MethodPost, PathProducts, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ProductService) Update(ctx context.Context, id string, update ProductUpdate) (*Product, error) {
	var out Product
	if _, err := s.c.Do(ctx, http.MethodPut, PathProducts+"/"+id, update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	_, err := s.c.Do(ctx, http.MethodDelete, PathProducts+"/"+id, nil, nil)
	return err
}
