package api

import (
	"context"
	"net/http"
	"time"

	"github.com/genroar/pharmacy-client/client"
)

type CustomerService struct {
	c *client.Client
}

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	Credit    float64   `json:"credit,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type CustomerInput struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

type CustomerList struct {
	Customers  []Customer `json:"customers"`
	Pagination Pagination `json:"pagination"`
}

func (s *CustomerService) List(ctx context.Context, opts ListOptions) (*CustomerList, error) {
	var out CustomerList
	if _, err := s.c.Do(ctx, http.MethodGet, listPath(PathCustomers, opts), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CustomerService) Get(ctx context.Context, id string) (*Customer, error) {
	var out Customer
	if _, err := s.c.Do(ctx, http.MethodGet, PathCustomers+"/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CustomerService) Create(ctx context.Context, input CustomerInput) (*Customer, error) {
	var out Customer
	if _, err := s.c.Do(ctx, http.MethodPost, PathCustomers, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CustomerService) Update(ctx context.Context, id string, input CustomerInput) (*Customer, error) {
	var out Customer
	if _, err := s.c.Do(ctx, http.MethodPut, PathCustomers+"/"+id, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CustomerService) Delete(ctx context.Context, id string) error {
	_, err := s.c.Do(ctx, http.MethodDelete, PathCustomers+"/"+id, nil, nil)
	return err
}
