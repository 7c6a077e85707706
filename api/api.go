// Package api is the typed endpoint surface over the request pipeline. Each
// service is a thin wrapper: all throttling, coalescing, readiness gating
// and error classification happens in the client package.
package api

import "github.com/genroar/pharmacy-client/client"

type API struct {
	Auth      *AuthService
	Products  *ProductService
	Batches   *BatchService
	Customers *CustomerService
	Sales     *SaleService
	Employees *EmployeeService
	Branches  *BranchService
	Dashboard *DashboardService
}

func New(c *client.Client) *API {
	return &API{
		Auth:      &AuthService{c: c},
		Products:  &ProductService{c: c},
		Batches:   &BatchService{c: c},
		Customers: &CustomerService{c: c},
		Sales:     &SaleService{c: c},
		Employees: &EmployeeService{c: c},
		Branches:  &BranchService{c: c},
		Dashboard: &DashboardService{c: c},
	}
}

// Pagination is the common list response envelope.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
