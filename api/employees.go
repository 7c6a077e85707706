package api

import (
	"context"
	"net/http"
	"time"

	"github.com/genroar/pharmacy-client/client"
	"github.com/genroar/pharmacy-client/session"
)

type EmployeeService struct {
	c *client.Client
}

type Employee struct {
	ID        string       `json:"id"`
	Email     string       `json:"email"`
	FirstName string       `json:"first_name,omitempty"`
	LastName  string       `json:"last_name,omitempty"`
	Role      session.Role `json:"role"`
	BranchID  string       `json:"branch_id,omitempty"`
	Active    bool         `json:"active"`
	HiredAt   time.Time    `json:"hired_at,omitempty"`
}

type EmployeeInput struct {
	Email     string       `json:"email"`
	FirstName string       `json:"first_name,omitempty"`
	LastName  string       `json:"last_name,omitempty"`
	Role      session.Role `json:"role"`
	BranchID  string       `json:"branch_id,omitempty"`
}

type EmployeeList struct {
	Employees  []Employee `json:"employees"`
	Pagination Pagination `json:"pagination"`
}

func (s *EmployeeService) List(ctx context.Context, opts ListOptions) (*EmployeeList, error) {
	var out EmployeeList
	if _, err := s.c.Do(ctx, http.MethodGet, listPath(PathEmployees, opts), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *EmployeeService) Get(ctx context.Context, id string) (*Employee, error) {
	var out Employee
	if _, err := s.c.Do(ctx, http.MethodGet, PathEmployees+"/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *EmployeeService) Create(ctx context.Context, input EmployeeInput) (*Employee, error) {
	var out Employee
	if _, err := s.c.Do(ctx, http.MethodPost, PathEmployees, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *EmployeeService) Update(ctx context.Context, id string, input EmployeeInput) (*Employee, error) {
	var out Employee
	if _, err := s.c.Do(ctx, http.MethodPut, PathEmployees+"/"+id, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *EmployeeService) Deactivate(ctx context.Context, id string) error {
	_, err := s.c.Do(ctx, http.MethodDelete, PathEmployees+"/"+id, nil, nil)
	return err
}
