package api

import (
	"context"
	"net/http"

	"github.com/genroar/pharmacy-client/client"
)

type BranchService struct {
	c *client.Client
}

type Branch struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Name      string `json:"name"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Active    bool   `json:"active"`
}

type BranchList struct {
	Branches []Branch `json:"branches"`
}

func (s *BranchService) List(ctx context.Context) (*BranchList, error) {
	var out BranchList
	if _, err := s.c.Do(ctx, http.MethodGet, PathBranches, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *BranchService) Get(ctx context.Context, id string) (*Branch, error) {
	var out Branch
	if _, err := s.c.Do(ctx, http.MethodGet, PathBranches+"/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
