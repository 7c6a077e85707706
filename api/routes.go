package api

import (
	"net/url"
	"strconv"

	"github.com/genroar/pharmacy-client/client"
)

// Relative path table for the backend's REST surface.
const (
	PathLogin    = client.PathLogin
	PathRegister = client.PathRegister
	PathLogout   = "/api/auth/logout"

	PathProducts  = "/api/products"
	PathBatches   = "/api/batches"
	PathCustomers = "/api/customers"
	PathSales     = "/api/sales"
	PathEmployees = "/api/employees"
	PathBranches  = "/api/branches"
	PathDashboard = "/api/dashboard/stats"
)

// ListOptions are the common pagination and search parameters.
type ListOptions struct {
	Page   int
	Limit  int
	Search string
}

// listPath appends pagination query parameters. Distinct pages produce
// distinct paths, which keeps them distinct for request coalescing.
func listPath(base string, opts ListOptions) string {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}
