package session

import "time"

// Role represents a pharmacy staff role as reported by the backend.
type Role string

const (
	RoleAdmin      Role = "admin"      // Can manage companies, branches and settings
	RoleManager    Role = "manager"    // Can manage a branch and its staff
	RolePharmacist Role = "pharmacist" // Can dispense and manage inventory
	RoleCashier    Role = "cashier"    // Can record sales and refunds
)

// User is the authenticated user record returned by the login endpoint and
// persisted alongside the token.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Role      Role      `json:"role,omitempty"`
	CompanyID string    `json:"company_id,omitempty"`
	BranchID  string    `json:"branch_id,omitempty"`
	LastLogin time.Time `json:"last_login,omitempty"`
}
