package domain

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleRetailer Role = "retailer"
	RoleAdmin    Role = "admin"
)

// Actor is the request-scoped identity passed explicitly into every workflow
// call. Handlers resolve it from the session token; nothing reads it from
// ambient state.
type Actor struct {
	UserID int64
	Role   Role
}

func (a Actor) Is(role Role) bool { return a.Role == role || a.Role == RoleAdmin }

type User struct {
	ID           int64     `json:"user_id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

type Retailer struct {
	ID            int64  `json:"retailer_id"`
	Name          string `json:"name"`
	City          string `json:"city"`
	ContactPerson string `json:"contact_person"`
}

type Customer struct {
	ID            int64  `json:"customer_id"`
	HospitalName  string `json:"hospital_name"`
	City          string `json:"city"`
	ContactPerson string `json:"contact_person"`
}

type BloodType struct {
	ID   int16  `json:"id"`
	Code string `json:"code"`
}
