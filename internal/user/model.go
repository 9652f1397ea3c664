package user

import "time"

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User is the buyer record consumed by fulfillment. Account management and
// session issuance live in the auth front-end, not here.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	WhatsApp  string    `json:"whatsapp"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
