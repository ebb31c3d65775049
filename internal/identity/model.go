package identity

import "time"

// RoleStudent is assigned to every self-registered user.
const RoleStudent = "student"

// User represents a registered campus member.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Registration is the input to Register.
type Registration struct {
	Name     string
	Email    string
	Password string
}

// Credentials are the input to Authenticate.
type Credentials struct {
	Email    string
	Password string
}
