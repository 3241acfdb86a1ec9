package model

import "time"

// User represents an account stored in the `users` table.  The engine
// itself never authenticates; the login handler verifies credentials
// against this record and issues a token whose subject becomes the
// caller's identity.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – CUSTOMER or OPERATOR.
//  IsActive     – whether the account may log in.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Roles accepted by the HTTP layer.
const (
	RoleCustomer = "CUSTOMER"
	RoleOperator = "OPERATOR"
)
