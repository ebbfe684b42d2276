package model

import "time"

// Role values stored in users.role.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Subscription plan values stored in users.subscription_plan.
const (
	PlanFree = "FREE"
	PlanPro  = "PRO"
)

// User represents an application account as stored in the `users` table.
// Each field corresponds to a column. JSON tags are omitted because these
// structs are used internally by the repository layer; handlers define
// separate response types with appropriate tags.
//
// Fields:
//  ID               – primary key identifier of the user.
//  Username         – unique login name; also the JWT subject.
//  Email            – unique email address.
//  PasswordHash     – bcrypt hashed password.
//  Role             – USER or ADMIN.
//  IsActive         – whether the account may authenticate (admin toggle).
//  SubscriptionPlan – FREE or PRO; drives the rate limits.
//  StripeCustomerID – external billing reference (nullable).
//  CreatedAt        – timestamp of creation.
//  UpdatedAt        – timestamp of last update.
type User struct {
	ID               uint64    // users.id
	Username         string    // users.username
	Email            string    // users.email
	PasswordHash     string    // users.password_hash
	Role             string    // users.role
	IsActive         bool      // users.is_active
	SubscriptionPlan string    // users.subscription_plan
	StripeCustomerID *string   // users.stripe_customer_id (nullable)
	CreatedAt        time.Time // users.created_at
	UpdatedAt        time.Time // users.updated_at
}
