package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	EmployeeID string `json:"employeeId" validate:"required,max=50"`
	Password   string `json:"password" validate:"required"`
	IP         string `json:"-"`
	UserAgent  string `json:"-"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresIn   int64     `json:"expiresIn"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issuedAt"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID           string   `json:"id"`
	EmployeeID   string   `json:"employeeId"`
	Name         string   `json:"name"`
	Role         UserRole `json:"role"`
	DepartmentID *string  `json:"departmentId,omitempty"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID       string   `json:"user_id"`
	Role         UserRole `json:"role"`
	DepartmentID *string  `json:"department_id,omitempty"`
	EmployeeID   string   `json:"employee_id"`
	Name         string   `json:"name"`
	jwt.RegisteredClaims
}

// Actor is the verified caller identity handed to services.
type Actor struct {
	UserID       string
	Role         UserRole
	DepartmentID *string
}

// ActorFromClaims converts verified token claims into an Actor.
func ActorFromClaims(claims *JWTClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, Role: claims.Role, DepartmentID: claims.DepartmentID}
}

// Department returns the actor's department id or an empty string.
func (a Actor) Department() string {
	if a.DepartmentID == nil {
		return ""
	}
	return *a.DepartmentID
}
