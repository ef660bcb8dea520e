package models

import "time"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

func IsValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

type Identity struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
