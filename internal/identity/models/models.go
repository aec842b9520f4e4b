// Package models defines officer role assignments.
package models

import (
	"time"

	"travelcred/pkg/domain"
)

// Officer is a role assignment in one registry's officer set.
type Officer struct {
	Kind     domain.RegistryKind `json:"kind"`
	Identity domain.Identity     `json:"identity"`
	AddedAt  time.Time           `json:"added_at"`
}

const (
	StatusAuthorized = "Authorized"
	StatusRemoved    = "Removed"
)
