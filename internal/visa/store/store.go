// Package store persists visa records.
package store

import (
	"travelcred/internal/visa/models"
)

// Persisted ordinals follow the declaration order of the registry enums.
var statusOrdinals = map[models.Status]int16{
	models.StatusPending:  0,
	models.StatusApproved: 1,
	models.StatusRejected: 2,
	models.StatusExpired:  3,
	models.StatusRevoked:  4,
}

func statusOrdinal(s models.Status) int16 {
	return statusOrdinals[s]
}

func statusFromOrdinal(n int16) models.Status {
	for s, o := range statusOrdinals {
		if o == n {
			return s
		}
	}
	return models.StatusPending
}

func clone(v *models.Visa) *models.Visa {
	c := *v
	return &c
}
