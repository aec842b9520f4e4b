// Package store persists passport records.
package store

import (
	"travelcred/internal/passport/models"
)

// Status ordinals as persisted. They match the enum order of the original
// registry and must not be renumbered.
var statusOrdinals = map[models.Status]int16{
	models.StatusPending: 0,
	models.StatusActive:  1,
	models.StatusExpired: 2,
	models.StatusRevoked: 3,
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

func clone(p *models.Passport) *models.Passport {
	c := *p
	return &c
}
