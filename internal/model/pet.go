// Package model defines shared wire types for the API.
package model

// Pet statuses accepted by the pet schemas.
const (
	StatusAvailable = "available"
	StatusPending   = "pending"
	StatusSold      = "sold"
)

// Pet is the petstore's wire representation of a pet.
type Pet struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Status string `json:"status"`
}
