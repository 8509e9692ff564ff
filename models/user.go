package models

import "github.com/google/uuid"

// User is the identity the auth service exposes to the rest of the system
type User struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
}
