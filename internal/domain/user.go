package domain

import "github.com/google/uuid"

// User carries the identity fields the engine needs for notifications and
// ownership checks; profile management is out of scope.
type User struct {
	ID    uuid.UUID
	Name  string
	Email string
}
