package user

import (
	"context"

	"github.com/google/uuid"
)

// RoleRepository answers authorization questions for token subjects.
type RoleRepository interface {
	HasRole(ctx context.Context, userID uuid.UUID, role string) (bool, error)
}
