package users

import (
	"context"

	"github.com/dpetrovs/finledger/internal/server/models"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Upsert creates the user or refreshes its profile fields by email.
	// This is the seam used by the external auth collaborator.
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
}
