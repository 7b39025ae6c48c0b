package repository

import (
	"context"
	"strings"

	"hospital-jobs/internal/database"

	"github.com/google/uuid"
)

type PostgresUserRoleRepository struct {
	db database.DB
}

func NewPostgresUserRoleRepository(db database.DB) *PostgresUserRoleRepository {
	return &PostgresUserRoleRepository{db: db}
}

func (r *PostgresUserRoleRepository) HasRole(ctx context.Context, userID uuid.UUID, role string) (bool, error) {
	if r == nil || r.db == nil {
		return false, database.ErrNilDB
	}
	role = strings.TrimSpace(role)
	if userID == uuid.Nil || role == "" {
		return false, nil
	}

	var ok bool
	row := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2)`, userID, role)
	if err := row.Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
