package database

import (
	"context"
	"database/sql"

	"github.com/eadhub/eadhub-payments/internal/entity"
)

type StudentRepository struct {
	DB *sql.DB
}

func NewStudentRepository(db *sql.DB) *StudentRepository {
	return &StudentRepository{DB: db}
}

func (r *StudentRepository) FindByID(ctx context.Context, id string) (*entity.Student, error) {
	return findStudentByID(ctx, r.DB, id)
}
