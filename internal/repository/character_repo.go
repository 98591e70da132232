package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Playstrata/economy-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// CharacterRepository is the read-only view into the character system's data.
// The economy engine consumes level/class/gold/luck for credit scoring and
// product gating; it never writes here.
type CharacterRepository struct {
	db *sqlx.DB
}

// NewCharacterRepository creates a new CharacterRepository.
func NewCharacterRepository(db *sqlx.DB) *CharacterRepository {
	return &CharacterRepository{db: db}
}

// GetSnapshot fetches a character's current snapshot.
func (r *CharacterRepository) GetSnapshot(ctx context.Context, characterID uuid.UUID) (*domain.CharacterSnapshot, error) {
	var c domain.CharacterSnapshot
	err := r.db.GetContext(ctx, &c,
		`SELECT id, name, level, class, gold, luck FROM characters WHERE id = $1`, characterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCharacterNotFound
		}
		return nil, fmt.Errorf("character_repo.GetSnapshot: %w", err)
	}
	return &c, nil
}
