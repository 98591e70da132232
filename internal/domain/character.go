package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CharacterSnapshot is the read-only view of a character the economy engine
// consumes from the character system (an external collaborator). Used for
// credit scoring and product eligibility gates; never written by this engine.
type CharacterSnapshot struct {
	ID    uuid.UUID       `json:"id"    db:"id"`
	Name  string          `json:"name"  db:"name"`
	Level int             `json:"level" db:"level"`
	Class string          `json:"class" db:"class"`
	Gold  decimal.Decimal `json:"gold"  db:"gold"`
	Luck  int             `json:"luck"  db:"luck"` // 0–100, centred at 50
}
