package store

import (
	"github.com/jackc/pgx/v5"

	"ticketera/common/contract"
)

// Queries is the single point of contact with the backing store. Every
// other component goes through it rather than touching SQL directly.
type Queries struct {
	db contract.DbConn
}

func New(db contract.DbConn) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}
