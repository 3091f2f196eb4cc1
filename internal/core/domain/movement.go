package domain

import "time"

// MovementKind tells which ledger operation changed the stock.
type MovementKind string

const (
	MovementPurchase MovementKind = "purchase"
	MovementRestock  MovementKind = "restock"
)

// StockMovement is an audit record of a single successful stock change.
type StockMovement struct {
	SweetID   string       `json:"sweetId"`
	Kind      MovementKind `json:"kind"`
	Amount    int          `json:"amount"`
	Remaining int          `json:"remaining"`
	UserID    string       `json:"userId"`
	At        time.Time    `json:"at"`
}
