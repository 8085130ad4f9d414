package order

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const ReceiptPrefix = "RCP-"

// ReceiptGenerator produces candidate receipt ids. Uniqueness is confirmed by
// Store.Save, which rejects duplicates.
type ReceiptGenerator interface {
	NewReceiptID() (string, error)
}

// ReceiptFunc adapts a function to ReceiptGenerator.
type ReceiptFunc func() (string, error)

func (f ReceiptFunc) NewReceiptID() (string, error) { return f() }

// UUIDReceipts issues time-ordered ids like RCP-01890A5D-AC96-774B-BCCE-B302099A8057.
type UUIDReceipts struct{}

func (UUIDReceipts) NewReceiptID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate receipt id: %w", err)
	}
	return ReceiptPrefix + strings.ToUpper(id.String()), nil
}
