package entity

import "time"

// InventoryType registro de tipos de inventario vistos en la ingesta.
type InventoryType struct {
	Code         string
	Description  string
	FirstSeenAt  time.Time
	LastSeenAt   time.Time
	InvoicesSeen int
	Excluded     bool
}
