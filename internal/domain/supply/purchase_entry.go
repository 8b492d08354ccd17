package supply

import (
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus tracks settlement of a purchase entry
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPartial   PaymentStatus = "partial"
	PaymentStatusCompleted PaymentStatus = "completed"
)

// DerivePaymentStatus classifies paid against total
func DerivePaymentStatus(paid, total decimal.Decimal) PaymentStatus {
	switch {
	case !paid.IsPositive():
		return PaymentStatusPending
	case paid.LessThan(total):
		return PaymentStatusPartial
	}
	return PaymentStatusCompleted
}

// PurchaseEntryItem is one costed line of a purchase entry
type PurchaseEntryItem struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PurchaseEntryID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemID          uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity        decimal.Decimal `gorm:"type:numeric(10,3);not null"`
	UnitCost        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	TotalCost       decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	Notes           string          `gorm:"type:text"`
	CreatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PurchaseEntryItem) TableName() string {
	return "purchase_entry_items"
}

// PurchaseEntry is the accounting record of a receipt
type PurchaseEntry struct {
	shared.BaseEntity
	EntryNumber     string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	PurchaseOrderID *uuid.UUID          `gorm:"type:uuid;index"`
	GRNID           *uuid.UUID          `gorm:"column:grn_id;type:uuid;uniqueIndex"`
	SupplierID      *uuid.UUID          `gorm:"type:uuid"`
	LocationID      *uuid.UUID          `gorm:"type:uuid"`
	IsDirectPE      bool                `gorm:"column:is_direct_pe;not null;default:false"`
	InvoiceNumber   string              `gorm:"type:varchar(100)"`
	PaymentStatus   PaymentStatus       `gorm:"type:varchar(20);not null;index"`
	TotalAmount     decimal.Decimal     `gorm:"type:numeric(14,2);not null;default:0"`
	PaidAmount      decimal.Decimal     `gorm:"type:numeric(14,2);not null;default:0"`
	Notes           string              `gorm:"type:text"`
	Items           []PurchaseEntryItem `gorm:"foreignKey:PurchaseEntryID;references:ID"`
}

// TableName returns the table name for GORM
func (PurchaseEntry) TableName() string {
	return "purchase_entries"
}

// PurchaseEntryHeader carries the caller supplied header fields
type PurchaseEntryHeader struct {
	SupplierID    *uuid.UUID
	LocationID    *uuid.UUID
	InvoiceNumber string
	PaidAmount    decimal.Decimal
	Notes         string
}

func newPurchaseEntry(h PurchaseEntryHeader, items []LineInput) (*PurchaseEntry, error) {
	if err := validateLineInputs(items); err != nil {
		return nil, err
	}
	if h.PaidAmount.IsNegative() {
		return nil, shared.NewValidationError("paid_amount", "Paid amount cannot be negative")
	}

	pe := &PurchaseEntry{
		BaseEntity:    shared.NewBaseEntity(),
		SupplierID:    h.SupplierID,
		LocationID:    h.LocationID,
		InvoiceNumber: h.InvoiceNumber,
		Notes:         h.Notes,
	}
	pe.EntryNumber = shared.GenerateDocumentNumber("PE", pe.CreatedAt)

	total := decimal.Zero
	for _, in := range items {
		cost := costOr(in.UnitCost, decimal.Zero)
		line := in.Quantity.Mul(cost).Round(2)
		pe.Items = append(pe.Items, PurchaseEntryItem{
			ID:              uuid.New(),
			PurchaseEntryID: pe.ID,
			ItemID:          in.ItemID,
			Quantity:        in.Quantity,
			UnitCost:        cost,
			TotalCost:       line,
			Notes:           in.Notes,
			CreatedAt:       pe.CreatedAt,
		})
		total = total.Add(line)
	}
	pe.TotalAmount = total
	if h.PaidAmount.GreaterThan(total) {
		return nil, shared.NewValidationError("paid_amount", "Paid amount exceeds total amount")
	}
	pe.PaidAmount = h.PaidAmount
	pe.PaymentStatus = DerivePaymentStatus(pe.PaidAmount, pe.TotalAmount)
	return pe, nil
}

// NewPurchaseEntry creates a standalone entry that bypasses any GRN
func NewPurchaseEntry(h PurchaseEntryHeader, items []LineInput) (*PurchaseEntry, error) {
	pe, err := newPurchaseEntry(h, items)
	if err != nil {
		return nil, err
	}
	pe.IsDirectPE = true
	return pe, nil
}

// NewPurchaseEntryFromGRN copies non-zero received lines and costs from a GRN
func NewPurchaseEntryFromGRN(g *GRN, h PurchaseEntryHeader, overrides map[uuid.UUID]ItemOverride) (*PurchaseEntry, error) {
	if g.Status == GRNStatusRejected {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Cannot record a purchase entry for a rejected GRN")
	}
	items := make([]LineInput, 0, len(g.Items))
	for _, it := range g.Items {
		cost := it.UnitCost
		items = append(items, LineInput{ItemID: it.ItemID, Quantity: it.ReceivedQuantity, UnitCost: &cost, Notes: it.Notes})
	}
	items = applyOverrides(items, overrides)
	if h.SupplierID == nil {
		h.SupplierID = g.SupplierID
	}
	if h.LocationID == nil {
		loc := g.LocationID
		h.LocationID = &loc
	}
	pe, err := newPurchaseEntry(h, items)
	if err != nil {
		return nil, err
	}
	grnID := g.ID
	pe.GRNID = &grnID
	pe.PurchaseOrderID = g.PurchaseOrderID
	return pe, nil
}

// NewPurchaseEntryFromPO records a direct entry against a purchase order,
// bypassing the GRN step
func NewPurchaseEntryFromPO(po *PurchaseOrder, h PurchaseEntryHeader, overrides map[uuid.UUID]ItemOverride) (*PurchaseEntry, error) {
	if !po.Status.CanReceive() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Cannot record a purchase entry for purchase order in status "+string(po.Status))
	}
	items := make([]LineInput, 0, len(po.Items))
	for _, it := range po.Items {
		cost := it.UnitPrice
		items = append(items, LineInput{ItemID: it.ItemID, Quantity: it.RemainingQuantity(), UnitCost: &cost, Notes: it.Notes})
	}
	items = applyOverrides(items, overrides)
	if h.SupplierID == nil {
		h.SupplierID = po.SupplierID
	}
	if h.LocationID == nil {
		h.LocationID = po.DeliveryLocationID
	}
	pe, err := newPurchaseEntry(h, items)
	if err != nil {
		return nil, err
	}
	poID := po.ID
	pe.PurchaseOrderID = &poID
	pe.IsDirectPE = true
	return pe, nil
}

// RecordPayment adds a payment and re-derives the payment status
func (pe *PurchaseEntry) RecordPayment(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("amount", "Payment amount must be positive")
	}
	paid := pe.PaidAmount.Add(amount)
	if paid.GreaterThan(pe.TotalAmount) {
		return shared.NewValidationError("amount", "Payment exceeds outstanding amount")
	}
	pe.PaidAmount = paid
	pe.PaymentStatus = DerivePaymentStatus(pe.PaidAmount, pe.TotalAmount)
	pe.Touch()
	return nil
}

// OutstandingAmount is the unpaid remainder
func (pe *PurchaseEntry) OutstandingAmount() decimal.Decimal {
	return pe.TotalAmount.Sub(pe.PaidAmount)
}

// ReceivesStock reports whether creating the entry must add stock. Entries
// derived from a GRN never do, because the GRN already did.
func (pe *PurchaseEntry) ReceivesStock() bool {
	return pe.GRNID == nil && pe.LocationID != nil
}
