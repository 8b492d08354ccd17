package supply

import (
	"testing"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPO(t *testing.T, items ...LineInput) *PurchaseOrder {
	t.Helper()
	loc := uuid.New()
	if len(items) == 0 {
		items = []LineInput{{ItemID: uuid.New(), Quantity: dec("10"), UnitCost: decPtr("2.50")}}
	}
	po, err := NewPurchaseOrder(nil, &loc, nil, "", items)
	require.NoError(t, err)
	return po
}

func TestPurchaseOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     PurchaseOrderStatus
		to       PurchaseOrderStatus
		expected bool
	}{
		{PurchaseOrderStatusPending, PurchaseOrderStatusApproved, true},
		{PurchaseOrderStatusPending, PurchaseOrderStatusOrdered, false},
		{PurchaseOrderStatusApproved, PurchaseOrderStatusPartiallyReceived, true},
		{PurchaseOrderStatusOrdered, PurchaseOrderStatusCompleted, true},
		{PurchaseOrderStatusPartiallyReceived, PurchaseOrderStatusPartiallyReceived, true},
		{PurchaseOrderStatusPartiallyReceived, PurchaseOrderStatusCancelled, false},
		{PurchaseOrderStatusCompleted, PurchaseOrderStatusCompleted, true},
		{PurchaseOrderStatusCancelled, PurchaseOrderStatusApproved, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestNewPurchaseOrder(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	po := newTestPO(t,
		LineInput{ItemID: a, Quantity: dec("10"), UnitCost: decPtr("2.50")},
		LineInput{ItemID: b, Quantity: dec("3")},
	)

	assert.Equal(t, PurchaseOrderStatusPending, po.Status)
	assert.Equal(t, PurchaseOrderTypeDirect, po.OrderType)
	require.Len(t, po.Items, 2)
	assert.True(t, po.Items[0].TotalPrice.Equal(dec("25")))
	assert.True(t, po.Items[1].UnitPrice.IsZero())
	assert.True(t, po.TotalAmount.Equal(dec("25")))
	assert.Len(t, po.DeliveryLocations, 2)
}

func TestNewPurchaseOrderFromRequisition(t *testing.T) {
	itemID := uuid.New()
	req := newTestRequisition(t, LineInput{ItemID: itemID, Quantity: dec("6")})
	require.NoError(t, req.Approve(nil, map[uuid.UUID]decimal.Decimal{itemID: dec("4")}))

	po, err := NewPurchaseOrderFromRequisition(req, nil, map[uuid.UUID]decimal.Decimal{itemID: dec("1.25")}, "")

	require.NoError(t, err)
	assert.Equal(t, PurchaseOrderTypeRequisitionBased, po.OrderType)
	assert.Equal(t, RequisitionStatusApproved, req.Status)
	require.Len(t, po.Items, 1)
	assert.True(t, po.Items[0].Quantity.Equal(dec("4")))
	assert.True(t, po.TotalAmount.Equal(dec("5")))
	require.Len(t, po.DeliveryLocations, 1)
	assert.Equal(t, req.ID, *po.DeliveryLocations[0].RequisitionID)

	t.Run("cancelled requisition rejected", func(t *testing.T) {
		r := newTestRequisition(t)
		require.NoError(t, r.Cancel())
		_, err := NewPurchaseOrderFromRequisition(r, nil, nil, "")
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}

func TestNewConsolidatedPurchaseOrder(t *testing.T) {
	flour, sugar := uuid.New(), uuid.New()
	locA, locB := uuid.New(), uuid.New()

	reqA1, err := NewRequisition(nil, locA, nil, "", []LineInput{{ItemID: flour, Quantity: dec("2")}, {ItemID: sugar, Quantity: dec("1")}})
	require.NoError(t, err)
	reqA2, err := NewRequisition(nil, locA, nil, "", []LineInput{{ItemID: flour, Quantity: dec("3")}})
	require.NoError(t, err)
	reqB, err := NewRequisition(nil, locB, nil, "", []LineInput{{ItemID: flour, Quantity: dec("4")}})
	require.NoError(t, err)

	prices := map[uuid.UUID]decimal.Decimal{flour: dec("2"), sugar: dec("3")}
	po, err := NewConsolidatedPurchaseOrder([]*Requisition{reqA1, reqA2, reqB}, nil, prices, "")

	require.NoError(t, err)
	assert.Equal(t, PurchaseOrderTypeConsolidated, po.OrderType)
	require.Len(t, po.Items, 3)
	require.Len(t, po.DeliveryLocations, 3)
	// (A, flour)=5, (A, sugar)=1, (B, flour)=4
	assert.True(t, po.TotalAmount.Equal(dec("21")))

	for _, dl := range po.DeliveryLocations {
		switch {
		case dl.LocationID == locA && dl.ItemID == flour:
			assert.True(t, dl.Quantity.Equal(dec("5")))
			assert.Nil(t, dl.RequisitionID)
		case dl.LocationID == locA && dl.ItemID == sugar:
			require.NotNil(t, dl.RequisitionID)
			assert.Equal(t, reqA1.ID, *dl.RequisitionID)
		case dl.LocationID == locB:
			assert.True(t, dl.Quantity.Equal(dec("4")))
			require.NotNil(t, dl.RequisitionID)
			assert.Equal(t, reqB.ID, *dl.RequisitionID)
		default:
			t.Fatalf("unexpected delivery location %v", dl)
		}
	}

	t.Run("empty input", func(t *testing.T) {
		_, err := NewConsolidatedPurchaseOrder(nil, nil, prices, "")
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})
}

func TestPurchaseOrder_RecordReceipt(t *testing.T) {
	itemID := uuid.New()
	po := newTestPO(t, LineInput{ItemID: itemID, Quantity: dec("10")})

	t.Run("pending order cannot receive", func(t *testing.T) {
		err := po.RecordReceipt(map[uuid.UUID]decimal.Decimal{itemID: dec("1")})
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	require.NoError(t, po.Approve(nil))
	received := map[uuid.UUID]decimal.Decimal{itemID: dec("4")}
	require.NoError(t, po.RecordReceipt(received))
	require.NoError(t, po.RecordReceipt(received))

	assert.Equal(t, PurchaseOrderStatusPartiallyReceived, po.Status)
	assert.True(t, po.Items[0].ReceivedQuantity.Equal(dec("8")))
	assert.True(t, po.Items[0].RemainingQuantity().Equal(dec("2")))
	assert.Len(t, received, 1)

	require.NoError(t, po.Complete())
	assert.NotNil(t, po.CompletedAt)
	assert.NoError(t, po.Complete())
}

func TestPurchaseOrder_ApplyPatch(t *testing.T) {
	po := newTestPO(t)
	assert.ErrorIs(t, po.ApplyPatch(PurchaseOrderPatch{}), shared.ErrNoFieldsToUpdate)

	notes := "call first"
	require.NoError(t, po.ApplyPatch(PurchaseOrderPatch{Notes: &notes}))
	assert.Equal(t, "call first", po.Notes)

	require.NoError(t, po.Approve(nil))
	require.NoError(t, po.MarkOrdered())
	assert.ErrorIs(t, po.ApplyPatch(PurchaseOrderPatch{Notes: &notes}), shared.ErrInvalidState)
}

func TestConsolidatedPurchaseOrder_Receipt(t *testing.T) {
	flour, sugar := uuid.New(), uuid.New()
	reqA, err := NewRequisition(nil, uuid.New(), nil, "", []LineInput{{ItemID: flour, Quantity: dec("5")}, {ItemID: sugar, Quantity: dec("1")}})
	require.NoError(t, err)
	reqB, err := NewRequisition(nil, uuid.New(), nil, "", []LineInput{{ItemID: flour, Quantity: dec("4")}})
	require.NoError(t, err)
	po, err := NewConsolidatedPurchaseOrder([]*Requisition{reqA, reqB}, nil, map[uuid.UUID]decimal.Decimal{flour: dec("2"), sugar: dec("3")}, "")
	require.NoError(t, err)
	require.NoError(t, po.Approve(nil))
	require.Len(t, po.Items, 3)

	g, err := NewGRNFromPO(po, uuid.New(), "", "", map[uuid.UUID]ItemOverride{flour: {Quantity: decPtr("7")}})
	require.NoError(t, err)

	require.Len(t, g.Items, 2, "flour lines are pooled into one receipt line")
	received := g.ReceivedQuantities()
	assert.True(t, received[flour].Equal(dec("7")))
	assert.True(t, received[sugar].Equal(dec("1")))
	assert.Equal(t, GRNStatusPartial, g.Status)

	require.NoError(t, po.RecordReceipt(received))

	flourReceived := decimal.Zero
	for _, it := range po.Items {
		assert.True(t, it.ReceivedQuantity.LessThanOrEqual(it.Quantity), "line %s over-received", it.ID)
		if it.ItemID == flour {
			flourReceived = flourReceived.Add(it.ReceivedQuantity)
		}
	}
	assert.True(t, flourReceived.Equal(dec("7")), "booked %s", flourReceived)
}

func TestNewPurchaseOrder_RejectsRepeatedItems(t *testing.T) {
	flour := uuid.New()
	_, err := NewPurchaseOrder(nil, nil, nil, "", []LineInput{
		{ItemID: flour, Quantity: dec("1")},
		{ItemID: flour, Quantity: dec("2")},
	})
	assert.ErrorIs(t, err, shared.ErrValidationFailed)

	_, err = NewGRN(nil, nil, uuid.New(), "", "", []GRNItemInput{
		{ItemID: flour, ReceivedQuantity: dec("1")},
		{ItemID: flour, ReceivedQuantity: dec("2")},
	})
	assert.ErrorIs(t, err, shared.ErrValidationFailed)
}
