package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	alertapp "github.com/erp/stockcore/internal/application/alert"
	orderapp "github.com/erp/stockcore/internal/application/order"
	stockapp "github.com/erp/stockcore/internal/application/stock"
	supplyapp "github.com/erp/stockcore/internal/application/supply"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/erp/stockcore/internal/infrastructure/persistence"
	"github.com/erp/stockcore/internal/interfaces/http/dto"
	"github.com/erp/stockcore/internal/interfaces/http/middleware"
	"github.com/erp/stockcore/internal/interfaces/http/router"
	"github.com/erp/stockcore/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

type apiFixture struct {
	engine   *gin.Engine
	items    stock.ItemRepository
	location uuid.UUID
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	require.NoError(t, middleware.SetupValidator())

	db := testutil.NewSQLiteDB(t)
	repos := persistence.NewRepositories(db)
	scope := persistence.NewGormTransactionScope(db)

	engine := gin.New()
	engine.Use(middleware.RequestID())

	r := router.NewRouter(engine)
	for _, routes := range [][]router.RouteRegistrar{
		NewStockHandler(stockapp.NewService(scope, repos, nil)).Routes(),
		NewLedgerHandler(stockapp.NewLedgerService(repos)).Routes(),
		NewOrderHandler(orderapp.NewOrderService(scope, repos, nil, nil)).Routes(),
		NewAlertHandler(alertapp.NewLowStockService(repos, nil)).Routes(),
		NewSupplyHandler(supplyapp.NewWorkflowService(scope, repos, nil, nil)).Routes(),
	} {
		r.Register(routes...)
	}
	r.Setup()

	return &apiFixture{engine: engine, items: repos.Items(), location: uuid.New()}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if body != nil {
		var buf bytes.Buffer
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req = httptest.NewRequest(method, path, &buf)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	var env envelope
	if w.Code != http.StatusNoContent {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (f *apiFixture) item(t *testing.T, sku string, minStock int64) uuid.UUID {
	t.Helper()
	it, err := stock.NewItem("Item "+sku, sku, decimal.NewFromInt(3), decimal.NewFromInt(minStock), decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, f.items.Create(context.Background(), it))
	return it.ID
}

func (f *apiFixture) stockPath(itemID uuid.UUID, suffix string) string {
	return fmt.Sprintf("/api/v1/locations/%s/stock/%s%s", f.location, itemID, suffix)
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestStockEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	flour := f.item(t, "FLOUR", 0)

	t.Run("adjust adds stock", func(t *testing.T) {
		w, env := f.do(t, http.MethodPatch, f.stockPath(flour, "/quantity"), map[string]any{
			"quantity": "12.5", "operation": "add",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		row := decodeData[stockapp.LocationStockResponse](t, env)
		assert.Equal(t, "12.5", row.AvailableQuantity.String())
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("negative quantity fails validation", func(t *testing.T) {
		w, env := f.do(t, http.MethodPatch, f.stockPath(flour, "/quantity"), map[string]any{
			"quantity": "-1", "operation": "add",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, shared.CodeValidationFailed, env.Error.Code)
		require.Len(t, env.Error.Fields, 1)
		assert.Equal(t, "quantity", env.Error.Fields[0].Field)
	})

	t.Run("unknown operation fails validation", func(t *testing.T) {
		w, env := f.do(t, http.MethodPatch, f.stockPath(flour, "/quantity"), map[string]any{
			"quantity": "1", "operation": "multiply",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "operation", env.Error.Fields[0].Field)
	})

	t.Run("malformed json", func(t *testing.T) {
		w, env := f.do(t, http.MethodPatch, f.stockPath(flour, "/quantity"), `{"quantity":`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.NotEqual(t, shared.CodeInternal, env.Error.Code)
	})

	t.Run("bad location id", func(t *testing.T) {
		w, env := f.do(t, http.MethodGet, "/api/v1/locations/not-a-uuid/stock", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, env.Error.Code)
	})

	t.Run("unknown item is not found", func(t *testing.T) {
		w, env := f.do(t, http.MethodPatch, f.stockPath(uuid.New(), "/quantity"), map[string]any{
			"quantity": "1", "operation": "add",
		})
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, shared.CodeNotFound, env.Error.Code)
		assert.NotEmpty(t, env.Error.RequestID)
	})

	t.Run("availability check reports shortages", func(t *testing.T) {
		w, env := f.do(t, http.MethodPost, "/api/v1/stock-availability-check", map[string]any{
			"location_id": f.location,
			"items":       []map[string]any{{"item_id": flour, "quantity": "20"}},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		result := decodeData[stock.Availability](t, env)
		assert.False(t, result.Available)
		require.Len(t, result.Shortages, 1)
		assert.Equal(t, "12.5", result.Shortages[0].Available.String())
	})

	t.Run("bulk update collects per-row errors", func(t *testing.T) {
		w, env := f.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/locations/%s/stock/bulk", f.location), map[string]any{
			"updates": []map[string]any{
				{"item_id": flour, "min_quantity": "5"},
				{"item_id": uuid.New(), "available_quantity": "1"},
			},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		result := decodeData[stockapp.BulkResult](t, env)
		assert.Len(t, result.Success, 1)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, shared.CodeNotFound, result.Errors[0].Code)
	})

	t.Run("list and ledger", func(t *testing.T) {
		w, env := f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/locations/%s/stock?page_size=5", f.location), nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, env.Meta)
		assert.Equal(t, int64(1), env.Meta.Total)
		assert.Equal(t, 5, env.Meta.PageSize)

		w, env = f.do(t, http.MethodGet, "/api/v1/stock-movements?location_id="+f.location.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(1), env.Meta.Total)

		w, _ = f.do(t, http.MethodGet, "/api/v1/stock-movements", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w, env = f.do(t, http.MethodGet, "/api/v1/stock-movements/summary?item_id="+flour.String(), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		summary := decodeData[stock.MovementSummary](t, env)
		assert.Equal(t, int64(1), summary.Count)
		assert.Equal(t, "12.5", summary.TotalIn.String())

		w, env = f.do(t, http.MethodGet, f.stockPath(flour, "/reconcile"), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decodeData[stockapp.ReconcileResult](t, env).Consistent)
	})
}

func TestOrderEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	sugar := f.item(t, "SUGAR", 0)
	_, _ = f.do(t, http.MethodPatch, f.stockPath(sugar, "/quantity"), map[string]any{"quantity": "3", "operation": "set"})

	t.Run("approved shortage is 422 with details", func(t *testing.T) {
		w, env := f.do(t, http.MethodPost, "/api/v1/orders", map[string]any{
			"location_id": f.location,
			"status":      "approved",
			"items":       []map[string]any{{"item_id": sugar, "quantity": "5"}},
		})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, shared.CodeStockShortage, env.Error.Code)
		details, ok := env.Error.Details.(map[string]any)
		require.True(t, ok)
		assert.Len(t, details["shortages"], 1)
	})

	var created orderapp.OrderResponse
	t.Run("create pending then approve", func(t *testing.T) {
		w, env := f.do(t, http.MethodPost, "/api/v1/orders", map[string]any{
			"location_id": f.location,
			"items":       []map[string]any{{"item_id": sugar, "quantity": "2"}},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		created = decodeData[orderapp.OrderResponse](t, env)

		w, env = f.do(t, http.MethodPatch, "/api/v1/orders/"+created.ID.String(), map[string]any{"status": "approved"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.NotNil(t, decodeData[orderapp.OrderResponse](t, env).StockDeductedAt)

		w, env = f.do(t, http.MethodGet, f.stockPath(sugar, ""), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "1", decodeData[stockapp.LocationStockResponse](t, env).AvailableQuantity.String())
	})

	t.Run("approved order cannot be deleted", func(t *testing.T) {
		w, env := f.do(t, http.MethodDelete, "/api/v1/orders/"+created.ID.String(), nil)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, shared.CodeInvalidState, env.Error.Code)
	})

	t.Run("zero quantity line is rejected", func(t *testing.T) {
		w, env := f.do(t, http.MethodPut, "/api/v1/orders/"+created.ID.String()+"/items", map[string]any{
			"items": []map[string]any{{"item_id": sugar, "quantity": "0"}},
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "items[0].quantity", env.Error.Fields[0].Field)
	})

	t.Run("list filters by status", func(t *testing.T) {
		w, env := f.do(t, http.MethodGet, "/api/v1/orders?status=approved&location_id="+f.location.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(1), env.Meta.Total)
	})

	t.Run("unknown order", func(t *testing.T) {
		w, _ := f.do(t, http.MethodPatch, "/api/v1/orders/"+uuid.NewString(), map[string]any{"status": "approved"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAlertEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	f.item(t, "SALT", 4)

	w, env := f.do(t, http.MethodPost, "/api/v1/low-stock-alerts/sweep", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decodeData[alertapp.SweepResult](t, env)
	assert.Equal(t, 1, result.Inserted)

	w, env = f.do(t, http.MethodGet, "/api/v1/low-stock-alerts?resolved=false", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeData[[]alertapp.AlertResponse](t, env), 1)

	w, _ = f.do(t, http.MethodGet, "/api/v1/low-stock-alerts?resolved=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSupplyEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	rice := f.item(t, "RICE", 0)
	source := f.location
	_, _ = f.do(t, http.MethodPatch, f.stockPath(rice, "/quantity"), map[string]any{"quantity": "10", "operation": "add"})

	w, env := f.do(t, http.MethodPost, "/api/v1/stock-transfers", map[string]any{
		"source_location_id":      source,
		"destination_location_id": uuid.New(),
		"items":                   []map[string]any{{"item_id": rice, "quantity": "4"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	transfer := decodeData[supplyapp.TransferResponse](t, env)
	base := "/api/v1/stock-transfers/" + transfer.ID.String()

	w, env = f.do(t, http.MethodPost, base+"/dispatch", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, shared.CodeInvalidState, env.Error.Code)

	w, _ = f.do(t, http.MethodPost, base+"/approve", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = f.do(t, http.MethodPost, base+"/dispatch", map[string]any{
		"items": []map[string]any{{"item_id": rice, "quantity": "4"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = f.do(t, http.MethodGet, f.stockPath(rice, ""), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "6", decodeData[stockapp.LocationStockResponse](t, env).AvailableQuantity.String())

	w, env = f.do(t, http.MethodGet, "/api/v1/stock-movements?reference_type=stock_transfer&reference_id="+transfer.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decodeData[[]stockapp.MovementResponse](t, env), 1)

	w, env = f.do(t, http.MethodGet, "/api/v1/stock-transfers?status=dispatched", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), env.Meta.Total)

	w, _ = f.do(t, http.MethodPost, "/api/v1/purchase-entries/"+uuid.NewString()+"/payments", map[string]any{"amount": "0"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodGet, "/api/v1/grns/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", shared.NewNotFoundError("order", 1), http.StatusNotFound, shared.CodeNotFound},
		{"wrapped invalid state", fmt.Errorf("approve: %w", shared.NewInvalidStateError("transfer", "pending", "dispatched")), http.StatusUnprocessableEntity, shared.CodeInvalidState},
		{"conflict", shared.NewConflictError("duplicate"), http.StatusConflict, shared.CodeConflict},
		{"shortage", &stock.ShortageError{LocationID: uuid.New(), Shortages: []stock.Shortage{{ItemID: uuid.New()}}}, http.StatusUnprocessableEntity, shared.CodeStockShortage},
		{"plain error hides message", errors.New("pq: connection refused"), http.StatusInternalServerError, shared.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			var h BaseHandler
			h.HandleError(c, tt.err)

			require.Equal(t, tt.status, w.Code)
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.NotContains(t, resp.Error.Message, "pq:")
		})
	}
}

type fakeDB struct {
	err error
}

func (f fakeDB) Ping() error { return f.err }

func (f fakeDB) Stats() (persistence.ConnectionStats, error) {
	return persistence.ConnectionStats{MaxOpenConnections: 10, Idle: 2}, nil
}

type fakeScheduler bool

func (s fakeScheduler) IsRunning() bool { return bool(s) }

func TestHealthHandler(t *testing.T) {
	serve := func(db DatabaseChecker, path string) (*httptest.ResponseRecorder, HealthResponse) {
		engine := gin.New()
		router.NewRouter(engine).Register(NewHealthHandler(db, fakeScheduler(true)).Routes()...).Setup()
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		var env envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		var body HealthResponse
		require.NoError(t, json.Unmarshal(env.Data, &body))
		return w, body
	}

	w, body := serve(fakeDB{}, "/api/v1/health/ready")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "up", body.Database)
	assert.Equal(t, "running", body.Scheduler)
	require.NotNil(t, body.Pool)
	assert.Equal(t, 10, body.Pool.MaxOpenConnections)

	w, body = serve(fakeDB{err: errors.New("down")}, "/api/v1/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "down", body.Database)

	w, body = serve(fakeDB{err: errors.New("down")}, "/api/v1/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body.Status)
}
