package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	appfinance "github.com/cargoledger/backend/internal/application/finance"
	"github.com/cargoledger/backend/internal/domain/finance"
	"github.com/cargoledger/backend/internal/domain/shared"
	"github.com/cargoledger/backend/internal/domain/shipping"
)

type paymentTestEnv struct {
	shipments *MockShipmentRepository
	payments  *MockPaymentRepository
	audits    *MockAuditLogRepository
	router    *gin.Engine
	userID    uuid.UUID
}

func newPaymentTestEnv(t *testing.T) *paymentTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &paymentTestEnv{
		shipments: new(MockShipmentRepository),
		payments:  new(MockPaymentRepository),
		audits:    new(MockAuditLogRepository),
		userID:    uuid.New(),
	}

	svc := appfinance.NewSettlementService(
		env.shipments, env.payments, env.audits, stubTxManager{}, nil, zap.NewNop())
	h := NewPaymentHandler(svc)

	env.router = gin.New()
	env.router.Use(stubAuth(env.userID))
	env.router.POST("/api/v1/payments", h.Record)
	env.router.GET("/api/v1/payments", h.List)
	env.router.GET("/api/v1/shipments/:id/payments", h.ListByShipment)
	return env
}

func costedShipment(costEgp, paidEgp decimal.Decimal) *shipping.Shipment {
	s := &shipping.Shipment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              "SH-2024-014",
		Name:              "Autumn batch",
		SupplierID:        uuid.New(),
		SupplierName:      "Canton Traders",
		Status:            shipping.StatusReadyForReceipt,
		PurchaseDate:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Costs: shipping.CostBreakdown{
			FinalTotalCostEgp: costEgp,
		},
		TotalPaidEgp: paidEgp,
	}
	s.BalanceEgp = costEgp.Sub(paidEgp)
	return s
}

func TestPaymentHandler_Record(t *testing.T) {
	t.Run("books an EGP payment and reports the settlement state", func(t *testing.T) {
		env := newPaymentTestEnv(t)
		shipment := costedShipment(dec("10000.00"), decimal.Zero)
		lastPaid := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

		env.shipments.On("FindByIDForUpdate", mock.Anything, shipment.ID).Return(shipment, nil)
		env.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
		env.payments.On("SumByShipment", mock.Anything, shipment.ID).Return(dec("4000.00"), nil)
		env.payments.On("LastPaymentDate", mock.Anything, shipment.ID).Return(&lastPaid, nil)
		env.shipments.On("Save", mock.Anything, shipment).Return(nil)
		env.audits.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()

		body := `{
			"shipment_id": "` + shipment.ID.String() + `",
			"payment_date": "2024-06-01",
			"currency": "EGP",
			"amount_original": "4000.00",
			"method": "BANK_TRANSFER",
			"receiver_name": "Hassan"
		}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"total_paid_egp":"4000.00"`)
		assert.Contains(t, w.Body.String(), `"balance_egp":"6000.00"`)
		assert.Contains(t, w.Body.String(), `"payment_state":"PARTIALLY_PAID"`)
		env.payments.AssertExpectations(t)
	})

	t.Run("rejects an overdraw with 422 and both amounts", func(t *testing.T) {
		env := newPaymentTestEnv(t)
		shipment := costedShipment(dec("10000.00"), dec("9900.00"))

		env.shipments.On("FindByIDForUpdate", mock.Anything, shipment.ID).Return(shipment, nil)

		body := `{
			"shipment_id": "` + shipment.ID.String() + `",
			"payment_date": "2024-06-01",
			"currency": "RMB",
			"amount_original": "20",
			"exchange_rate": "6.95"
		}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_OVERPAYMENT")
		assert.Contains(t, w.Body.String(), "139")
		assert.Contains(t, w.Body.String(), "100")
		env.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects an unknown currency", func(t *testing.T) {
		env := newPaymentTestEnv(t)

		body := `{
			"shipment_id": "` + uuid.NewString() + `",
			"payment_date": "2024-06-01",
			"currency": "GBP",
			"amount_original": "100"
		}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects a malformed amount", func(t *testing.T) {
		env := newPaymentTestEnv(t)

		body := `{
			"shipment_id": "` + uuid.NewString() + `",
			"payment_date": "2024-06-01",
			"currency": "EGP",
			"amount_original": "four thousand"
		}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPaymentHandler_ListByShipment(t *testing.T) {
	t.Run("returns the shipment's payments", func(t *testing.T) {
		env := newPaymentTestEnv(t)
		shipment := costedShipment(dec("10000.00"), dec("4000.00"))

		env.shipments.On("FindByID", mock.Anything, shipment.ID).Return(shipment, nil)
		env.payments.On("FindByShipment", mock.Anything, shipment.ID).
			Return([]finance.ShipmentPayment{}, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/shipments/"+shipment.ID.String()+"/payments", nil)
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"success":true`)
	})

	t.Run("rejects a malformed shipment id", func(t *testing.T) {
		env := newPaymentTestEnv(t)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/shipments/not-a-uuid/payments", nil)
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
