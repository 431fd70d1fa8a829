package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"device-finance-backoffice/internal/domain/actor"
	domainCode "device-finance-backoffice/internal/domain/code"
	domainDevice "device-finance-backoffice/internal/domain/device"
	domainPayment "device-finance-backoffice/internal/domain/payment"
	"device-finance-backoffice/internal/middleware"
	"device-finance-backoffice/internal/usecase/device"
	"device-finance-backoffice/internal/usecase/payment"
	appErrors "device-finance-backoffice/pkg/errors"
	"device-finance-backoffice/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    json.RawMessage  `json:"data"`
	Error   *utils.ErrorBody `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func withActor(a actor.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, a.ID)
		c.Set(middleware.ContextRole, string(a.Role))
		c.Next()
	}
}

type fakeDeviceService struct {
	calls []actor.Actor
	err   error
}

func (f *fakeDeviceService) record(a actor.Actor) error {
	f.calls = append(f.calls, a)
	return f.err
}

func (f *fakeDeviceService) Register(_ context.Context, a actor.Actor, req *device.RegisterDeviceRequest) (*device.DeviceResponse, error) {
	if err := f.record(a); err != nil {
		return nil, err
	}
	return &device.DeviceResponse{DeviceID: req.DeviceID, Status: domainDevice.StatusActive}, nil
}

func (f *fakeDeviceService) CheckStatus(_ context.Context, a actor.Actor, deviceID string) (*device.StatusResponse, error) {
	if err := f.record(a); err != nil {
		return nil, err
	}
	return &device.StatusResponse{DeviceID: deviceID, Status: domainDevice.StatusActive}, nil
}

func (f *fakeDeviceService) Lock(_ context.Context, a actor.Actor, deviceID string, req *device.LockDeviceRequest) (*device.DeviceResponse, error) {
	if err := f.record(a); err != nil {
		return nil, err
	}
	return &device.DeviceResponse{DeviceID: deviceID, Status: domainDevice.StatusLocked, LockReason: &req.Reason}, nil
}

func (f *fakeDeviceService) Unlock(_ context.Context, a actor.Actor, deviceID string) (*device.DeviceResponse, error) {
	if err := f.record(a); err != nil {
		return nil, err
	}
	return &device.DeviceResponse{DeviceID: deviceID, Status: domainDevice.StatusUnlocked}, nil
}

func (f *fakeDeviceService) Get(_ context.Context, a actor.Actor, deviceID string) (*device.DeviceResponse, error) {
	if err := f.record(a); err != nil {
		return nil, err
	}
	return &device.DeviceResponse{DeviceID: deviceID}, nil
}

func (f *fakeDeviceService) List(_ context.Context, a actor.Actor, _ *device.DeviceFilterRequest) (*device.DeviceListResponse, error) {
	if err := f.record(a); err != nil {
		return nil, err
	}
	return &device.DeviceListResponse{}, nil
}

func TestRespondWithErrorMapsKinds(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "code unavailable", err: domainCode.ErrCodeUnavailable, wantStatus: http.StatusConflict, wantCode: "CODE_UNAVAILABLE"},
		{name: "wrapped code invalid", err: fmt.Errorf("register: %w", domainCode.ErrCodeInvalid), wantStatus: http.StatusUnprocessableEntity, wantCode: "CODE_INVALID"},
		{name: "device not found", err: domainDevice.ErrDeviceNotFound, wantStatus: http.StatusNotFound, wantCode: "DEVICE_NOT_FOUND"},
		{name: "schedule exists", err: domainPayment.ErrScheduleExists, wantStatus: http.StatusConflict, wantCode: "SCHEDULE_EXISTS"},
		{name: "already completed", err: domainPayment.ErrAlreadyCompleted, wantStatus: http.StatusConflict, wantCode: "ALREADY_COMPLETED"},
		{name: "insufficient amount", err: domainPayment.ErrInsufficientAmount, wantStatus: http.StatusUnprocessableEntity, wantCode: "INSUFFICIENT_AMOUNT"},
		{name: "invalid credentials", err: appErrors.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized, wantCode: "INVALID_CREDENTIALS"},
		{name: "insufficient permissions", err: appErrors.ErrInsufficientPermissions, wantStatus: http.StatusForbidden, wantCode: "INSUFFICIENT_PERMISSIONS"},
		{name: "app error without sentinel", err: appErrors.NewAppError("SELF_STATUS_CHANGE", "Cannot change your own account status", nil), wantStatus: http.StatusBadRequest, wantCode: "SELF_STATUS_CHANGE"},
		{name: "unknown error", err: errors.New("pq: connection reset"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", func(c *gin.Context) { respondWithError(c, tt.err) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			env := decode(t, w)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			assert.NotContains(t, env.Error.Message, "pq:")
		})
	}
}

func TestRespondWithErrorListsInvalidFields(t *testing.T) {
	err := utils.ValidateStruct(&device.LockDeviceRequest{Reason: ""})
	require.Error(t, err)

	r := gin.New()
	r.GET("/", func(c *gin.Context) { respondWithError(c, appErrors.NewValidationError(err)) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "Invalid input: Reason failed required", env.Error.Message)
}

func TestDeviceRoutesUseDeviceActor(t *testing.T) {
	svc := &fakeDeviceService{}
	r := gin.New()
	NewDeviceHandler(svc).RegisterDeviceRoutes(r.Group("/api/v1"))

	body := `{"device_id":"DEV-1","code":"abcd1234abcd1234"}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/devices/register", strings.NewReader(body)))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/devices/DEV-1/status", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []actor.Actor{actor.Device("DEV-1"), actor.Device("DEV-1")}, svc.calls)
}

func TestDeviceRegisterAttributesTrimmedDeviceID(t *testing.T) {
	svc := &fakeDeviceService{}
	r := gin.New()
	NewDeviceHandler(svc).RegisterDeviceRoutes(r.Group(""))

	body := `{"device_id":"  DEV-9 ","code":"abcd1234abcd1234"}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/devices/register", strings.NewReader(body)))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []actor.Actor{actor.Device("DEV-9")}, svc.calls)
}

func TestDeviceRegisterRejectsMalformedBody(t *testing.T) {
	svc := &fakeDeviceService{}
	r := gin.New()
	NewDeviceHandler(svc).RegisterDeviceRoutes(r.Group(""))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/devices/register", strings.NewReader(`{"device_id":`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_BODY", decode(t, w).Error.Code)
	assert.Empty(t, svc.calls)
}

func TestStaffDeviceRoutes(t *testing.T) {
	staff := actor.Actor{ID: uuid.NewString(), Role: actor.RoleAdmin}

	t.Run("given an authenticated admin when locking then the actor is passed through", func(t *testing.T) {
		svc := &fakeDeviceService{}
		r := gin.New()
		NewDeviceHandler(svc).RegisterRoutes(r.Group("", withActor(staff)))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/devices/DEV-1/lock", strings.NewReader(`{"reason":"fraud review"}`)))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []actor.Actor{staff}, svc.calls)

		var resp device.DeviceResponse
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
		assert.Equal(t, domainDevice.StatusLocked, resp.Status)
	})

	t.Run("given no authenticated caller then 401", func(t *testing.T) {
		svc := &fakeDeviceService{}
		r := gin.New()
		NewDeviceHandler(svc).RegisterRoutes(r.Group(""))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/devices/DEV-1/unlock", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, svc.calls)
	})

	t.Run("given an illegal transition then 409", func(t *testing.T) {
		svc := &fakeDeviceService{err: domainDevice.ErrInvalidStatusTransition}
		r := gin.New()
		NewDeviceHandler(svc).RegisterRoutes(r.Group("", withActor(staff)))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/devices/DEV-1/unlock", nil))

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

type fakePaymentService struct {
	gotInstallment uuid.UUID
	gotAmount      decimal.Decimal
	err            error
}

func (f *fakePaymentService) CreateSchedule(context.Context, actor.Actor, *payment.CreateScheduleRequest) (*payment.ScheduleResponse, error) {
	return &payment.ScheduleResponse{}, f.err
}

func (f *fakePaymentService) ProcessPayment(_ context.Context, _ actor.Actor, id uuid.UUID, req *payment.ProcessPaymentRequest) (*payment.ProcessPaymentResponse, error) {
	f.gotInstallment = id
	f.gotAmount = req.Amount
	if f.err != nil {
		return nil, f.err
	}
	return &payment.ProcessPaymentResponse{PlanCompleted: true}, nil
}

func (f *fakePaymentService) StatusByCode(context.Context, actor.Actor, uuid.UUID) (*payment.PaymentStatusResponse, error) {
	return &payment.PaymentStatusResponse{}, f.err
}

func (f *fakePaymentService) StatusByDevice(context.Context, actor.Actor, string) (*payment.PaymentStatusResponse, error) {
	return &payment.PaymentStatusResponse{}, f.err
}

func (f *fakePaymentService) ListInstallments(context.Context, actor.Actor, uuid.UUID) ([]payment.InstallmentResponse, error) {
	return nil, f.err
}

func TestProcessPaymentRoute(t *testing.T) {
	staff := actor.Actor{ID: uuid.NewString(), Role: actor.RoleSuperAdmin}
	id := uuid.New()

	svc := &fakePaymentService{}
	r := gin.New()
	NewPaymentHandler(svc).RegisterRoutes(r.Group("", withActor(staff)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payments/installments/"+id.String()+"/pay", strings.NewReader(`{"amount":"150.00"}`)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, svc.gotInstallment)
	assert.True(t, svc.gotAmount.Equal(decimal.NewFromInt(150)))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payments/installments/not-a-uuid/pay", strings.NewReader(`{"amount":"1"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/payments/codes/nope", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthReportsDegradedDependencies(t *testing.T) {
	r := gin.New()
	NewHealthHandler(map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
	}).RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	env := decode(t, w)
	assert.Contains(t, string(env.Data), `"redis":"unhealthy"`)
	assert.Contains(t, string(env.Data), `"database":"healthy"`)
}
