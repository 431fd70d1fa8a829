package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"device-finance-backoffice/internal/domain/actor"
	domainAdmin "device-finance-backoffice/internal/domain/admin"
	domainCode "device-finance-backoffice/internal/domain/code"
	domainDevice "device-finance-backoffice/internal/domain/device"
	domainPayment "device-finance-backoffice/internal/domain/payment"
	domainSecurity "device-finance-backoffice/internal/domain/security"
	"device-finance-backoffice/internal/logger"
	"device-finance-backoffice/internal/middleware"
	appErrors "device-finance-backoffice/pkg/errors"
	"device-finance-backoffice/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type errorKind struct {
	status int
	code   string
}

// errorKinds maps every domain sentinel to its HTTP status and stable code.
var errorKinds = []struct {
	err  error
	kind errorKind
}{
	{domainCode.ErrCodeNotFound, errorKind{http.StatusNotFound, "CODE_NOT_FOUND"}},
	{domainCode.ErrCodeUnavailable, errorKind{http.StatusConflict, "CODE_UNAVAILABLE"}},
	{domainCode.ErrCodeInvalid, errorKind{http.StatusUnprocessableEntity, "CODE_INVALID"}},
	{domainCode.ErrDuplicateCode, errorKind{http.StatusConflict, "DUPLICATE_CODE"}},
	{domainCode.ErrInvalidBatch, errorKind{http.StatusBadRequest, "INVALID_BATCH"}},

	{domainDevice.ErrDeviceNotFound, errorKind{http.StatusNotFound, "DEVICE_NOT_FOUND"}},
	{domainDevice.ErrDeviceAlreadyRegistered, errorKind{http.StatusConflict, "DEVICE_ALREADY_REGISTERED"}},
	{domainDevice.ErrInvalidStatus, errorKind{http.StatusBadRequest, "INVALID_STATUS"}},
	{domainDevice.ErrInvalidStatusTransition, errorKind{http.StatusConflict, "INVALID_STATUS_TRANSITION"}},

	{domainPayment.ErrInvalidSchedule, errorKind{http.StatusBadRequest, "INVALID_SCHEDULE"}},
	{domainPayment.ErrScheduleExists, errorKind{http.StatusConflict, "SCHEDULE_EXISTS"}},
	{domainPayment.ErrPaymentNotFound, errorKind{http.StatusNotFound, "PAYMENT_NOT_FOUND"}},
	{domainPayment.ErrAlreadyCompleted, errorKind{http.StatusConflict, "ALREADY_COMPLETED"}},
	{domainPayment.ErrInsufficientAmount, errorKind{http.StatusUnprocessableEntity, "INSUFFICIENT_AMOUNT"}},

	{domainSecurity.ErrEvaluationNotFound, errorKind{http.StatusNotFound, "EVALUATION_NOT_FOUND"}},

	{domainAdmin.ErrAdminNotFound, errorKind{http.StatusNotFound, "ADMIN_NOT_FOUND"}},
	{domainAdmin.ErrAdminAlreadyExists, errorKind{http.StatusConflict, "ADMIN_ALREADY_EXISTS"}},
	{domainAdmin.ErrAdminInactive, errorKind{http.StatusForbidden, "ADMIN_INACTIVE"}},

	{appErrors.ErrInvalidCredentials, errorKind{http.StatusUnauthorized, "INVALID_CREDENTIALS"}},
	{appErrors.ErrInvalidToken, errorKind{http.StatusUnauthorized, "INVALID_TOKEN"}},
	{appErrors.ErrUnauthorized, errorKind{http.StatusUnauthorized, "UNAUTHORIZED"}},
	{appErrors.ErrInsufficientPermissions, errorKind{http.StatusForbidden, "INSUFFICIENT_PERMISSIONS"}},
	{appErrors.ErrWeakPassword, errorKind{http.StatusBadRequest, "WEAK_PASSWORD"}},
	{appErrors.ErrInvalidInput, errorKind{http.StatusBadRequest, "INVALID_INPUT"}},
}

// respondWithError writes the error envelope for err. Errors that match no
// known kind are logged and reported as a generic 500.
func respondWithError(c *gin.Context, err error) {
	var appErr *appErrors.AppError
	if errors.As(err, &appErr) && appErr.Code == "VALIDATION_ERROR" {
		utils.ErrorResponseWithCode(c, http.StatusBadRequest, appErr.Code, validationMessage(appErr))
		return
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			message := k.err.Error()
			if appErr != nil {
				message = appErr.Message
			}
			utils.ErrorResponseWithCode(c, k.kind.status, k.kind.code, message)
			return
		}
	}

	if appErr != nil {
		utils.ErrorResponseWithCode(c, http.StatusBadRequest, appErr.Code, appErr.Message)
		return
	}

	_ = c.Error(err)
	logger.WithRequestID(middleware.GetRequestID(c)).Error("Unhandled error",
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	utils.ErrorResponse(c, http.StatusInternalServerError, "Internal server error")
}

// validationMessage lists the offending fields without echoing their values.
func validationMessage(appErr *appErrors.AppError) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(appErr.Err, &fieldErrs) {
		return appErr.Message
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return appErr.Message + ": " + strings.Join(parts, ", ")
}

func invalidBody(c *gin.Context) {
	utils.ErrorResponseWithCode(c, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
}

// mustActor returns the authenticated caller or writes 401.
func mustActor(c *gin.Context) (a actor.Actor, ok bool) {
	a, ok = middleware.ActorFromContext(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
	}
	return a, ok
}
