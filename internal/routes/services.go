package routes

import (
	"device-finance-backoffice/internal/config"
	domainDevice "device-finance-backoffice/internal/domain/device"
	"device-finance-backoffice/internal/domain/event"
	"device-finance-backoffice/internal/infrastructure/database/postgres"
	"device-finance-backoffice/internal/metrics"
	"device-finance-backoffice/internal/usecase/auth"
	"device-finance-backoffice/internal/usecase/code"
	"device-finance-backoffice/internal/usecase/device"
	"device-finance-backoffice/internal/usecase/payment"
	"device-finance-backoffice/internal/usecase/security"
	"device-finance-backoffice/pkg/clock"
)

// Services holds the use cases shared by the HTTP surface and MQTT ingestion.
type Services struct {
	Auth     *auth.Service
	Codes    *code.Service
	Devices  *device.Service
	Payments *payment.Service
	Security *security.Service
}

func NewServices(
	cfg *config.Config,
	db *postgres.DB,
	presence domainDevice.PresenceTracker,
	publisher event.Publisher,
	recorder *metrics.Recorder,
	clk clock.Clock,
) *Services {
	adminRepo := postgres.NewAdminRepository(db)
	codeRepo := postgres.NewCodeRepository(db)
	deviceRepo := postgres.NewDeviceRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	securityRepo := postgres.NewSecurityRepository(db)
	tx := postgres.NewTransactor(db)

	codes := code.NewService(codeRepo, adminRepo, publisher, recorder, clk)
	payments := payment.NewService(paymentRepo, codeRepo, deviceRepo, tx, publisher, recorder, clk, cfg.Payment.InstallmentPeriodMonths)
	devices := device.NewService(deviceRepo, codeRepo, securityRepo, codes, payments, presence, tx, publisher, recorder, clk)

	return &Services{
		Auth:     auth.NewService(adminRepo, cfg.JWT, clk),
		Codes:    codes,
		Devices:  devices,
		Payments: payments,
		Security: security.NewService(securityRepo, deviceRepo, devices, publisher, recorder, clk),
	}
}
