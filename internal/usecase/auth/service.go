package auth

import (
	"context"
	"device-finance-backoffice/internal/config"
	"device-finance-backoffice/internal/domain/actor"
	domainAdmin "device-finance-backoffice/internal/domain/admin"
	"device-finance-backoffice/internal/logger"
	"device-finance-backoffice/pkg/clock"
	appErrors "device-finance-backoffice/pkg/errors"
	"device-finance-backoffice/pkg/utils"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service implements back-office account use cases
type Service struct {
	adminRepo domainAdmin.Repository
	jwt       config.JWTConfig
	clock     clock.Clock
}

func NewService(adminRepo domainAdmin.Repository, jwt config.JWTConfig, clk clock.Clock) *Service {
	return &Service{
		adminRepo: adminRepo,
		jwt:       jwt,
		clock:     clk,
	}
}

func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	req.Email = utils.SanitizeEmail(req.Email)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewValidationError(err)
	}

	admin, err := s.adminRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domainAdmin.ErrAdminNotFound) {
			utils.BurnPasswordCheck(req.Password)
			logger.Warn("Login attempt with non-existent email",
				zap.String("email", req.Email),
				zap.String("event", "admin_not_found"),
			)
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !utils.CheckPassword(admin.PasswordHashed, req.Password) {
		logger.Warn("Login attempt with invalid password",
			zap.String("admin_id", admin.ID.String()),
			zap.String("email", admin.Email),
			zap.String("event", "login_failed_invalid_password"),
		)
		return nil, appErrors.ErrInvalidCredentials
	}

	if !admin.IsActive() {
		logger.Warn("Login attempt for suspended admin",
			zap.String("admin_id", admin.ID.String()),
			zap.String("email", admin.Email),
			zap.String("event", "login_failed_suspended"),
		)
		return nil, domainAdmin.ErrAdminInactive
	}

	now := s.clock.Now()
	token, expiresAt, err := utils.GenerateToken(admin.ID, admin.Email, string(admin.Role), s.jwt.Secret, s.jwt.ExpiryHours, now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.adminRepo.UpdateLastLogin(ctx, admin.ID, now); err != nil {
		logger.Warn("Failed to record last login", zap.String("admin_id", admin.ID.String()), zap.Error(err))
	} else {
		admin.LastLoginAt = &now
	}

	logger.Info("Admin logged in successfully",
		zap.String("admin_id", admin.ID.String()),
		zap.String("email", admin.Email),
		zap.String("role", string(admin.Role)),
		zap.String("event", "login_success"),
	)

	return &LoginResponse{
		Admin:       ToAdminResponse(admin),
		AccessToken: token,
		ExpiresAt:   expiresAt.Unix(),
	}, nil
}

// CreateAdmin opens a bank admin account. Only a super admin may call it.
func (s *Service) CreateAdmin(ctx context.Context, a actor.Actor, req *CreateAdminRequest) (*AdminResponse, error) {
	if !a.IsSuperAdmin() {
		return nil, appErrors.ErrInsufficientPermissions
	}
	admin, err := s.create(ctx, req, domainAdmin.RoleAdmin)
	if err != nil {
		return nil, err
	}

	logger.Info("Admin created",
		zap.String("admin_id", admin.ID.String()),
		zap.String("email", admin.Email),
		zap.String("actor", a.String()),
		zap.String("event", "admin_created"),
	)
	return ToAdminResponse(admin), nil
}

// BootstrapSuperAdmin creates the first super admin. Calling it again with the
// same email returns the existing account unchanged.
func (s *Service) BootstrapSuperAdmin(ctx context.Context, req *CreateAdminRequest) (*AdminResponse, bool, error) {
	existing, err := s.adminRepo.GetByEmail(ctx, utils.SanitizeEmail(req.Email))
	if err == nil {
		return ToAdminResponse(existing), false, nil
	}
	if !errors.Is(err, domainAdmin.ErrAdminNotFound) {
		return nil, false, err
	}

	admin, err := s.create(ctx, req, domainAdmin.RoleSuperAdmin)
	if errors.Is(err, domainAdmin.ErrAdminAlreadyExists) {
		existing, err := s.adminRepo.GetByEmail(ctx, req.Email)
		if err != nil {
			return nil, false, err
		}
		return ToAdminResponse(existing), false, nil
	}
	if err != nil {
		return nil, false, err
	}

	logger.Info("Super admin bootstrapped",
		zap.String("admin_id", admin.ID.String()),
		zap.String("email", admin.Email),
		zap.String("event", "super_admin_bootstrapped"),
	)
	return ToAdminResponse(admin), true, nil
}

func (s *Service) ListAdmins(ctx context.Context, a actor.Actor) ([]*AdminResponse, error) {
	if !a.IsSuperAdmin() {
		return nil, appErrors.ErrInsufficientPermissions
	}

	admins, err := s.adminRepo.List(ctx, nil)
	if err != nil {
		return nil, err
	}

	out := make([]*AdminResponse, len(admins))
	for i, admin := range admins {
		out[i] = ToAdminResponse(admin)
	}
	return out, nil
}

func (s *Service) SetAdminStatus(ctx context.Context, a actor.Actor, id uuid.UUID, req *SetAdminStatusRequest) (*AdminResponse, error) {
	if !a.IsSuperAdmin() {
		return nil, appErrors.ErrInsufficientPermissions
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewValidationError(err)
	}
	if self, ok := a.AdminID(); ok && self == id {
		return nil, appErrors.NewAppError("SELF_STATUS_CHANGE", "Cannot change your own account status", nil)
	}

	if err := s.adminRepo.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, err
	}

	admin, err := s.adminRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	logger.Info("Admin status changed",
		zap.String("admin_id", admin.ID.String()),
		zap.String("status", string(admin.Status)),
		zap.String("actor", a.String()),
		zap.String("event", "admin_status_changed"),
	)
	return ToAdminResponse(admin), nil
}

func (s *Service) create(ctx context.Context, req *CreateAdminRequest, role domainAdmin.Role) (*domainAdmin.Admin, error) {
	req.Email = utils.SanitizeEmail(req.Email)
	req.Name = utils.SanitizeString(req.Name)
	req.BankName = utils.SanitizeString(req.BankName)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewValidationError(err)
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return nil, appErrors.NewAppError("WEAK_PASSWORD", err.Error(), appErrors.ErrWeakPassword)
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.clock.Now()
	admin := &domainAdmin.Admin{
		ID:             uuid.New(),
		Email:          req.Email,
		Name:           req.Name,
		BankName:       req.BankName,
		Role:           role,
		Status:         domainAdmin.StatusActive,
		PasswordHashed: hashed,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}
