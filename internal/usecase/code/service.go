package code

import (
	"context"
	"device-finance-backoffice/internal/domain/actor"
	domainAdmin "device-finance-backoffice/internal/domain/admin"
	domainCode "device-finance-backoffice/internal/domain/code"
	"device-finance-backoffice/internal/domain/event"
	"device-finance-backoffice/internal/logger"
	"device-finance-backoffice/internal/metrics"
	"device-finance-backoffice/pkg/clock"
	appErrors "device-finance-backoffice/pkg/errors"
	"device-finance-backoffice/pkg/utils"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const eventSource = "device-finance-backoffice/codes"

// Service implements the code registry.
type Service struct {
	codeRepo  domainCode.Repository
	adminRepo domainAdmin.Repository
	publisher event.Publisher
	metrics   *metrics.Recorder
	clock     clock.Clock
}

func NewService(
	codeRepo domainCode.Repository,
	adminRepo domainAdmin.Repository,
	publisher event.Publisher,
	recorder *metrics.Recorder,
	clk clock.Clock,
) *Service {
	if publisher == nil {
		publisher = event.NopPublisher{}
	}
	return &Service{
		codeRepo:  codeRepo,
		adminRepo: adminRepo,
		publisher: publisher,
		metrics:   recorder,
		clock:     clk,
	}
}

// Generate mints a batch of available codes. The batch is persisted as a whole or not at all.
func (s *Service) Generate(ctx context.Context, a actor.Actor, req *GenerateCodesRequest) ([]CodeResponse, error) {
	if !a.IsSuperAdmin() {
		return nil, appErrors.ErrInsufficientPermissions
	}
	if req.Quantity < 1 || req.Price.IsNegative() {
		return nil, domainCode.ErrInvalidBatch
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewValidationError(err)
	}

	now := s.clock.Now()
	price := req.Price.Round(2)
	codes := make([]*domainCode.DeviceCode, req.Quantity)
	for i := range codes {
		value, err := domainCode.NewCodeValue()
		if err != nil {
			return nil, err
		}
		codes[i] = &domainCode.DeviceCode{
			ID:        uuid.New(),
			Code:      value,
			Price:     price,
			Status:    domainCode.StatusAvailable,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	if err := s.codeRepo.CreateBatch(ctx, codes); err != nil {
		return nil, err
	}

	s.metrics.CodesGenerated(len(codes))
	logger.Info("Device codes generated",
		zap.Int("quantity", len(codes)),
		zap.String("price", price.String()),
		zap.String("actor", a.String()),
		zap.String("event", "codes_generated"),
	)
	s.publish(ctx, event.Event{
		Type:       event.CodesGenerated,
		Subject:    codes[0].ID.String(),
		Actor:      a,
		OccurredAt: now,
		Data:       map[string]interface{}{"quantity": len(codes), "price": price.String()},
	})

	out := make([]CodeResponse, len(codes))
	for i, c := range codes {
		out[i] = *ToCodeResponse(c)
	}
	return out, nil
}

// Sell hands an available code to an admin. Concurrent sales of the same code have exactly one winner.
func (s *Service) Sell(ctx context.Context, a actor.Actor, codeID uuid.UUID, req *SellCodeRequest) (*CodeResponse, error) {
	if !a.IsSuperAdmin() {
		return nil, appErrors.ErrInsufficientPermissions
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewValidationError(err)
	}

	buyer, err := s.adminRepo.GetByID(ctx, req.BuyerID)
	if err != nil {
		return nil, err
	}
	if !buyer.IsActive() {
		return nil, domainAdmin.ErrAdminInactive
	}

	now := s.clock.Now()
	if err := s.codeRepo.MarkSold(ctx, codeID, buyer.ID, now); err != nil {
		return nil, err
	}

	sold, err := s.codeRepo.GetByID(ctx, codeID)
	if err != nil {
		return nil, err
	}

	s.metrics.CodeSold()
	logger.Info("Device code sold",
		zap.String("code_id", sold.ID.String()),
		zap.String("buyer_id", buyer.ID.String()),
		zap.String("actor", a.String()),
		zap.String("event", "code_sold"),
	)
	s.publish(ctx, event.Event{
		Type:       event.CodeSold,
		Subject:    sold.ID.String(),
		Actor:      a,
		OccurredAt: now,
		Data:       map[string]string{"code_id": sold.ID.String(), "buyer_id": buyer.ID.String()},
	})

	return ToCodeResponse(sold), nil
}

// Lookup finds a code by its value. Admins only see codes sold to them.
func (s *Service) Lookup(ctx context.Context, a actor.Actor, value string) (*CodeResponse, error) {
	if !a.IsStaff() {
		return nil, appErrors.ErrInsufficientPermissions
	}

	c, err := s.codeRepo.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(value)))
	if err != nil {
		return nil, err
	}
	if !s.canSee(a, c) {
		return nil, domainCode.ErrCodeNotFound
	}

	return ToCodeResponse(c), nil
}

func (s *Service) List(ctx context.Context, a actor.Actor, filter *CodeFilterRequest) (*CodeListResponse, error) {
	if !a.IsStaff() {
		return nil, appErrors.ErrInsufficientPermissions
	}
	if err := utils.ValidateStruct(filter); err != nil {
		return nil, appErrors.NewValidationError(err)
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	domainFilter := &domainCode.Filter{
		Status:   filter.Status,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	if !a.IsSuperAdmin() {
		adminID, _ := a.AdminID()
		domainFilter.SoldTo = &adminID
	}

	codes, total, err := s.codeRepo.List(ctx, domainFilter)
	if err != nil {
		return nil, err
	}

	responses := make([]CodeResponse, len(codes))
	for i, c := range codes {
		responses[i] = *ToCodeResponse(c)
	}

	totalPages := int(total) / filter.PageSize
	if int(total)%filter.PageSize > 0 {
		totalPages++
	}

	return &CodeListResponse{
		Codes:      responses,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}, nil
}

// Activate consumes a sold code during device registration. It is not exposed
// over HTTP; a code may only be activated together with the device that uses it.
func (s *Service) Activate(ctx context.Context, value string) (*domainCode.DeviceCode, error) {
	c, err := s.codeRepo.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(value)))
	if err != nil {
		if errors.Is(err, domainCode.ErrCodeNotFound) {
			return nil, domainCode.ErrCodeInvalid
		}
		return nil, err
	}
	if !c.IsSold() {
		return nil, domainCode.ErrCodeInvalid
	}

	now := s.clock.Now()
	if err := s.codeRepo.MarkActivated(ctx, c.ID, now); err != nil {
		return nil, err
	}

	c.Status = domainCode.StatusActivated
	c.ActivatedAt = &now
	c.UpdatedAt = now
	return c, nil
}

func (s *Service) canSee(a actor.Actor, c *domainCode.DeviceCode) bool {
	if a.IsSuperAdmin() {
		return true
	}
	adminID, ok := a.AdminID()
	return ok && c.OwnedBy(adminID)
}

func (s *Service) publish(ctx context.Context, e event.Event) {
	e.Source = eventSource
	if err := s.publisher.Publish(ctx, e); err != nil {
		logger.Warn("Failed to publish lifecycle event",
			zap.String("type", string(e.Type)),
			zap.String("subject", e.Subject),
			zap.Error(err),
		)
	}
}
