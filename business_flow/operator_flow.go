package businessflow

import (
	"context"
	"strings"

	"github.com/anshu-9837/Banning/app/dto"
	"github.com/anshu-9837/Banning/models"
	"github.com/anshu-9837/Banning/repository"
	"github.com/anshu-9837/Banning/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OperatorFlow manages the operator allowlist
type OperatorFlow interface {
	// AddOperator provisions an operator out-of-band, e.g. from the CLI
	AddOperator(ctx context.Context, phone, displayName, tier, addedBy string) (*dto.OperatorDTO, error)
	// UpdateOperator changes tier or status on behalf of a logged-in actor of strictly higher tier
	UpdateOperator(ctx context.Context, actorID int64, phone string, request *dto.UpdateOperatorRequest) (*dto.OperatorDTO, error)
	// ForceUpdateOperator changes tier or status without a privilege check
	ForceUpdateOperator(ctx context.Context, phone string, request *dto.UpdateOperatorRequest) (*dto.OperatorDTO, error)
}

// OperatorFlowImpl implements OperatorFlow
type OperatorFlowImpl struct {
	auth         AuthFlow
	operatorRepo repository.OperatorRepository
	sessionRepo  repository.SessionRepository
	logger       *zap.Logger
	db           *gorm.DB
}

// NewOperatorFlow creates a new operator flow instance
func NewOperatorFlow(
	auth AuthFlow,
	operatorRepo repository.OperatorRepository,
	sessionRepo repository.SessionRepository,
	logger *zap.Logger,
	db *gorm.DB,
) OperatorFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OperatorFlowImpl{
		auth:         auth,
		operatorRepo: operatorRepo,
		sessionRepo:  sessionRepo,
		logger:       logger,
		db:           db,
	}
}

func (of *OperatorFlowImpl) AddOperator(ctx context.Context, phone, displayName, tier, addedBy string) (*dto.OperatorDTO, error) {
	canonical, err := NormalizePhone(phone)
	if err != nil {
		return nil, NewBusinessError("INVALID_PHONE", "Invalid phone number format", err)
	}
	if !models.IsValidTier(tier) {
		return nil, NewBusinessError("INVALID_TIER", "Invalid tier", ErrInvalidTier)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = MaskPhone(canonical)
	}

	existing, err := of.operatorRepo.ByPhone(ctx, canonical)
	if err != nil {
		return nil, NewBusinessError("OPERATOR_LOOKUP_FAILED", "Failed to look up operator", storageFault("operator lookup", err))
	}
	if existing != nil {
		return nil, NewBusinessError("OPERATOR_EXISTS", "Operator already exists", ErrOperatorExists)
	}

	now := utils.UTCNow()
	operator := &models.Operator{
		Phone:       canonical,
		DisplayName: displayName,
		Tier:        tier,
		Status:      models.OperatorStatusApproved,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if addedBy != "" {
		operator.AddedBy = &addedBy
	}
	if err := of.operatorRepo.Save(ctx, operator); err != nil {
		return nil, NewBusinessError("OPERATOR_CREATE_FAILED", "Failed to create operator", storageFault("save operator", err))
	}

	of.logger.Info("Operator added", zap.String("phone", MaskPhone(canonical)), zap.String("tier", tier))

	out := ToOperatorDTO(*operator)
	return &out, nil
}

func (of *OperatorFlowImpl) UpdateOperator(ctx context.Context, actorID int64, phone string, request *dto.UpdateOperatorRequest) (*dto.OperatorDTO, error) {
	session, err := of.auth.CurrentSession(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return of.update(ctx, phone, request, session.Tier)
}

func (of *OperatorFlowImpl) ForceUpdateOperator(ctx context.Context, phone string, request *dto.UpdateOperatorRequest) (*dto.OperatorDTO, error) {
	return of.update(ctx, phone, request, "")
}

// update applies request; an empty actorTier skips the privilege check
func (of *OperatorFlowImpl) update(ctx context.Context, phone string, request *dto.UpdateOperatorRequest, actorTier string) (*dto.OperatorDTO, error) {
	if request.Tier == nil && request.Status == nil {
		return nil, NewBusinessError("NOTHING_TO_UPDATE", "Nothing to update", ErrNothingToUpdate)
	}
	if request.Tier != nil && !models.IsValidTier(*request.Tier) {
		return nil, NewBusinessError("INVALID_TIER", "Invalid tier", ErrInvalidTier)
	}
	if request.Status != nil && !models.IsValidOperatorStatus(*request.Status) {
		return nil, NewBusinessError("INVALID_STATUS", "Invalid status", ErrInvalidStatus)
	}

	canonical, err := NormalizePhone(phone)
	if err != nil {
		return nil, NewBusinessError("INVALID_PHONE", "Invalid phone number format", err)
	}

	var updated *models.Operator
	err = repository.WithTransaction(ctx, of.db, func(txCtx context.Context) error {
		operator, err := of.operatorRepo.ByPhone(txCtx, canonical)
		if err != nil {
			return storageFault("operator lookup", err)
		}
		if operator == nil {
			return ErrOperatorNotFound
		}

		if actorTier != "" {
			if !models.OutranksTier(actorTier, operator.Tier) {
				return ErrInsufficientTier
			}
			if request.Tier != nil && !models.OutranksTier(actorTier, *request.Tier) {
				return ErrInsufficientTier
			}
		}

		if _, err := of.operatorRepo.UpdateTierAndStatus(txCtx, canonical, request.Tier, request.Status); err != nil {
			return storageFault("update operator", err)
		}

		if request.Status != nil && *request.Status == models.OperatorStatusRevoked {
			if err := of.endSessions(txCtx, canonical); err != nil {
				return err
			}
		}

		updated, err = of.operatorRepo.ByPhone(txCtx, canonical)
		if err != nil {
			return storageFault("operator lookup", err)
		}
		return nil
	})
	if err != nil {
		return nil, NewBusinessError(operatorErrorCode(err), "Failed to update operator", err)
	}

	of.logger.Info("Operator updated",
		zap.String("phone", MaskPhone(canonical)),
		zap.String("tier", updated.Tier),
		zap.String("status", updated.Status))

	out := ToOperatorDTO(*updated)
	return &out, nil
}

// endSessions logs a revoked operator out everywhere
func (of *OperatorFlowImpl) endSessions(ctx context.Context, phone string) error {
	sessions, err := of.sessionRepo.ByFilter(ctx, models.SessionFilter{Phone: &phone, IsActive: utils.ToPtr(true)}, "", 0, 0)
	if err != nil {
		return storageFault("load sessions", err)
	}
	now := utils.UTCNow()
	for _, s := range sessions {
		if _, err := of.sessionRepo.Deactivate(ctx, s.ID, now); err != nil {
			return storageFault("deactivate session", err)
		}
	}
	return nil
}

func operatorErrorCode(err error) string {
	switch {
	case IsOperatorNotFound(err):
		return "OPERATOR_NOT_FOUND"
	case IsInsufficientTier(err):
		return "INSUFFICIENT_TIER"
	default:
		return "OPERATOR_UPDATE_FAILED"
	}
}
