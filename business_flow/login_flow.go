package businessflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anshu-9837/Banning/app/dto"
	"github.com/anshu-9837/Banning/app/services"
	"github.com/anshu-9837/Banning/models"
	"github.com/anshu-9837/Banning/repository"
	"github.com/anshu-9837/Banning/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthFlow handles the phone + one-time-code login of operators
type AuthFlow interface {
	RequestCode(ctx context.Context, request *dto.RequestCodeRequest, metadata *ClientMetadata) (*dto.RequestCodeResponse, error)
	VerifyAndLogin(ctx context.Context, request *dto.VerifyCodeRequest, metadata *ClientMetadata) (*dto.VerifyCodeResponse, error)
	Logout(ctx context.Context, actorID int64, metadata *ClientMetadata) (*dto.LogoutResponse, error)
	CurrentSession(ctx context.Context, actorID int64) (*models.Session, error)
	SessionByToken(ctx context.Context, sessionToken string) (*models.Session, error)
	SetLanguage(ctx context.Context, actorID int64, request *dto.UpdateLanguageRequest) (*dto.SessionInfo, error)
	ExpireIdleSessions(ctx context.Context) (int, error)
}

// AuthSettings tunes code lifetime, attempts and session idling
type AuthSettings struct {
	CodeTTL        time.Duration
	MaxAttempts    int
	BcryptCost     int
	SessionTimeout time.Duration
}

func DefaultAuthSettings() AuthSettings {
	return AuthSettings{
		CodeTTL:        utils.OTPExpiry,
		MaxAttempts:    utils.OTPMaxAttempts,
		BcryptCost:     bcrypt.DefaultCost,
		SessionTimeout: utils.SessionTimeout,
	}
}

// AuthFlowImpl implements the authentication business flow
type AuthFlowImpl struct {
	operatorRepo    repository.OperatorRepository
	codeRepo        repository.OneTimeCodeRepository
	sessionRepo     repository.SessionRepository
	loginLogRepo    repository.LoginLogRepository
	tokenService    services.TokenService
	notificationSvc services.NotificationService
	settings        AuthSettings
	logger          *zap.Logger
	db              *gorm.DB
}

// NewAuthFlow creates a new authentication flow instance
func NewAuthFlow(
	operatorRepo repository.OperatorRepository,
	codeRepo repository.OneTimeCodeRepository,
	sessionRepo repository.SessionRepository,
	loginLogRepo repository.LoginLogRepository,
	tokenService services.TokenService,
	notificationSvc services.NotificationService,
	settings AuthSettings,
	logger *zap.Logger,
	db *gorm.DB,
) AuthFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthFlowImpl{
		operatorRepo:    operatorRepo,
		codeRepo:        codeRepo,
		sessionRepo:     sessionRepo,
		loginLogRepo:    loginLogRepo,
		tokenService:    tokenService,
		notificationSvc: notificationSvc,
		settings:        settings,
		logger:          logger,
		db:              db,
	}
}

// RequestCode issues a login code to an approved operator phone
func (af *AuthFlowImpl) RequestCode(ctx context.Context, request *dto.RequestCodeRequest, metadata *ClientMetadata) (*dto.RequestCodeResponse, error) {
	phone, err := NormalizePhone(request.Phone)
	if err != nil {
		return nil, NewBusinessError("INVALID_PHONE", "Invalid phone number format", err)
	}

	operator, err := af.operatorRepo.ByPhone(ctx, phone)
	if err != nil {
		return nil, NewBusinessError("CODE_REQUEST_FAILED", "Failed to look up operator", storageFault("operator lookup", err))
	}
	if operator == nil || !operator.IsApproved() {
		return nil, NewBusinessError("PHONE_NOT_APPROVED", "Phone number is not an approved operator", ErrPhoneNotApproved)
	}

	code, err := generateLoginCode()
	if err != nil {
		return nil, NewBusinessError("CODE_REQUEST_FAILED", "Failed to generate login code", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), af.settings.BcryptCost)
	if err != nil {
		return nil, NewBusinessError("CODE_REQUEST_FAILED", "Failed to hash login code", err)
	}

	now := utils.UTCNow()
	otc := &models.OneTimeCode{
		Phone:     phone,
		CodeHash:  string(hash),
		Attempts:  0,
		CreatedAt: now,
		ExpiresAt: now.Add(af.settings.CodeTTL),
	}
	if err := af.codeRepo.Save(ctx, otc); err != nil {
		return nil, NewBusinessError("CODE_REQUEST_FAILED", "Failed to store login code", storageFault("save code", err))
	}

	if err := af.notificationSvc.SendLoginCode(ctx, phone, code, af.settings.CodeTTL); err != nil {
		af.logger.Error("Failed to deliver login code", zap.String("phone", MaskPhone(phone)), zap.Error(err))
		return nil, NewBusinessError("CODE_DELIVERY_FAILED", "Failed to deliver login code", err)
	}

	af.logAction(ctx, nil, phone, models.LoginActionCodeRequested, nil, metadata)

	return &dto.RequestCodeResponse{
		MaskedPhone: MaskPhone(phone),
		ExpiresAt:   otc.ExpiresAt,
		ExpiresIn:   int(af.settings.CodeTTL.Seconds()),
	}, nil
}

// VerifyAndLogin checks the latest code for the phone and opens a session for the actor
func (af *AuthFlowImpl) VerifyAndLogin(ctx context.Context, request *dto.VerifyCodeRequest, metadata *ClientMetadata) (*dto.VerifyCodeResponse, error) {
	phone, err := NormalizePhone(request.Phone)
	if err != nil {
		return nil, NewBusinessError("INVALID_PHONE", "Invalid phone number format", err)
	}

	var (
		verifyErr error
		operator  *models.Operator
		session   *models.Session
	)
	now := utils.UTCNow()

	// The attempt counter must survive a wrong guess, so verification failures are
	// carried out of the closure instead of rolling the transaction back.
	err = repository.WithTransaction(ctx, af.db, func(txCtx context.Context) error {
		code, err := af.codeRepo.LatestByPhone(txCtx, phone, true)
		if err != nil {
			return storageFault("load code", err)
		}
		if code == nil {
			verifyErr = ErrNoCodeFound
			return nil
		}
		if code.IsExpiredAt(now) {
			verifyErr = ErrExpired
			return nil
		}
		if !code.CanAttempt(af.settings.MaxAttempts) {
			verifyErr = ErrMaxAttemptsExceeded
			return nil
		}

		if bcrypt.CompareHashAndPassword([]byte(code.CodeHash), []byte(request.Code)) != nil {
			counted, err := af.codeRepo.IncrementAttempts(txCtx, code.ID, af.settings.MaxAttempts)
			if err != nil {
				return storageFault("count attempt", err)
			}
			if !counted {
				verifyErr = ErrMaxAttemptsExceeded
				return nil
			}
			verifyErr = ErrInvalidCode
			return nil
		}

		if _, err := af.codeRepo.DeleteByPhone(txCtx, phone); err != nil {
			return storageFault("delete codes", err)
		}

		operator, err = af.operatorRepo.ByPhone(txCtx, phone)
		if err != nil {
			return storageFault("operator lookup", err)
		}
		if operator == nil || !operator.IsApproved() {
			verifyErr = ErrOperatorNotFound
			return nil
		}

		session, err = af.createSession(txCtx, operator, request.ActorID, request.ActorName, now)
		if err != nil {
			return err
		}

		actorID := request.ActorID
		return af.saveLog(txCtx, &actorID, phone, models.LoginActionSuccess, nil, metadata)
	})
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}
	if verifyErr != nil {
		detail := verifyErr.Error()
		actorID := request.ActorID
		af.logAction(ctx, &actorID, phone, models.LoginActionFailed, &detail, metadata)
		return nil, NewBusinessError(loginErrorCode(verifyErr), "Login failed", verifyErr)
	}

	accessToken, expiresAt, err := af.tokenService.GenerateAccessToken(session.ActorID, session.SessionToken)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to issue access token", err)
	}

	af.logger.Info("Operator logged in",
		zap.Int64("actor_id", session.ActorID),
		zap.String("phone", MaskPhone(phone)),
		zap.String("tier", operator.Tier))

	return &dto.VerifyCodeResponse{
		DisplayName:  operator.DisplayName,
		Tier:         operator.Tier,
		MaskedPhone:  MaskPhone(phone),
		SessionToken: session.SessionToken,
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresAt:    expiresAt,
	}, nil
}

// Logout closes the actor's active session. LoggedOut is false when there was none.
func (af *AuthFlowImpl) Logout(ctx context.Context, actorID int64, metadata *ClientMetadata) (*dto.LogoutResponse, error) {
	session, err := af.sessionRepo.ActiveByActorID(ctx, actorID)
	if err != nil {
		return nil, NewBusinessError("LOGOUT_FAILED", "Failed to load session", storageFault("load session", err))
	}
	if session == nil {
		return &dto.LogoutResponse{LoggedOut: false}, nil
	}

	affected, err := af.sessionRepo.Deactivate(ctx, session.ID, utils.UTCNow())
	if err != nil {
		return nil, NewBusinessError("LOGOUT_FAILED", "Failed to end session", storageFault("deactivate session", err))
	}
	if affected == 0 {
		return &dto.LogoutResponse{LoggedOut: false}, nil
	}

	af.logAction(ctx, &actorID, session.Phone, models.LoginActionLogout, nil, metadata)

	return &dto.LogoutResponse{LoggedOut: true}, nil
}

// CurrentSession returns the actor's active session and records the activity
func (af *AuthFlowImpl) CurrentSession(ctx context.Context, actorID int64) (*models.Session, error) {
	session, err := af.sessionRepo.ActiveByActorID(ctx, actorID)
	if err != nil {
		return nil, NewBusinessError("SESSION_LOOKUP_FAILED", "Failed to load session", storageFault("load session", err))
	}
	return af.keepAlive(ctx, session)
}

// SessionByToken resolves a session token to the active session it names
func (af *AuthFlowImpl) SessionByToken(ctx context.Context, sessionToken string) (*models.Session, error) {
	session, err := af.sessionRepo.ActiveByToken(ctx, sessionToken)
	if err != nil {
		return nil, NewBusinessError("SESSION_LOOKUP_FAILED", "Failed to load session", storageFault("load session", err))
	}
	return af.keepAlive(ctx, session)
}

// SetLanguage switches the interface language of the actor's session
func (af *AuthFlowImpl) SetLanguage(ctx context.Context, actorID int64, request *dto.UpdateLanguageRequest) (*dto.SessionInfo, error) {
	if !models.IsValidLanguage(request.Language) {
		return nil, NewBusinessError("INVALID_LANGUAGE", "Unsupported language", ErrInvalidLanguage)
	}

	session, err := af.CurrentSession(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if err := af.sessionRepo.UpdateLanguage(ctx, session.ID, request.Language); err != nil {
		return nil, NewBusinessError("LANGUAGE_UPDATE_FAILED", "Failed to update language", storageFault("update language", err))
	}
	session.Language = request.Language

	info := ToSessionInfo(*session)
	return &info, nil
}

// ExpireIdleSessions deactivates every session idle longer than the session timeout
func (af *AuthFlowImpl) ExpireIdleSessions(ctx context.Context) (int, error) {
	cutoff := utils.UTCNow().Add(-af.settings.SessionTimeout)
	expired, err := af.sessionRepo.ExpireIdle(ctx, cutoff)
	if err != nil {
		return 0, storageFault("expire sessions", err)
	}

	for _, s := range expired {
		actorID := s.ActorID
		af.logAction(ctx, &actorID, s.Phone, models.LoginActionSessionExpired, nil, nil)
	}
	if len(expired) > 0 {
		af.logger.Info("Expired idle sessions", zap.Int("count", len(expired)))
	}

	return len(expired), nil
}

func (af *AuthFlowImpl) keepAlive(ctx context.Context, session *models.Session) (*models.Session, error) {
	if session == nil {
		return nil, NewBusinessError("NOT_LOGGED_IN", "Login required", ErrNotLoggedIn)
	}

	now := utils.UTCNow()
	if session.IsIdle(now, af.settings.SessionTimeout) {
		if _, err := af.sessionRepo.Deactivate(ctx, session.ID, session.LastActiveAt); err != nil {
			return nil, NewBusinessError("SESSION_LOOKUP_FAILED", "Failed to expire session", storageFault("deactivate session", err))
		}
		actorID := session.ActorID
		af.logAction(ctx, &actorID, session.Phone, models.LoginActionSessionExpired, nil, nil)
		return nil, NewBusinessError("SESSION_EXPIRED", "Session expired, please log in again", ErrNotLoggedIn)
	}

	if err := af.sessionRepo.Touch(ctx, session.ID, now); err != nil {
		return nil, NewBusinessError("SESSION_LOOKUP_FAILED", "Failed to update session", storageFault("touch session", err))
	}
	session.LastActiveAt = now

	return session, nil
}

// createSession supersedes every active session of the phone or actor and opens a new one
func (af *AuthFlowImpl) createSession(ctx context.Context, operator *models.Operator, actorID int64, actorName string, now time.Time) (*models.Session, error) {
	if _, err := af.sessionRepo.DeactivateForLogin(ctx, operator.Phone, actorID); err != nil {
		return nil, storageFault("supersede sessions", err)
	}

	token, err := newSessionToken(now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	session := &models.Session{
		Phone:        operator.Phone,
		ActorID:      actorID,
		ActorName:    actorName,
		DisplayName:  operator.DisplayName,
		Tier:         operator.Tier,
		Language:     models.LanguageHindi,
		SessionToken: token,
		IsActive:     utils.ToPtr(true),
		LoginAt:      now,
		LastActiveAt: now,
	}
	if err := af.sessionRepo.Save(ctx, session); err != nil {
		return nil, storageFault("save session", err)
	}

	return session, nil
}

func (af *AuthFlowImpl) saveLog(ctx context.Context, actorID *int64, phone, action string, detail *string, metadata *ClientMetadata) error {
	entry := &models.LoginLog{
		ActorID:   actorID,
		Phone:     phone,
		Action:    action,
		IPAddress: metadata.ipAddress(),
		Detail:    detail,
		CreatedAt: utils.UTCNow(),
	}
	if err := af.loginLogRepo.Save(ctx, entry); err != nil {
		return storageFault("save login log", err)
	}
	return nil
}

// logAction records an audit entry outside the caller's outcome; failures are only logged
func (af *AuthFlowImpl) logAction(ctx context.Context, actorID *int64, phone, action string, detail *string, metadata *ClientMetadata) {
	if err := af.saveLog(ctx, actorID, phone, action, detail, metadata); err != nil {
		af.logger.Warn("Failed to write login log", zap.String("action", action), zap.Error(err))
	}
}

func loginErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNoCodeFound):
		return "NO_CODE_FOUND"
	case errors.Is(err, ErrExpired):
		return "CODE_EXPIRED"
	case errors.Is(err, ErrMaxAttemptsExceeded):
		return "MAX_ATTEMPTS_EXCEEDED"
	case errors.Is(err, ErrInvalidCode):
		return "INVALID_CODE"
	case errors.Is(err, ErrOperatorNotFound):
		return "OPERATOR_NOT_FOUND"
	default:
		return "LOGIN_FAILED"
	}
}
