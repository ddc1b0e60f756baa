package testing

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/anshu-9837/Banning/models"
	"github.com/anshu-9837/Banning/utils"
	"golang.org/x/crypto/bcrypt"
)

var phoneSeq atomic.Int64

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// NextPhone returns a fresh canonical phone number.
func NextPhone() string {
	return fmt.Sprintf("+919%09d", phoneSeq.Add(1))
}

// CreateOperator inserts an approved operator with the given tier
func (tf *TestFixtures) CreateOperator(phone, displayName, tier string) (*models.Operator, error) {
	op := &models.Operator{
		Phone:       phone,
		DisplayName: displayName,
		Tier:        tier,
		Status:      models.OperatorStatusApproved,
		CreatedAt:   utils.UTCNow(),
		UpdatedAt:   utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(op).Error; err != nil {
		return nil, fmt.Errorf("failed to create operator %s: %w", phone, err)
	}
	return op, nil
}

// CreateCode stores a hashed one-time code created at createdAt with the given lifetime
func (tf *TestFixtures) CreateCode(phone, code string, createdAt time.Time, ttl time.Duration) (*models.OneTimeCode, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash code: %w", err)
	}
	otc := &models.OneTimeCode{
		Phone:     phone,
		CodeHash:  string(hash),
		CreatedAt: createdAt.UTC(),
		ExpiresAt: createdAt.UTC().Add(ttl),
	}
	if err := tf.DB.DB.Create(otc).Error; err != nil {
		return nil, fmt.Errorf("failed to create code: %w", err)
	}
	return otc, nil
}

// CreateSession inserts an active session for an operator
func (tf *TestFixtures) CreateSession(op *models.Operator, actorID int64, lastActive time.Time) (*models.Session, error) {
	s := &models.Session{
		Phone:        op.Phone,
		ActorID:      actorID,
		ActorName:    fmt.Sprintf("actor-%d", actorID),
		DisplayName:  op.DisplayName,
		Tier:         op.Tier,
		Language:     models.LanguageHindi,
		SessionToken: fmt.Sprintf("SESS%d%d", lastActive.UnixNano(), actorID),
		IsActive:     utils.ToPtr(true),
		LoginAt:      lastActive.UTC(),
		LastActiveAt: lastActive.UTC(),
	}
	if err := tf.DB.DB.Create(s).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

// LoggedInOperator creates an operator and an active session for actorID
func (tf *TestFixtures) LoggedInOperator(actorID int64, tier string) (*models.Operator, *models.Session, error) {
	op, err := tf.CreateOperator(NextPhone(), fmt.Sprintf("Operator %d", actorID), tier)
	if err != nil {
		return nil, nil, err
	}
	s, err := tf.CreateSession(op, actorID, utils.UTCNow())
	if err != nil {
		return nil, nil, err
	}
	return op, s, nil
}
