package repository

import (
	"context"
	"time"

	"github.com/anshu-9837/Banning/models"
	"gorm.io/gorm"
)

// SessionRepositoryImpl implements SessionRepository interface
type SessionRepositoryImpl struct {
	*BaseRepository[models.Session, models.SessionFilter]
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &SessionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Session, models.SessionFilter](db),
	}
}

// ActiveByActorID retrieves the active session of a chat actor
func (r *SessionRepositoryImpl) ActiveByActorID(ctx context.Context, actorID int64) (*models.Session, error) {
	return r.first(r.getDB(ctx), func(q *gorm.DB) *gorm.DB {
		return q.Where("actor_id = ? AND is_active = ?", actorID, true).Order("id DESC").Limit(1)
	})
}

// ActiveByToken retrieves an active session by its token
func (r *SessionRepositoryImpl) ActiveByToken(ctx context.Context, token string) (*models.Session, error) {
	return r.first(r.getDB(ctx), func(q *gorm.DB) *gorm.DB {
		return q.Where("session_token = ? AND is_active = ?", token, true)
	})
}

// DeactivateForLogin clears active sessions of the phone or actor before a new login
func (r *SessionRepositoryImpl) DeactivateForLogin(ctx context.Context, phone string, actorID int64) (int64, error) {
	var affected int64
	err := r.write(ctx, func(db *gorm.DB) error {
		res := db.Model(&models.Session{}).
			Where("is_active = ? AND (phone = ? OR actor_id = ?)", true, phone, actorID).
			Update("is_active", false)
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

// Deactivate ends a single session
func (r *SessionRepositoryImpl) Deactivate(ctx context.Context, id uint, at time.Time) (int64, error) {
	var affected int64
	err := r.write(ctx, func(db *gorm.DB) error {
		res := db.Model(&models.Session{}).
			Where("id = ? AND is_active = ?", id, true).
			Updates(map[string]any{"is_active": false, "last_active_at": at})
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

// Touch stamps the session's last activity
func (r *SessionRepositoryImpl) Touch(ctx context.Context, id uint, at time.Time) error {
	return r.write(ctx, func(db *gorm.DB) error {
		return db.Model(&models.Session{}).Where("id = ?", id).Update("last_active_at", at).Error
	})
}

// UpdateLanguage sets the session's interface language
func (r *SessionRepositoryImpl) UpdateLanguage(ctx context.Context, id uint, language string) error {
	return r.write(ctx, func(db *gorm.DB) error {
		return db.Model(&models.Session{}).Where("id = ?", id).Update("language", language).Error
	})
}

// ExpireIdle deactivates sessions inactive since before cutoff
func (r *SessionRepositoryImpl) ExpireIdle(ctx context.Context, cutoff time.Time) ([]*models.Session, error) {
	var expired []*models.Session
	err := r.write(ctx, func(db *gorm.DB) error {
		if err := db.Where("is_active = ? AND last_active_at < ?", true, cutoff).Find(&expired).Error; err != nil {
			return err
		}
		if len(expired) == 0 {
			return nil
		}
		ids := make([]uint, 0, len(expired))
		for _, s := range expired {
			ids = append(ids, s.ID)
		}
		return db.Model(&models.Session{}).Where("id IN ?", ids).Update("is_active", false).Error
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

func (r *SessionRepositoryImpl) applyFilter(query *gorm.DB, filter models.SessionFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Phone != nil {
		query = query.Where("phone = ?", *filter.Phone)
	}
	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.SessionToken != nil {
		query = query.Where("session_token = ?", *filter.SessionToken)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.ActiveBefore != nil {
		query = query.Where("last_active_at < ?", *filter.ActiveBefore)
	}
	if filter.LoginAfter != nil {
		query = query.Where("login_at > ?", *filter.LoginAfter)
	}
	return query
}

// ByFilter retrieves sessions based on filter criteria
func (r *SessionRepositoryImpl) ByFilter(ctx context.Context, filter models.SessionFilter, orderBy string, limit, offset int) ([]*models.Session, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB { return r.applyFilter(q, filter) }, orderBy, limit, offset)
}

// Count returns the number of sessions matching the filter
func (r *SessionRepositoryImpl) Count(ctx context.Context, filter models.SessionFilter) (int64, error) {
	return r.count(ctx, func(q *gorm.DB) *gorm.DB { return r.applyFilter(q, filter) })
}

// Exists checks if any session matching the filter exists
func (r *SessionRepositoryImpl) Exists(ctx context.Context, filter models.SessionFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
