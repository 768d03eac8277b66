package state

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLStore persists session values in the session_state table.
type SQLStore struct {
	db  *gorm.DB
	ttl time.Duration
	now clock
}

func NewSQLStore(db *gorm.DB, ttl time.Duration) *SQLStore {
	return &SQLStore{db: db, ttl: ttl, now: time.Now}
}

func (s *SQLStore) Get(ctx context.Context, sessionID string, key enums.StateKey) ([]byte, bool, error) {
	var row models.SessionValue
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND state_key = ?", sessionID, key.String()).
		Where("expires_at IS NULL OR expires_at > ?", s.now().UTC()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "read session state")
	}
	return []byte(row.Value), true, nil
}

func (s *SQLStore) Set(ctx context.Context, sessionID string, key enums.StateKey, value []byte) error {
	now := s.now().UTC()
	row := models.SessionValue{
		SessionID: sessionID,
		Key:       key.String(),
		Value:     string(value),
		UpdatedAt: now,
	}
	if s.ttl > 0 {
		expires := now.Add(s.ttl)
		row.ExpiresAt = &expires
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "state_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "write session state")
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, sessionID string, keys ...enums.StateKey) error {
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, key.String())
	}
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND state_key IN ?", sessionID, names).
		Delete(&models.SessionValue{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "delete session state")
	}
	return nil
}

// PurgeExpired removes rows past their expiry and returns how many went.
func (s *SQLStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now().UTC()).
		Delete(&models.SessionValue{})
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodePersistence, res.Error, "purge expired session state")
	}
	return res.RowsAffected, nil
}
