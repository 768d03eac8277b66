package models

import "time"

// SessionValue is one named value persisted for a storefront session.
type SessionValue struct {
	SessionID string     `gorm:"column:session_id;size:64;primaryKey"`
	Key       string     `gorm:"column:state_key;size:64;primaryKey"`
	Value     string     `gorm:"column:value;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index:idx_session_state_expires_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;not null"`
}

func (SessionValue) TableName() string {
	return "session_state"
}
