package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Actions recorded in the activity log
const (
	ActivityPostCreate   = "post_create"
	ActivityPostDelete   = "post_delete"
	ActivityPostStatus   = "post_status"
	ActivityChangeRole   = "change_role"
	ActivityBanUser      = "ban_user"
	ActivityUnbanUser    = "unban_user"
	ActivityMuteUser     = "mute_user"
	ActivityUnmuteUser   = "unmute_user"
	ActivityDeleteUser   = "delete_user"
	ActivityReviewApp    = "review_application"
	ActivityReviewVerify = "review_verification"
)

type ActivityLog struct {
	ID        string
	UserID    string
	Action    string
	Details   string
	Metadata  ActivityMetadata
	CreatedAt time.Time

	// Joined from users at read time
	Username string
}

// ActivityMetadata holds structured context for an activity entry
type ActivityMetadata map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (am *ActivityMetadata) Scan(value interface{}) error {
	if value == nil {
		*am = make(ActivityMetadata)
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	*am = ActivityMetadata(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (am ActivityMetadata) Value() (driver.Value, error) {
	if am == nil {
		return nil, nil
	}
	return json.Marshal(map[string]interface{}(am))
}

// NewActivity builds an activity entry for an actor
func NewActivity(actorID, action, details string, metadata ActivityMetadata) *ActivityLog {
	return &ActivityLog{
		UserID:   actorID,
		Action:   action,
		Details:  details,
		Metadata: metadata,
	}
}
