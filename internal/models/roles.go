package models

import "encoding/json"

// Role identifies a position in the staff hierarchy
type Role string

const (
	RoleUser        Role = "user"
	RoleHelper      Role = "helper"
	RoleModerator   Role = "moderator"
	RoleAdmin       Role = "admin"
	RoleSeniorAdmin Role = "senior_admin"
	RoleManager     Role = "manager"
	RoleManagement  Role = "management"
)

// Level is a role rank stored in tenths so that half steps compare exactly
type Level int

const (
	LevelUser        Level = 0
	LevelHelper      Level = 10
	LevelModerator   Level = 20
	LevelAdmin       Level = 30
	LevelSeniorAdmin Level = 35
	LevelManager     Level = 40
	LevelManagement  Level = 50
)

// Minimum levels for privileged operations
const (
	LevelDeleteAnyPost  = LevelModerator
	LevelModeratePosts  = LevelAdmin
	LevelManageUsers    = LevelAdmin
	LevelReviewRequests = LevelAdmin
	LevelAdminPanel     = LevelAdmin
)

var roleLevels = map[Role]Level{
	RoleUser:        LevelUser,
	RoleHelper:      LevelHelper,
	RoleModerator:   LevelModerator,
	RoleAdmin:       LevelAdmin,
	RoleSeniorAdmin: LevelSeniorAdmin,
	RoleManager:     LevelManager,
	RoleManagement:  LevelManagement,
}

// Float returns the level as its decimal rank (3.5 for senior_admin)
func (l Level) Float() float64 {
	return float64(l) / 10
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Float())
}

// LevelOf returns the rank of a role; unknown roles rank as a plain user
func LevelOf(role Role) Level {
	if level, ok := roleLevels[role]; ok {
		return level
	}
	return LevelUser
}

// AtLeast reports whether role ranks at or above threshold
func AtLeast(role Role, threshold Level) bool {
	return LevelOf(role) >= threshold
}

// IsKnownRole reports whether role is part of the hierarchy
func IsKnownRole(role Role) bool {
	_, ok := roleLevels[role]
	return ok
}

// RoleInfo describes a role for display
type RoleInfo struct {
	ID    Role   `json:"id"`
	Name  string `json:"name"`
	Level Level  `json:"level"`
}

var roleCatalogue = []RoleInfo{
	{ID: RoleUser, Name: "Пользователь", Level: LevelUser},
	{ID: RoleHelper, Name: "Хелпер", Level: LevelHelper},
	{ID: RoleModerator, Name: "Модератор", Level: LevelModerator},
	{ID: RoleAdmin, Name: "Администратор", Level: LevelAdmin},
	{ID: RoleSeniorAdmin, Name: "Старший администратор", Level: LevelSeniorAdmin},
	{ID: RoleManager, Name: "Менеджер", Level: LevelManager},
	{ID: RoleManagement, Name: "Руководство", Level: LevelManagement},
}

// Roles returns the hierarchy ordered from lowest to highest rank
func Roles() []RoleInfo {
	out := make([]RoleInfo, len(roleCatalogue))
	copy(out, roleCatalogue)
	return out
}
