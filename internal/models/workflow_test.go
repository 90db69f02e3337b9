package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplicationNotification(t *testing.T) {
	n := ApplicationNotification("u1", Review{Status: ReviewApproved})
	assert.Equal(t, NotificationApplicationApproved, n.Type)
	assert.Equal(t, "Ваша заявка на роль одобрена!", n.Message)
	assert.Equal(t, ProfileLink, n.Link)
	assert.Equal(t, "u1", n.UserID)

	n = ApplicationNotification("u1", Review{Status: ReviewRejected, Reason: "мало часов"})
	assert.Equal(t, NotificationApplicationRejected, n.Type)
	assert.Equal(t, "Ваша заявка отклонена. Причина: мало часов", n.Message)

	n = ApplicationNotification("u1", Review{Status: ReviewRejected})
	assert.Equal(t, "Ваша заявка отклонена.", n.Message)
}

func TestVerificationNotification(t *testing.T) {
	n := VerificationNotification("u1", "Builder", Review{Status: ReviewApproved})
	assert.Equal(t, NotificationVerificationApproved, n.Type)
	assert.Equal(t, `Ваша верификация Roblox для ника "Builder" была одобрена!`, n.Message)

	n = VerificationNotification("u1", "Builder", Review{Status: ReviewRejected, Reason: "не тот аккаунт"})
	assert.Equal(t, NotificationVerificationRejected, n.Type)
	assert.Equal(t, `Ваша верификация Roblox для ника "Builder" была отклонена. Причина: не тот аккаунт`, n.Message)

	n = VerificationNotification("u1", "Builder", Review{Status: ReviewRejected})
	assert.Equal(t, `Ваша верификация Roblox для ника "Builder" была отклонена.`, n.Message)
}

func TestReviewStatus_IsTerminal(t *testing.T) {
	assert.False(t, ReviewPending.IsTerminal())
	assert.True(t, ReviewApproved.IsTerminal())
	assert.True(t, ReviewRejected.IsTerminal())
}

func TestTypedErrors_MatchSentinels(t *testing.T) {
	assert.True(t, errors.Is(&AccountBannedError{Reason: "cheats"}, ErrAccountBanned))
	assert.True(t, errors.Is(&MutedError{}, ErrMuted))
	assert.True(t, errors.Is(NewValidationError("age", "too young"), ErrValidation))
	assert.True(t, errors.Is(ErrPostNotFound, ErrNotFound))
	assert.Equal(t, "account is banned: cheats", (&AccountBannedError{Reason: "cheats"}).Error())
}
