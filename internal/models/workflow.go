package models

import (
	"fmt"
	"time"
)

// ReviewStatus is the state of a staff application or verification request
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// IsTerminal reports whether the record has been decided
func (s ReviewStatus) IsTerminal() bool {
	return s == ReviewApproved || s == ReviewRejected
}

// MinApplicantAge is the youngest age accepted on staff applications
const MinApplicantAge = 14

type AdminApplication struct {
	ID           string
	UserID       string
	Nick         string
	Age          int
	Hours        string
	Experience   string
	Reason       string
	Discord      string
	Status       ReviewStatus
	ApprovedRole Role
	ReviewedBy   *string
	ReviewedAt   *time.Time
	RejectReason *string
	CreatedAt    time.Time

	// Joined from users at read time
	Applicant AuthorInfo
}

type RobloxVerification struct {
	ID           string
	UserID       string
	RobloxNick   string
	RobloxUserID string
	Status       ReviewStatus
	ReviewedBy   *string
	ReviewedAt   *time.Time
	RejectReason *string
	CreatedAt    time.Time

	// Joined from users at read time
	Applicant AuthorInfo
}

// Review is the decision applied to a pending workflow record
type Review struct {
	ReviewerID string
	Status     ReviewStatus
	Reason     string
	Role       Role
	At         time.Time

	// ApplicantRole is the role the applicant held when rank was checked;
	// approval only grants Role while the account still holds it.
	ApplicantRole Role
}

// ProfileLink is where workflow notifications point the user
const ProfileLink = "#profile"

// Notification types emitted by the review workflows
const (
	NotificationApplicationApproved  = "application_approved"
	NotificationApplicationRejected  = "application_rejected"
	NotificationVerificationApproved = "verification_approved"
	NotificationVerificationRejected = "verification_rejected"
)

// ApplicationNotification builds the message sent after an application review
func ApplicationNotification(userID string, review Review) *Notification {
	n := &Notification{UserID: userID, Link: ProfileLink}
	if review.Status == ReviewApproved {
		n.Type = NotificationApplicationApproved
		n.Message = "Ваша заявка на роль одобрена!"
		return n
	}
	n.Type = NotificationApplicationRejected
	if review.Reason != "" {
		n.Message = fmt.Sprintf("Ваша заявка отклонена. Причина: %s", review.Reason)
	} else {
		n.Message = "Ваша заявка отклонена."
	}
	return n
}

// VerificationNotification builds the message sent after a verification review
func VerificationNotification(userID, robloxNick string, review Review) *Notification {
	n := &Notification{UserID: userID, Link: ProfileLink}
	if review.Status == ReviewApproved {
		n.Type = NotificationVerificationApproved
		n.Message = fmt.Sprintf("Ваша верификация Roblox для ника \"%s\" была одобрена!", robloxNick)
		return n
	}
	n.Type = NotificationVerificationRejected
	if review.Reason != "" {
		n.Message = fmt.Sprintf("Ваша верификация Roblox для ника \"%s\" была отклонена. Причина: %s", robloxNick, review.Reason)
	} else {
		n.Message = fmt.Sprintf("Ваша верификация Roblox для ника \"%s\" была отклонена.", robloxNick)
	}
	return n
}
