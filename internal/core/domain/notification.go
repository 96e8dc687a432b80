package domain

import "github.com/google/uuid"

// NotificationType tags an outbound notification for the delivery
// collaborator. This core only produces these, never inspects delivery.
type NotificationType string

const (
	NotifyWithdrawalOTP        NotificationType = "withdrawal_otp"
	NotifyWithdrawalProcessing NotificationType = "withdrawal_processing"
	NotifyWithdrawalCompleted  NotificationType = "withdrawal_completed"
	NotifyWithdrawalRejected   NotificationType = "withdrawal_rejected"
	NotifyVerificationApproved NotificationType = "verification_approved"
	NotifyVerificationRejected NotificationType = "verification_rejected"
)

// Notification is the payload handed to the delivery collaborator.
type Notification struct {
	AccountID uuid.UUID         `json:"account_id"`
	Type      NotificationType  `json:"type"`
	Data      map[string]string `json:"data,omitempty"`
}
