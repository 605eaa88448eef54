package models

import "time"

// Message log status constants
const (
	MessageStatusSent   = "sent"
	MessageStatusFailed = "failed"
)

// MessageLog records one delivery attempt for one campaign recipient.
// Rows are append-only.
type MessageLog struct {
	ID              int64     `json:"id"`
	CampaignID      int64     `json:"campaign_id"`
	CustomerContact string    `json:"customer_contact"`
	CustomerName    string    `json:"customer_name"`
	Status          string    `json:"status"`
	ErrorMessage    *string   `json:"error_message,omitempty"`
	SentAt          time.Time `json:"sent_at"`
}

// IsValidMessageStatus checks if the message status is valid
func IsValidMessageStatus(status string) bool {
	switch status {
	case MessageStatusSent, MessageStatusFailed:
		return true
	default:
		return false
	}
}
