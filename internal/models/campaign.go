package models

import (
	"fmt"
	"strings"
	"time"
)

// CampaignStatus is the lifecycle state of a campaign
type CampaignStatus string

// Campaign status constants
const (
	CampaignStatusDraft   CampaignStatus = "draft"
	CampaignStatusSending CampaignStatus = "sending"
	CampaignStatusSent    CampaignStatus = "sent"
)

// Channel identifies the messaging backend a campaign is delivered through
type Channel string

// Campaign channel constants
const (
	ChannelChatBotA Channel = "chat_bot_a"
	ChannelChatBotB Channel = "chat_bot_b"
	ChannelChatBotC Channel = "chat_bot_c"
)

// Channels lists every supported channel
var Channels = []Channel{ChannelChatBotA, ChannelChatBotB, ChannelChatBotC}

// Campaign represents an outreach campaign
type Campaign struct {
	ID               int64             `json:"id"`
	TenantID         string            `json:"tenant_id"`
	Name             string            `json:"name"`
	MessageTemplate  string            `json:"message_template"`
	TargetSegment    Segment           `json:"target_segment"`
	Channel          Channel           `json:"channel"`
	Variables        map[string]string `json:"variables,omitempty"`
	Status           CampaignStatus    `json:"status"`
	RecipientsCount  int               `json:"recipients_count"`
	SentCount        int               `json:"sent_count"`
	FailedCount      int               `json:"failed_count"`
	CreatedAt        time.Time         `json:"created_at"`
	// SendingStartedAt is set when the campaign leaves draft
	SendingStartedAt *time.Time        `json:"sending_started_at,omitempty"`
	SentAt           *time.Time        `json:"sent_at,omitempty"`
}

// Validate performs validation on campaign data
func (c *Campaign) Validate() error {
	if c.TenantID == "" {
		return ErrInvalidInput("tenant_id is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrInvalidInput("name is required")
	}
	if strings.TrimSpace(c.MessageTemplate) == "" {
		return ErrInvalidInput("message is required")
	}
	if c.TargetSegment == "" {
		return ErrInvalidInput("target_category is required")
	}
	if !IsValidSegment(c.TargetSegment) {
		return ErrInvalidInput(fmt.Sprintf("invalid target_category: %s", c.TargetSegment))
	}
	if c.Channel == "" {
		return ErrInvalidInput("channel is required")
	}
	if !IsValidChannel(c.Channel) {
		return ErrInvalidInput(fmt.Sprintf("invalid channel: %s (must be one of chat_bot_a, chat_bot_b, chat_bot_c)", c.Channel))
	}
	return nil
}

// IsValidChannel checks if the channel is valid
func IsValidChannel(channel Channel) bool {
	for _, c := range Channels {
		if c == channel {
			return true
		}
	}
	return false
}

// IsValidCampaignStatus checks if the campaign status is valid
func IsValidCampaignStatus(status CampaignStatus) bool {
	switch status {
	case CampaignStatusDraft, CampaignStatusSending, CampaignStatusSent:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether moving from the current status to next is allowed.
// Transitions are monotonic: draft -> sending -> sent.
func (c *Campaign) CanTransitionTo(next CampaignStatus) bool {
	switch c.Status {
	case CampaignStatusDraft:
		return next == CampaignStatusSending
	case CampaignStatusSending:
		return next == CampaignStatusSent
	default:
		return false
	}
}

// CanBeSent checks if a campaign can be dispatched.
// Once a campaign is "sending" or "sent" it can never be dispatched again.
func (c *Campaign) CanBeSent() bool {
	return c.Status == CampaignStatusDraft
}

// CanBeEdited reports whether name, message and segment may still be overwritten
func (c *Campaign) CanBeEdited() bool {
	return c.Status == CampaignStatusDraft
}

// CanBeDeleted reports whether the campaign may be removed
func (c *Campaign) CanBeDeleted() bool {
	return c.Status != CampaignStatusSending
}
