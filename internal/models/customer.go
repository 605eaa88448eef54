package models

import "time"

// Segment names a predicate over a customer's order history
type Segment string

// Built-in segments
const (
	SegmentAll            Segment = "all"
	SegmentCompleted      Segment = "completed"
	SegmentCancelled      Segment = "cancelled"
	SegmentPending        Segment = "pending"
	SegmentFailedDelivery Segment = "failed_delivery"
)

// Segments lists every built-in segment in display order
var Segments = []Segment{SegmentAll, SegmentCompleted, SegmentCancelled, SegmentPending, SegmentFailedDelivery}

// Order status constants relevant to segmentation
const (
	OrderStatusPending        = "pending"
	OrderStatusCompleted      = "completed"
	OrderStatusCancelled      = "cancelled"
	OrderStatusFailedDelivery = "failed_delivery"
)

// IsValidSegment checks if the segment is a built-in one
func IsValidSegment(segment Segment) bool {
	for _, s := range Segments {
		if s == segment {
			return true
		}
	}
	return false
}

// Recipient is a resolved campaign target
type Recipient struct {
	Contact string `json:"contact"`
	Name    string `json:"name"`
}

// CustomerHistory aggregates the order history of one customer contact
type CustomerHistory struct {
	Contact      string
	Name         string
	FirstOrderAt time.Time
	// OrderStatuses holds each distinct status the customer has at least one order in
	OrderStatuses []string
}

// HasOrderIn reports whether the customer has any order in the given status
func (h *CustomerHistory) HasOrderIn(status string) bool {
	for _, s := range h.OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// InSegment reports segment membership. Membership is "has any order in status",
// so one customer can belong to several segments at once.
func (h *CustomerHistory) InSegment(segment Segment) bool {
	if segment == SegmentAll {
		return len(h.OrderStatuses) > 0
	}
	return h.HasOrderIn(string(segment))
}

// SegmentCounts maps each built-in segment to its member count
type SegmentCounts map[Segment]int
