package billing

import (
	"context"
	"sort"
	"time"

	"github.com/campus-pay/campus_pay/internal/groups"
	"github.com/campus-pay/campus_pay/internal/ledger"
)

// ActivityKind distinguishes entries in a group feed.
type ActivityKind string

const (
	ActivityMessage ActivityKind = "message"
	ActivityBill    ActivityKind = "bill"
)

// ActivityItem is one entry of a group feed. Exactly one of Message or Bill is set.
type ActivityItem struct {
	Kind          ActivityKind    `json:"kind"`
	CreatedAt     time.Time       `json:"created_at"`
	Message       *groups.Message `json:"message,omitempty"`
	Bill          *ledger.Bill    `json:"bill,omitempty"`
	PaymentStatus string          `json:"payment_status,omitempty"`
}

// GroupActivity merges a group's messages and bills oldest first. Bills carry
// their "<paid>/<total> Paid" progress.
func (s *Service) GroupActivity(ctx context.Context, groupID, viewerID string) ([]ActivityItem, error) {
	participants, err := s.members.Participants(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !contains(participants, viewerID) {
		return nil, groups.ErrNotMember
	}

	messages, err := s.messages.Messages(ctx, groupID)
	if err != nil {
		return nil, err
	}
	bills, err := s.store.BillsByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	items := make([]ActivityItem, 0, len(messages)+len(bills))
	for i := range messages {
		items = append(items, ActivityItem{
			Kind:      ActivityMessage,
			CreatedAt: messages[i].CreatedAt,
			Message:   &messages[i],
		})
	}
	for i := range bills {
		items = append(items, ActivityItem{
			Kind:          ActivityBill,
			CreatedAt:     bills[i].CreatedAt,
			Bill:          &bills[i],
			PaymentStatus: bills[i].PaymentStatus(),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
