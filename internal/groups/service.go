package groups

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campus-pay/campus_pay/internal/notification"
)

var (
	ErrGroupNotFound  = errors.New("group not found")
	ErrMissingName    = errors.New("group name is required")
	ErrMissingContent = errors.New("message text is required")
	// ErrNotMember is returned when a non-participant reads or posts.
	ErrNotMember      = errors.New("not a member of this group")
)

// Service manages group membership and messages.
type Service struct {
	repo     Repository
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService creates a new group service.
func NewService(repo Repository, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, logger: logger}
}

// CreateInput captures data required to create a group.
type CreateInput struct {
	Name         string
	Description  string
	CreatorID    string
	Participants []string
}

// Create stores a group. The creator always joins first; duplicate
// participants are dropped.
func (s *Service) Create(ctx context.Context, in CreateInput) (Group, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Group{}, ErrMissingName
	}

	members := []string{in.CreatorID}
	seen := map[string]bool{in.CreatorID: true}
	for _, p := range in.Participants {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		members = append(members, p)
	}

	group := Group{
		ID:           uuid.NewString(),
		Name:         name,
		Description:  strings.TrimSpace(in.Description),
		CreatorID:    in.CreatorID,
		Participants: members,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, group); err != nil {
		return Group{}, err
	}

	for _, member := range members[1:] {
		s.notify(ctx, notification.New(member, notification.TypeGroup, "You were added to the group \""+group.Name+"\"", group.ID))
	}
	return group, nil
}

// Get returns a group.
func (s *Service) Get(ctx context.Context, groupID string) (Group, error) {
	return s.repo.Get(ctx, groupID)
}

// Participants lists the group's members in join order.
func (s *Service) Participants(ctx context.Context, groupID string) ([]string, error) {
	group, err := s.repo.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return group.Participants, nil
}

// PostMessage adds a text message from a participant.
func (s *Service) PostMessage(ctx context.Context, groupID, senderID, content string) (Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, ErrMissingContent
	}
	group, err := s.repo.Get(ctx, groupID)
	if err != nil {
		return Message{}, err
	}
	if !group.HasParticipant(senderID) {
		return Message{}, ErrNotMember
	}

	msg := Message{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.AddMessage(ctx, msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Messages lists a group's messages oldest first.
func (s *Service) Messages(ctx context.Context, groupID string) ([]Message, error) {
	return s.repo.Messages(ctx, groupID)
}

func (s *Service) notify(ctx context.Context, n notification.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, n); err != nil {
		s.logger.Warn("notification not queued", slog.String("user_id", n.UserID), slog.Any("error", err))
	}
}
