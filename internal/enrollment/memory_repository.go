package enrollment

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu     sync.RWMutex
	clubs  map[string]Club
	events map[string]Event
}

// NewMemoryRepository builds an in-memory club and event store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		clubs:  make(map[string]Club),
		events: make(map[string]Event),
	}
}

func (r *memoryRepository) CreateClub(_ context.Context, club Club) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.clubs {
		if existing.Name == club.Name {
			return ErrClubNameTaken
		}
	}
	club.Organizers = append([]string(nil), club.Organizers...)
	r.clubs[club.ID] = club
	return nil
}

func (r *memoryRepository) Club(_ context.Context, id string) (Club, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	club, ok := r.clubs[id]
	if !ok {
		return Club{}, ErrClubNotFound
	}
	club.Organizers = append([]string(nil), club.Organizers...)
	return club, nil
}

func (r *memoryRepository) Clubs(_ context.Context) ([]Club, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Club, 0, len(r.clubs))
	for _, club := range r.clubs {
		club.Organizers = nil
		out = append(out, club)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryRepository) CreateEvent(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clubs[event.ClubID]; !ok {
		return ErrClubNotFound
	}
	r.events[event.ID] = event
	return nil
}

func (r *memoryRepository) Event(_ context.Context, id string) (Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	event, ok := r.events[id]
	if !ok {
		return Event{}, ErrEventNotFound
	}
	return event, nil
}

func (r *memoryRepository) EventsByClub(_ context.Context, clubID string) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Event, 0)
	for _, event := range r.events {
		if event.ClubID == clubID {
			out = append(out, event)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out, nil
}
