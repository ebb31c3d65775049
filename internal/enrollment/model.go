package enrollment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Roster kinds stored with every ledger.Enrollment.
const (
	KindClub  = "club"
	KindEvent = "event"
)

// Club is a student society. A positive Fee is paid to the first organizer
// when a student joins.
type Club struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CreatorID   string          `json:"creator_id"`
	Organizers  []string        `json:"organizers"`
	Fee         decimal.Decimal `json:"fee"`
	Members     []string        `json:"members,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Event belongs to a club. A positive TicketPrice is paid to the creator on
// registration; Capacity zero means unlimited.
type Event struct {
	ID          string          `json:"id"`
	ClubID      string          `json:"club_id"`
	CreatorID   string          `json:"creator_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Location    string          `json:"location"`
	StartsAt    time.Time       `json:"starts_at"`
	TicketPrice decimal.Decimal `json:"ticket_price"`
	Capacity    int             `json:"capacity"`
	Attendees   []string        `json:"attendees,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// IsOrganizer reports whether userID runs the club.
func (c Club) IsOrganizer(userID string) bool {
	for _, id := range c.Organizers {
		if id == userID {
			return true
		}
	}
	return false
}

// Full reports whether enrolled attendees have reached the capacity.
func (e Event) Full(enrolled int) bool {
	return e.Capacity > 0 && enrolled >= e.Capacity
}
