package calendarsync

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

var ErrEventNotFound = errors.New("calendar event not found")

// Calendar is the external calendar the bookings are mirrored to.
type Calendar interface {
	Insert(ctx context.Context, calendarID string, e Event) (string, error)
	Update(ctx context.Context, calendarID, eventID string, e Event) error
	Delete(ctx context.Context, calendarID, eventID string) error
}

// Provider covers the OAuth2 grant and the calendar client built from it.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	// Refresh returns tok unchanged while it is valid, otherwise a new token.
	Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error)
	Calendar(ctx context.Context, tok *oauth2.Token) (Calendar, error)
	Revoke(ctx context.Context, tok *oauth2.Token) error
}
