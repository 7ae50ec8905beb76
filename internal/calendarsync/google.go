package calendarsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const googleRevokeURL = "https://oauth2.googleapis.com/revoke"

type GoogleProvider struct {
	conf       *oauth2.Config
	httpClient *http.Client
	revokeURL  string
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string, timeout time.Duration) *GoogleProvider {
	return &GoogleProvider{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{calendar.CalendarEventsScope},
		},
		httpClient: &http.Client{Timeout: timeout},
		revokeURL:  googleRevokeURL,
	}
}

func (p *GoogleProvider) Name() string { return "google" }

// AuthCodeURL asks for offline access with forced consent so that Google
// always returns a refresh token.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.conf.Exchange(p.oauthContext(ctx), code)
}

func (p *GoogleProvider) Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	if tok.Valid() {
		return tok, nil
	}
	return p.conf.TokenSource(p.oauthContext(ctx), tok).Token()
}

func (p *GoogleProvider) Calendar(ctx context.Context, tok *oauth2.Token) (Calendar, error) {
	client := &http.Client{
		Timeout:   p.httpClient.Timeout,
		Transport: &oauth2.Transport{Source: oauth2.StaticTokenSource(tok)},
	}
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create calendar client: %w", err)
	}
	return newGoogleCalendar(srv), nil
}

// Revoke invalidates the grant upstream. A token Google no longer knows is
// treated as already revoked.
func (p *GoogleProvider) Revoke(ctx context.Context, tok *oauth2.Token) error {
	token := tok.RefreshToken
	if token == "" {
		token = tok.AccessToken
	}
	form := url.Values{"token": {token}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusBadRequest:
		return nil
	default:
		return fmt.Errorf("revoke token: unexpected status %d", resp.StatusCode)
	}
}

func (p *GoogleProvider) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

type googleCalendar struct {
	events *calendar.EventsService
}

func newGoogleCalendar(srv *calendar.Service) *googleCalendar {
	return &googleCalendar{events: srv.Events}
}

func (c *googleCalendar) Insert(ctx context.Context, calendarID string, e Event) (string, error) {
	created, err := c.events.Insert(calendarID, toGoogleEvent(e)).Context(ctx).Do()
	if err != nil {
		return "", translateGoogleError(err)
	}
	return created.Id, nil
}

func (c *googleCalendar) Update(ctx context.Context, calendarID, eventID string, e Event) error {
	_, err := c.events.Update(calendarID, eventID, toGoogleEvent(e)).Context(ctx).Do()
	return translateGoogleError(err)
}

func (c *googleCalendar) Delete(ctx context.Context, calendarID, eventID string) error {
	return translateGoogleError(c.events.Delete(calendarID, eventID).Context(ctx).Do())
}

func toGoogleEvent(e Event) *calendar.Event {
	return &calendar.Event{
		Summary:     e.Summary,
		Description: e.Description,
		Start:       &calendar.EventDateTime{DateTime: e.Start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: e.End.Format(time.RFC3339)},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{"booking_id": strconv.Itoa(e.BookingID)},
		},
	}
}

// translateGoogleError maps 404 and 410 (deleted event) to ErrEventNotFound.
func translateGoogleError(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
		return ErrEventNotFound
	}
	return err
}
