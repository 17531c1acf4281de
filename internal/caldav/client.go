package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"github.com/Pillumz/caldav-mcp/internal/config"
	"github.com/Pillumz/caldav-mcp/internal/logging"
)

const defaultHTTPTimeout = 30 * time.Second

// Account wraps one CalDAV account with its connected client and the
// calendars discovered during Connect.
type Account struct {
	name     string
	baseURL  string
	username string
	password string
	logger   *slog.Logger

	client    *caldav.Client
	calendars []CalendarInfo
}

// NewAccount creates an Account from configuration. Connect must be
// called before any calendar operation.
func NewAccount(cfg config.Account, logger *slog.Logger) *Account {
	return &Account{
		name:     cfg.Name,
		baseURL:  cfg.BaseURL,
		username: cfg.Username,
		password: cfg.Password,
		logger:   logging.WithAccount(logger, cfg.Name),
	}
}

// Name returns the configured account name.
func (a *Account) Name() string {
	return a.name
}

// Calendars returns the calendars discovered during Connect.
func (a *Account) Calendars() []CalendarInfo {
	return a.calendars
}

// basicAuthTransport adds Basic Auth to HTTP requests.
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// Connect establishes the CalDAV connection and caches the account's
// calendars. Connection or discovery failures are returned as a
// ConnectionError.
func (a *Account) Connect(ctx context.Context) error {
	a.logger.Info("connecting to CalDAV account", slog.String("base_url", a.baseURL))

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			username: a.username,
			password: a.password,
		},
		Timeout: defaultHTTPTimeout,
	}

	client, err := caldav.NewClient(httpClient, a.baseURL)
	if err != nil {
		return &ConnectionError{Account: a.name, Err: err}
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return &ConnectionError{Account: a.name, Err: fmt.Errorf("find principal: %w", err)}
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return &ConnectionError{Account: a.name, Err: fmt.Errorf("find calendar home set: %w", err)}
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return &ConnectionError{Account: a.name, Err: fmt.Errorf("find calendars: %w", err)}
	}

	a.client = client
	a.calendars = make([]CalendarInfo, 0, len(cals))
	for _, cal := range cals {
		name := cal.Name
		if name == "" {
			name = "Unnamed Calendar"
		}
		a.calendars = append(a.calendars, CalendarInfo{
			Name:    name,
			URL:     cal.Path,
			Account: a.name,
		})
	}

	a.logger.Info("connected to CalDAV account", slog.Int("calendars", len(a.calendars)))
	return nil
}

// calendarPath resolves a calendar URL against the cached calendars and
// returns the stored server path.
func (a *Account) calendarPath(calendarURL string) (string, bool) {
	normalized := NormalizeURL(calendarURL)
	for _, cal := range a.calendars {
		if NormalizeURL(cal.URL) == normalized {
			return cal.URL, true
		}
	}
	return "", false
}

// ListEvents returns all event occurrences in the calendar within
// [start, end). Recurring events are expanded client-side; objects
// that fail to parse are logged and skipped.
func (a *Account) ListEvents(ctx context.Context, calendarURL string, start, end time.Time) ([]EventInfo, error) {
	path, ok := a.calendarPath(calendarURL)
	if !ok {
		return nil, fmt.Errorf("calendar not found: %s", calendarURL)
	}

	query := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{
				{
					Name:  "VEVENT",
					Start: start,
					End:   end,
				},
			},
		},
	}

	objects, err := a.client.QueryCalendar(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}

	var events []EventInfo
	for _, obj := range objects {
		raw, err := parseEvents(obj.Data)
		if err != nil {
			a.logger.Warn("failed to parse event",
				logging.Calendar(calendarURL),
				logging.Err(err),
			)
			continue
		}
		events = append(events, expandEvents(raw, calendarURL, start, end, a.logger)...)
	}

	return events, nil
}

// CreateEvent creates a new event in the calendar and returns the
// generated UID.
func (a *Account) CreateEvent(ctx context.Context, calendarURL string, input EventInput) (string, error) {
	path, ok := a.calendarPath(calendarURL)
	if !ok {
		return "", fmt.Errorf("calendar not found: %s", calendarURL)
	}

	uid := uuid.NewString()
	cal := buildEventCalendar(uid, input)

	if _, err := a.client.PutCalendarObject(ctx, objectPath(path, uid), cal); err != nil {
		return "", fmt.Errorf("create event: %w", err)
	}

	a.logger.Info("created event",
		logging.UID(uid),
		logging.Calendar(calendarURL),
	)
	return uid, nil
}

// DeleteEvent removes the event with the given UID from the calendar.
// The calendar's objects are scanned because the object path is not
// guaranteed to be derived from the UID. Returns EventNotFoundError if
// no object contains the UID.
func (a *Account) DeleteEvent(ctx context.Context, calendarURL, uid string) error {
	path, ok := a.calendarPath(calendarURL)
	if !ok {
		return fmt.Errorf("calendar not found: %s", calendarURL)
	}

	query := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name:  "VCALENDAR",
			Comps: []caldav.CompFilter{{Name: "VEVENT"}},
		},
	}

	objects, err := a.client.QueryCalendar(ctx, path, query)
	if err != nil {
		return fmt.Errorf("query calendar: %w", err)
	}

	for _, obj := range objects {
		for _, objUID := range eventUIDs(obj.Data) {
			if objUID != uid {
				continue
			}
			if err := a.client.RemoveAll(ctx, obj.Path); err != nil {
				return fmt.Errorf("delete event: %w", err)
			}
			a.logger.Info("deleted event",
				logging.UID(uid),
				logging.Calendar(calendarURL),
			)
			return nil
		}
	}

	return &EventNotFoundError{UID: uid}
}

func objectPath(calendarPath, uid string) string {
	if !strings.HasSuffix(calendarPath, "/") {
		calendarPath += "/"
	}
	return calendarPath + uid + ".ics"
}
