package caldav

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pillumz/caldav-mcp/internal/config"
)

// caldavTestServer is a canned-response CalDAV server. Responses are
// keyed by "METHOD path"; unkeyed PUTs and DELETEs succeed so object
// paths with generated UIDs need no registration.
type caldavTestServer struct {
	*httptest.Server
	mu        sync.Mutex
	responses map[string]mockResponse
	requests  []recordedRequest
}

type mockResponse struct {
	status int
	body   string
}

type recordedRequest struct {
	method string
	path   string
	body   string
	auth   string
}

func newCalDAVTestServer(t *testing.T) *caldavTestServer {
	t.Helper()
	srv := &caldavTestServer{responses: make(map[string]mockResponse)}
	srv.Server = httptest.NewServer(http.HandlerFunc(srv.handle))
	t.Cleanup(srv.Close)
	return srv
}

func (s *caldavTestServer) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, recordedRequest{
		method: r.Method,
		path:   r.URL.Path,
		body:   string(body),
		auth:   r.Header.Get("Authorization"),
	})
	resp, ok := s.responses[r.Method+" "+r.URL.Path]
	s.mu.Unlock()

	if !ok {
		switch r.Method {
		case http.MethodPut:
			w.WriteHeader(http.StatusCreated)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
		return
	}

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

func (s *caldavTestServer) set(method, path string, resp mockResponse) {
	s.mu.Lock()
	s.responses[method+" "+path] = resp
	s.mu.Unlock()
}

func (s *caldavTestServer) recorded() []recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]recordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// setDiscovery registers the principal, home-set, and calendar listing
// responses the connection handshake walks through.
func (s *caldavTestServer) setDiscovery() {
	s.set("PROPFIND", "/", mockResponse{status: http.StatusMultiStatus, body: `<?xml version="1.0" encoding="UTF-8"?>
<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/</D:href>
    <D:propstat>
      <D:prop>
        <D:current-user-principal>
          <D:href>/principals/alice/</D:href>
        </D:current-user-principal>
      </D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`})

	s.set("PROPFIND", "/principals/alice/", mockResponse{status: http.StatusMultiStatus, body: `<?xml version="1.0" encoding="UTF-8"?>
<D:multistatus xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:response>
    <D:href>/principals/alice/</D:href>
    <D:propstat>
      <D:prop>
        <C:calendar-home-set>
          <D:href>/calendars/alice/</D:href>
        </C:calendar-home-set>
      </D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`})

	s.set("PROPFIND", "/calendars/alice/", mockResponse{status: http.StatusMultiStatus, body: `<?xml version="1.0" encoding="UTF-8"?>
<D:multistatus xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:response>
    <D:href>/calendars/alice/</D:href>
    <D:propstat>
      <D:prop>
        <D:resourcetype><D:collection/></D:resourcetype>
      </D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
  <D:response>
    <D:href>/calendars/alice/personal/</D:href>
    <D:propstat>
      <D:prop>
        <D:resourcetype><D:collection/><C:calendar/></D:resourcetype>
        <D:displayname>Personal</D:displayname>
      </D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
  <D:response>
    <D:href>/calendars/alice/tasks/</D:href>
    <D:propstat>
      <D:prop>
        <D:resourcetype><D:collection/><C:calendar/></D:resourcetype>
      </D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`})
}

type calendarObjectFixture struct {
	path string
	ics  string
}

// queryResponse builds a calendar-query REPORT response. Line breaks in
// the embedded iCalendar data are escaped as &#13; so the XML parser
// hands the decoder proper CRLF-terminated lines.
func queryResponse(objects ...calendarObjectFixture) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<D:multistatus xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">` + "\n")
	for _, obj := range objects {
		b.WriteString("  <D:response>\n")
		b.WriteString("    <D:href>" + obj.path + "</D:href>\n")
		b.WriteString("    <D:propstat>\n      <D:prop>\n")
		b.WriteString("        <C:calendar-data>" + obj.ics + "</C:calendar-data>\n")
		b.WriteString("      </D:prop>\n      <D:status>HTTP/1.1 200 OK</D:status>\n    </D:propstat>\n")
		b.WriteString("  </D:response>\n")
	}
	b.WriteString("</D:multistatus>\n")
	return b.String()
}

func icsFixture(lines ...string) string {
	return strings.Join(lines, "&#13;\n") + "&#13;\n"
}

func connectedAccount(t *testing.T, srv *caldavTestServer) *Account {
	t.Helper()
	account := NewAccount(config.Account{
		Name:     "Test",
		BaseURL:  srv.URL,
		Username: "alice",
		Password: "secret",
	}, slog.Default())
	require.NoError(t, account.Connect(context.Background()))
	return account
}

func TestAccountConnect(t *testing.T) {
	srv := newCalDAVTestServer(t)
	srv.setDiscovery()

	account := connectedAccount(t, srv)

	cals := account.Calendars()
	require.Len(t, cals, 2)
	assert.Equal(t, "Personal", cals[0].Name)
	assert.Equal(t, "/calendars/alice/personal/", cals[0].URL)
	assert.Equal(t, "Test", cals[0].Account)
	// Calendars without a displayname still get a usable name.
	assert.Equal(t, "Unnamed Calendar", cals[1].Name)
	assert.Equal(t, "/calendars/alice/tasks/", cals[1].URL)

	for _, req := range srv.recorded() {
		assert.True(t, strings.HasPrefix(req.auth, "Basic "), "request %s %s is missing basic auth", req.method, req.path)
	}
}

func TestAccountConnectFailure(t *testing.T) {
	// No discovery responses registered, so principal lookup 404s.
	srv := newCalDAVTestServer(t)

	account := NewAccount(config.Account{
		Name:     "Broken",
		BaseURL:  srv.URL,
		Username: "alice",
		Password: "secret",
	}, slog.Default())

	err := account.Connect(context.Background())
	require.Error(t, err)

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "Broken", connErr.Account)
}

func TestAccountListEventsSkipsMalformed(t *testing.T) {
	srv := newCalDAVTestServer(t)
	srv.setDiscovery()
	srv.set("REPORT", "/calendars/alice/personal/", mockResponse{
		status: http.StatusMultiStatus,
		body: queryResponse(
			calendarObjectFixture{
				path: "/calendars/alice/personal/good.ics",
				ics: icsFixture(
					"BEGIN:VCALENDAR",
					"VERSION:2.0",
					"PRODID:-//test//EN",
					"BEGIN:VEVENT",
					"UID:good-1",
					"SUMMARY:Planning",
					"DTSTAMP:20250101T000000Z",
					"DTSTART:20250106T090000Z",
					"DTEND:20250106T100000Z",
					"END:VEVENT",
					"END:VCALENDAR",
				),
			},
			calendarObjectFixture{
				path: "/calendars/alice/personal/bad.ics",
				ics: icsFixture(
					"BEGIN:VCALENDAR",
					"VERSION:2.0",
					"PRODID:-//test//EN",
					"BEGIN:VEVENT",
					"UID:bad-1",
					"SUMMARY:No start",
					"DTSTAMP:20250101T000000Z",
					"END:VEVENT",
					"END:VCALENDAR",
				),
			},
		),
	})

	account := connectedAccount(t, srv)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	events, err := account.ListEvents(context.Background(), srv.URL+"/calendars/alice/personal/", start, start.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "good-1", events[0].UID)
	assert.Equal(t, "Planning", events[0].Summary)
}

func TestAccountListEventsUnknownCalendar(t *testing.T) {
	srv := newCalDAVTestServer(t)
	srv.setDiscovery()

	account := connectedAccount(t, srv)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := account.ListEvents(context.Background(), "/calendars/alice/missing/", start, start.AddDate(0, 1, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calendar not found")
}

func TestAccountCreateEvent(t *testing.T) {
	srv := newCalDAVTestServer(t)
	srv.setDiscovery()

	account := connectedAccount(t, srv)

	start := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	uid, err := account.CreateEvent(context.Background(), "/calendars/alice/personal/", EventInput{
		Summary: "Planning",
		Start:   start,
		End:     start.Add(time.Hour),
	})
	require.NoError(t, err)
	require.NotEmpty(t, uid)

	reqs := srv.recorded()
	var put *recordedRequest
	for i := range reqs {
		if reqs[i].method == http.MethodPut {
			put = &reqs[i]
			break
		}
	}
	require.NotNil(t, put, "no PUT request reached the server")
	assert.Equal(t, "/calendars/alice/personal/"+uid+".ics", put.path)
	assert.Contains(t, put.body, "BEGIN:VEVENT")
	assert.Contains(t, put.body, "UID:"+uid)
	assert.Contains(t, put.body, "SUMMARY:Planning")
}

func TestAccountDeleteEvent(t *testing.T) {
	srv := newCalDAVTestServer(t)
	srv.setDiscovery()
	srv.set("REPORT", "/calendars/alice/personal/", mockResponse{
		status: http.StatusMultiStatus,
		body: queryResponse(calendarObjectFixture{
			path: "/calendars/alice/personal/event-1.ics",
			ics: icsFixture(
				"BEGIN:VCALENDAR",
				"VERSION:2.0",
				"PRODID:-//test//EN",
				"BEGIN:VEVENT",
				"UID:event-1",
				"SUMMARY:Doomed",
				"DTSTAMP:20250101T000000Z",
				"DTSTART:20250106T090000Z",
				"DTEND:20250106T100000Z",
				"END:VEVENT",
				"END:VCALENDAR",
			),
		}),
	})

	account := connectedAccount(t, srv)

	require.NoError(t, account.DeleteEvent(context.Background(), "/calendars/alice/personal/", "event-1"))

	var deleted []string
	for _, req := range srv.recorded() {
		if req.method == http.MethodDelete {
			deleted = append(deleted, req.path)
		}
	}
	assert.Equal(t, []string{"/calendars/alice/personal/event-1.ics"}, deleted)
}

func TestAccountDeleteEventNotFound(t *testing.T) {
	srv := newCalDAVTestServer(t)
	srv.setDiscovery()
	srv.set("REPORT", "/calendars/alice/personal/", mockResponse{
		status: http.StatusMultiStatus,
		body: queryResponse(calendarObjectFixture{
			path: "/calendars/alice/personal/event-1.ics",
			ics: icsFixture(
				"BEGIN:VCALENDAR",
				"VERSION:2.0",
				"PRODID:-//test//EN",
				"BEGIN:VEVENT",
				"UID:event-1",
				"SUMMARY:Survivor",
				"DTSTAMP:20250101T000000Z",
				"DTSTART:20250106T090000Z",
				"DTEND:20250106T100000Z",
				"END:VEVENT",
				"END:VCALENDAR",
			),
		}),
	})

	account := connectedAccount(t, srv)

	err := account.DeleteEvent(context.Background(), "/calendars/alice/personal/", "ghost")
	require.Error(t, err)

	var notFound *EventNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "ghost", notFound.UID)

	for _, req := range srv.recorded() {
		assert.NotEqual(t, http.MethodDelete, req.method, "nothing should be deleted on a missing UID")
	}
}

func TestRegistryInit(t *testing.T) {
	srv := newCalDAVTestServer(t)
	srv.setDiscovery()

	registry := NewRegistry([]config.Account{{
		Name:     "Test",
		BaseURL:  srv.URL,
		Username: "alice",
		Password: "secret",
	}}, slog.Default())

	require.NoError(t, registry.Init(context.Background()))
	assert.Len(t, registry.Calendars(), 2)
}

func TestRegistryInitOnce(t *testing.T) {
	// No discovery responses, so the first Init fails; the second call
	// returns the cached error without touching the server again.
	srv := newCalDAVTestServer(t)

	registry := NewRegistry([]config.Account{{
		Name:     "Broken",
		BaseURL:  srv.URL,
		Username: "alice",
		Password: "secret",
	}}, slog.Default())

	firstErr := registry.Init(context.Background())
	require.Error(t, firstErr)
	attempts := len(srv.recorded())

	secondErr := registry.Init(context.Background())
	assert.Equal(t, firstErr, secondErr)
	assert.Len(t, srv.recorded(), attempts)
}

func TestRegistryInitStopsAtFirstFailure(t *testing.T) {
	broken := newCalDAVTestServer(t)
	healthy := newCalDAVTestServer(t)
	healthy.setDiscovery()

	registry := NewRegistry([]config.Account{
		{Name: "Broken", BaseURL: broken.URL, Username: "a", Password: "p"},
		{Name: "Healthy", BaseURL: healthy.URL, Username: "a", Password: "p"},
	}, slog.Default())

	err := registry.Init(context.Background())
	require.Error(t, err)

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "Broken", connErr.Account)
	assert.Empty(t, healthy.recorded(), "later accounts should not be contacted after a failure")
}
