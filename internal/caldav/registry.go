package caldav

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Pillumz/caldav-mcp/internal/config"
)

// Registry holds all configured CalDAV accounts and resolves calendar
// URLs to the owning account. After Init completes, the registry is
// read-only and safe for concurrent use.
type Registry struct {
	accounts []*Account
	logger   *slog.Logger

	initOnce sync.Once
	initErr  error
}

// NewRegistry creates a Registry from account configurations. The
// accounts are not connected until Init is called.
func NewRegistry(cfgs []config.Account, logger *slog.Logger) *Registry {
	accounts := make([]*Account, 0, len(cfgs))
	for _, cfg := range cfgs {
		accounts = append(accounts, NewAccount(cfg, logger))
	}
	return &Registry{
		accounts: accounts,
		logger:   logger,
	}
}

// Init connects every account and caches their calendars. It runs at
// most once; later calls return the first result. Any account failing
// to connect fails the whole initialization.
func (r *Registry) Init(ctx context.Context) error {
	r.initOnce.Do(func() {
		r.logger.Info("initializing CalDAV accounts", slog.Int("count", len(r.accounts)))
		for _, account := range r.accounts {
			if err := account.Connect(ctx); err != nil {
				r.initErr = err
				return
			}
		}
	})
	return r.initErr
}

// Accounts returns all configured accounts in configuration order.
func (r *Registry) Accounts() []*Account {
	return r.accounts
}

// Calendars returns the calendars of all accounts, in account order.
func (r *Registry) Calendars() []CalendarInfo {
	var out []CalendarInfo
	for _, account := range r.accounts {
		out = append(out, account.Calendars()...)
	}
	return out
}

// Resolve finds the account that owns the given calendar URL. Accounts
// are scanned in configuration order and the first match wins. Returns
// a NotFoundError listing all known calendar URLs when no account
// matches.
func (r *Registry) Resolve(calendarURL string) (*Account, error) {
	normalized := NormalizeURL(calendarURL)
	for _, account := range r.accounts {
		for _, cal := range account.Calendars() {
			if NormalizeURL(cal.URL) == normalized {
				return account, nil
			}
		}
	}

	return nil, &NotFoundError{
		CalendarURL: calendarURL,
		KnownURLs:   r.knownURLs(),
	}
}

func (r *Registry) knownURLs() []string {
	var urls []string
	for _, account := range r.accounts {
		for _, cal := range account.Calendars() {
			urls = append(urls, cal.URL)
		}
	}
	return urls
}
