package config

import (
	"fmt"
	"net/url"
	"os"
)

// maxNumberedAccounts bounds the CALDAV_<N>_* environment variable scan.
const maxNumberedAccounts = 10

// Account holds the credentials and endpoint for a single CalDAV account.
// Accounts are immutable once loaded.
type Account struct {
	Name     string
	BaseURL  string
	Username string
	Password string
}

// ParseAccounts reads CalDAV account configurations from the environment.
//
// Numbered accounts take precedence: CALDAV_1_BASE_URL, CALDAV_1_USERNAME,
// CALDAV_1_PASSWORD and optional CALDAV_1_NAME, up to CALDAV_10_*. When no
// numbered account resolves, the legacy unnumbered variables (CALDAV_BASE_URL,
// CALDAV_USERNAME, CALDAV_PASSWORD, CALDAV_NAME) are tried as a single
// account.
//
// Registration order follows the numbering; this order decides which account
// wins when two accounts expose calendars with identical normalized URLs.
func ParseAccounts() ([]Account, error) {
	var accounts []Account

	for i := 1; i <= maxNumberedAccounts; i++ {
		prefix := fmt.Sprintf("CALDAV_%d_", i)
		baseURL := os.Getenv(prefix + "BASE_URL")
		username := os.Getenv(prefix + "USERNAME")
		password := os.Getenv(prefix + "PASSWORD")
		if baseURL == "" || username == "" || password == "" {
			continue
		}

		name := os.Getenv(prefix + "NAME")
		if name == "" {
			name = fmt.Sprintf("Account %d", i)
		}

		account := Account{
			Name:     name,
			BaseURL:  baseURL,
			Username: username,
			Password: password,
		}
		if err := account.validate(); err != nil {
			return nil, fmt.Errorf("invalid account %q: %w", name, err)
		}
		accounts = append(accounts, account)
	}

	// Fallback to legacy single account format
	if len(accounts) == 0 {
		baseURL := os.Getenv("CALDAV_BASE_URL")
		username := os.Getenv("CALDAV_USERNAME")
		password := os.Getenv("CALDAV_PASSWORD")

		if baseURL != "" && username != "" && password != "" {
			name := os.Getenv("CALDAV_NAME")
			if name == "" {
				name = "Default"
			}
			account := Account{
				Name:     name,
				BaseURL:  baseURL,
				Username: username,
				Password: password,
			}
			if err := account.validate(); err != nil {
				return nil, fmt.Errorf("invalid account %q: %w", name, err)
			}
			accounts = append(accounts, account)
		}
	}

	if len(accounts) == 0 {
		return nil, fmt.Errorf("no CalDAV accounts configured: set CALDAV_1_BASE_URL, " +
			"CALDAV_1_USERNAME, CALDAV_1_PASSWORD (and optionally CALDAV_1_NAME)")
	}

	return accounts, nil
}

func (a Account) validate() error {
	u, err := url.Parse(a.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", a.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL %q must use http or https", a.BaseURL)
	}
	return nil
}
