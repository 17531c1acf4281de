package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccounts_Numbered(t *testing.T) {
	t.Setenv("CALDAV_1_NAME", "Personal")
	t.Setenv("CALDAV_1_BASE_URL", "https://cal.example.com/dav/")
	t.Setenv("CALDAV_1_USERNAME", "alice")
	t.Setenv("CALDAV_1_PASSWORD", "secret")
	t.Setenv("CALDAV_3_NAME", "Work")
	t.Setenv("CALDAV_3_BASE_URL", "https://work.example.com/caldav/")
	t.Setenv("CALDAV_3_USERNAME", "alice@work")
	t.Setenv("CALDAV_3_PASSWORD", "hunter2")

	accounts, err := ParseAccounts()
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	// Registration order follows the numbering
	assert.Equal(t, "Personal", accounts[0].Name)
	assert.Equal(t, "https://cal.example.com/dav/", accounts[0].BaseURL)
	assert.Equal(t, "Work", accounts[1].Name)
}

func TestParseAccounts_DefaultName(t *testing.T) {
	t.Setenv("CALDAV_2_BASE_URL", "https://cal.example.com/dav/")
	t.Setenv("CALDAV_2_USERNAME", "bob")
	t.Setenv("CALDAV_2_PASSWORD", "secret")

	accounts, err := ParseAccounts()
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Account 2", accounts[0].Name)
}

func TestParseAccounts_LegacyFallback(t *testing.T) {
	t.Setenv("CALDAV_BASE_URL", "https://legacy.example.com/dav/")
	t.Setenv("CALDAV_USERNAME", "carol")
	t.Setenv("CALDAV_PASSWORD", "secret")

	accounts, err := ParseAccounts()
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Default", accounts[0].Name)
	assert.Equal(t, "https://legacy.example.com/dav/", accounts[0].BaseURL)
}

func TestParseAccounts_NumberedWinsOverLegacy(t *testing.T) {
	t.Setenv("CALDAV_BASE_URL", "https://legacy.example.com/dav/")
	t.Setenv("CALDAV_USERNAME", "carol")
	t.Setenv("CALDAV_PASSWORD", "secret")
	t.Setenv("CALDAV_1_BASE_URL", "https://numbered.example.com/dav/")
	t.Setenv("CALDAV_1_USERNAME", "dave")
	t.Setenv("CALDAV_1_PASSWORD", "secret")

	accounts, err := ParseAccounts()
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "https://numbered.example.com/dav/", accounts[0].BaseURL)
}

func TestParseAccounts_IncompleteAccountSkipped(t *testing.T) {
	t.Setenv("CALDAV_1_BASE_URL", "https://cal.example.com/dav/")
	t.Setenv("CALDAV_1_USERNAME", "alice")
	// no password
	t.Setenv("CALDAV_2_BASE_URL", "https://other.example.com/dav/")
	t.Setenv("CALDAV_2_USERNAME", "bob")
	t.Setenv("CALDAV_2_PASSWORD", "secret")

	accounts, err := ParseAccounts()
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "https://other.example.com/dav/", accounts[0].BaseURL)
}

func TestParseAccounts_NoneConfigured(t *testing.T) {
	_, err := ParseAccounts()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no CalDAV accounts configured")
}

func TestParseAccounts_InvalidBaseURL(t *testing.T) {
	t.Setenv("CALDAV_1_BASE_URL", "ftp://cal.example.com/dav/")
	t.Setenv("CALDAV_1_USERNAME", "alice")
	t.Setenv("CALDAV_1_PASSWORD", "secret")

	_, err := ParseAccounts()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must use http or https")
}
