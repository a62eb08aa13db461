// SPDX-License-Identifier: GPL-3.0-or-later
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sweepmail/go-imap-sweeper/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	filename := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(filename, []byte(content), 0o600))
	return filename
}

const validConfig = `
UnlockToken = "DELETE_EMAILS_PERMANENTLY_2024"

[[Accounts]]
Email = "a@gmail.com"
Password = "app-password"
Name = "Main"

[[Accounts]]
Email = "b@yahoo.com"
Password = "other-password"

[Search]
Sender = "billing@shop.example"

[Cleanup]
IntervalMinutes = 30
AgeMinutes = 10080
`

func TestReadConfig(t *testing.T) {
	config, err := ReadConfig(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "deletionlog.db", config.Database)
	assert.Equal(t, "DELETE_EMAILS_PERMANENTLY_2024", config.UnlockToken)
	require.Len(t, config.Accounts, 2)
	assert.Equal(t, Account{Email: "a@gmail.com", Password: "app-password", Name: "Main"}, config.Accounts[0])

	require.NotNil(t, config.Search)
	assert.Equal(t, "billing@shop.example", config.Search.Sender)

	require.NotNil(t, config.Cleanup)
	assert.Equal(t, 30, config.Cleanup.IntervalMinutes)
	assert.Equal(t, 10080, config.Cleanup.AgeMinutes)
	assert.Empty(t, config.Cleanup.Confirm)
}

func TestReadConfigMissingFile(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestReadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		error   string
	}{
		{
			"missing unlock token",
			`
[[Accounts]]
Email = "a@gmail.com"
Password = "pw"
`,
			"UnlockToken must not be empty",
		},
		{
			"empty database",
			`
Database = " "
UnlockToken = "secret"
`,
			"Database name must not be empty",
		},
		{
			"invalid account email",
			`
UnlockToken = "secret"

[[Accounts]]
Email = "not-an-address"
Password = "pw"
`,
			"is not a valid address",
		},
		{
			"missing account password",
			`
UnlockToken = "secret"

[[Accounts]]
Email = "a@gmail.com"
Password = ""
`,
			"Password must not be empty",
		},
		{
			"search without criteria",
			`
UnlockToken = "secret"

[Search]
Sender = " "
`,
			"at least one of Sender and Subject",
		},
		{
			"cleanup interval too small",
			`
UnlockToken = "secret"

[Cleanup]
IntervalMinutes = 0
AgeMinutes = 60
`,
			"IntervalMinutes must be at least 1",
		},
		{
			"cleanup age too small",
			`
UnlockToken = "secret"

[Cleanup]
IntervalMinutes = 30
AgeMinutes = 0
`,
			"AgeMinutes must be at least 1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadConfig(writeConfig(t, tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.error)
		})
	}
}

func TestAccountsEnvOverride(t *testing.T) {
	t.Setenv(AccountsEnvVar, `{"accounts": [{"email": "env@gmail.com", "password": "env-pw", "name": "FromEnv"}]}`)

	config, err := ReadConfig(writeConfig(t, validConfig))
	require.NoError(t, err)

	require.Len(t, config.Accounts, 1)
	assert.Equal(t, Account{Email: "env@gmail.com", Password: "env-pw", Name: "FromEnv"}, config.Accounts[0])
}

func TestAccountsEnvOverrideRejectsGarbage(t *testing.T) {
	t.Setenv(AccountsEnvVar, `{"accounts": [`)

	_, err := ReadConfig(writeConfig(t, validConfig))
	require.Error(t, err)
	assert.Contains(t, err.Error(), AccountsEnvVar)
}

func TestDomainAccounts(t *testing.T) {
	config, err := ReadConfig(writeConfig(t, validConfig))
	require.NoError(t, err)

	accounts := config.DomainAccounts()
	require.Len(t, accounts, 2)
	assert.Equal(t, domain.Account{Email: "a@gmail.com", Password: "app-password", Name: "Main"}, accounts[0])
}
