// SPDX-License-Identifier: GPL-3.0-or-later
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/sweepmail/go-imap-sweeper/domain"
)

// AccountsEnvVar overrides the configured accounts with a JSON document of
// the form {"accounts": [{"email": ..., "password": ..., "name": ...}]}.
const AccountsEnvVar = "SWEEPER_ACCOUNTS"

type Account struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type Search struct {
	Sender  string
	Subject string
}

type Cleanup struct {
	IntervalMinutes int
	AgeMinutes      int

	// Confirm is presented to the deletion gate at startup. Leaving it
	// empty keeps every sweep in simulate mode.
	Confirm string
}

type Config struct {
	Database    string
	UnlockToken string

	Accounts []Account

	Search  *Search
	Cleanup *Cleanup

	Loglevel *string
}

func ReadConfig(filename string) (*Config, error) {
	config := &Config{
		Database: "deletionlog.db",
	}

	_, err := toml.DecodeFile(filename, config)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	if err := applyAccountsEnv(config); err != nil {
		return nil, err
	}

	err = config.validate()
	if err != nil {
		return nil, err
	}

	return config, nil
}

// DomainAccounts converts the configured accounts to the engine's account
// type, usable as a domain.AccountSource.
func (c *Config) DomainAccounts() []domain.Account {
	accounts := make([]domain.Account, 0, len(c.Accounts))
	for _, a := range c.Accounts {
		accounts = append(accounts, domain.Account{
			Email:    a.Email,
			Password: a.Password,
			Name:     a.Name,
		})
	}
	return accounts
}

func applyAccountsEnv(c *Config) error {
	raw := os.Getenv(AccountsEnvVar)
	if raw == "" {
		return nil
	}

	override := struct {
		Accounts []Account `json:"accounts"`
	}{}
	if err := json.Unmarshal([]byte(raw), &override); err != nil {
		return fmt.Errorf("could not parse %s: %w", AccountsEnvVar, err)
	}

	c.Accounts = override.Accounts
	return nil
}

func (c *Config) validate() error {
	if err := validateNonEmptyStringField(c.Database, "Database name must not be empty, set to a filename for the sqlite deletion log"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.UnlockToken, "UnlockToken must not be empty, set to the secret that arms real deletion"); err != nil {
		return err
	}

	for _, a := range c.Accounts {
		if !strings.Contains(a.Email, "@") {
			return fmt.Errorf("account email %q is not a valid address", a.Email)
		}
		if err := validateNonEmptyStringField(a.Password, fmt.Sprintf("Password must not be empty for account %s", a.Email)); err != nil {
			return err
		}
	}

	if c.Search != nil {
		if len(strings.TrimSpace(c.Search.Sender)) == 0 && len(strings.TrimSpace(c.Search.Subject)) == 0 {
			return fmt.Errorf("search needs at least one of Sender and Subject")
		}
	}

	if c.Cleanup != nil {
		if c.Cleanup.IntervalMinutes < 1 {
			return fmt.Errorf("cleanup IntervalMinutes must be at least 1")
		}
		if c.Cleanup.AgeMinutes < 1 {
			return fmt.Errorf("cleanup AgeMinutes must be at least 1")
		}
	}

	return nil
}

func validateNonEmptyStringField(field string, err string) error {
	if len(strings.TrimSpace(field)) == 0 {
		return errors.New(err)
	}

	return nil
}
