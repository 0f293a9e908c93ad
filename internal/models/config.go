/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import "time"

// Config represents the application configuration
type Config struct {
	Backend      string
	Database     DatabaseConfig
	LevelDB      LevelDBConfig
	Lifetime     LifetimeConfig
	Server       ServerConfig
	Formance     FormanceConfig
	Housekeeping HousekeepingConfig
	// MerchantsFile is the YAML seed consumed by cmd/setup
	MerchantsFile string
}

// DatabaseConfig holds SQLite connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// LevelDBConfig holds settings for the LevelDB backend
type LevelDBConfig struct {
	Path string
}

// LifetimeConfig controls entry expiration and the extension requested after
// every mutating ledger operation. A zero EntryLifetime disables expiration.
type LifetimeConfig struct {
	EntryLifetime time.Duration
	MinRemaining  time.Duration
	MaxExtension  time.Duration
}

// ServerConfig holds HTTP host settings
type ServerConfig struct {
	Addr       string
	HMACSecret string
	Issuer     string
	ClockSkew  time.Duration
}

// HousekeepingConfig schedules the background work of the HTTP host.
// A zero interval disables that task.
type HousekeepingConfig struct {
	ReconcileInterval time.Duration
	PurgeInterval     time.Duration
}

// FormanceConfig holds the optional Formance mirror settings.
// The mirror is disabled when StackURL is empty.
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
	Timeout      time.Duration
}

// Enabled reports whether the Formance mirror is configured
func (c FormanceConfig) Enabled() bool {
	return c.StackURL != ""
}
