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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"loyalty-ledger-go/internal/ledger"
	"loyalty-ledger-go/internal/models"
)

const (
	BackendSQLite  = "sqlite"
	BackendLevelDB = "leveldb"
)

func Load() (*models.Config, error) {
	backend := strings.ToLower(getEnvString("LEDGER_BACKEND", BackendSQLite))
	if backend != BackendSQLite && backend != BackendLevelDB {
		return nil, fmt.Errorf("invalid LEDGER_BACKEND %q: expected %s or %s", backend, BackendSQLite, BackendLevelDB)
	}

	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	entryLifetime, err := getEnvDuration("ENTRY_LIFETIME", 0)
	if err != nil {
		return nil, err
	}

	minRemaining, err := getEnvDuration("LIFETIME_MIN_REMAINING", ledger.DefaultMinRemaining)
	if err != nil {
		return nil, err
	}

	maxExtension, err := getEnvDuration("LIFETIME_MAX_EXTENSION", ledger.DefaultMaxExtension)
	if err != nil {
		return nil, err
	}

	clockSkew, err := getEnvDuration("AUTH_CLOCK_SKEW", 30*time.Second)
	if err != nil {
		return nil, err
	}

	formanceTimeout, err := getEnvDuration("FORMANCE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	reconcileInterval, err := getEnvDuration("RECONCILE_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}

	purgeInterval, err := getEnvDuration("PURGE_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Backend: backend,
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "loyalty.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		LevelDB: models.LevelDBConfig{
			Path: getEnvString("LEVELDB_PATH", "loyalty-leveldb"),
		},
		Lifetime: models.LifetimeConfig{
			EntryLifetime: entryLifetime,
			MinRemaining:  minRemaining,
			MaxExtension:  maxExtension,
		},
		Server: models.ServerConfig{
			Addr:       getEnvString("SERVER_ADDR", ":8080"),
			HMACSecret: os.Getenv("AUTH_HMAC_SECRET"),
			Issuer:     getEnvString("AUTH_ISSUER", "loyalty-ledger"),
			ClockSkew:  clockSkew,
		},
		Formance: models.FormanceConfig{
			StackURL:     os.Getenv("FORMANCE_STACK_URL"),
			ClientID:     os.Getenv("FORMANCE_CLIENT_ID"),
			ClientSecret: os.Getenv("FORMANCE_CLIENT_SECRET"),
			LedgerName:   getEnvString("FORMANCE_LEDGER", "loyalty"),
			Timeout:      formanceTimeout,
		},
		Housekeeping: models.HousekeepingConfig{
			ReconcileInterval: reconcileInterval,
			PurgeInterval:     purgeInterval,
		},
		MerchantsFile: getEnvString("MERCHANTS_FILE", "merchants.yaml"),
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
