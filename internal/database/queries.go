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

package database

const (
	// Schema
	querySchema = `
	-- Ledger entries (merchant accounts, user balances, supply counter)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Single-row instance lifetime shared by every entry (0 = never expires)
	CREATE TABLE IF NOT EXISTS ledger_instance (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		expires_at INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	// instanceLive is true while the instance has not expired; ? is now in unix nanoseconds
	instanceLive = `NOT EXISTS (
			SELECT 1 FROM ledger_instance
			WHERE id = 1 AND expires_at != 0 AND expires_at <= ?)`

	// Entry queries
	queryGetEntry = `
		SELECT value
		FROM ledger_entries
		WHERE key = ? AND ` + instanceLive

	queryUpsertEntry = `
		INSERT INTO ledger_entries (key, value, version, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			version = ledger_entries.version + 1,
			updated_at = excluded.updated_at`

	queryScanEntries = `
		SELECT key, value
		FROM ledger_entries
		WHERE instr(key, ?) = 1 AND ` + instanceLive + `
		ORDER BY key`

	queryCountEntries = `
		SELECT COUNT(*)
		FROM ledger_entries
		WHERE ` + instanceLive

	queryDeleteEntries = `
		DELETE FROM ledger_entries`

	// Lifetime queries
	queryGetInstanceExpiry = `
		SELECT expires_at
		FROM ledger_instance
		WHERE id = 1`

	queryUpsertInstance = `
		INSERT INTO ledger_instance (id, expires_at, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`

	queryExtendInstance = `
		UPDATE ledger_instance
		SET expires_at = ?, updated_at = ?
		WHERE id = 1 AND expires_at != 0 AND expires_at > ? AND expires_at < ?`

	queryDeleteInstance = `
		DELETE FROM ledger_instance
		WHERE id = 1`
)
