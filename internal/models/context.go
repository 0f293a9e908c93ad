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

import "context"

type callerContextKey struct{}

// WithCaller attaches the authenticated caller identity to a context.
// Hosts call this after they have verified who is invoking the ledger.
func WithCaller(ctx context.Context, caller Identity) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext returns the caller identity, or false if none was attached.
func CallerFromContext(ctx context.Context) (Identity, bool) {
	caller, ok := ctx.Value(callerContextKey{}).(Identity)
	if !ok || !caller.Valid() {
		return "", false
	}
	return caller, true
}
