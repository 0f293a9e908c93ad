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

package ledger

import (
	"context"
	"fmt"

	"loyalty-ledger-go/internal/models"
)

// Authenticator is the authorization oracle supplied by the hosting
// environment. RequireAuth fails unless the caller of ctx is authenticated as id.
type Authenticator interface {
	RequireAuth(ctx context.Context, id models.Identity) error
}

// AuthFunc adapts a function to the Authenticator interface.
type AuthFunc func(ctx context.Context, id models.Identity) error

func (f AuthFunc) RequireAuth(ctx context.Context, id models.Identity) error {
	return f(ctx, id)
}

// CallerAuthenticator accepts a call when the caller attached to the context
// with models.WithCaller equals the required identity. Hosts that verify the
// caller themselves (JWT, local operator) use it.
type CallerAuthenticator struct{}

func (CallerAuthenticator) RequireAuth(ctx context.Context, id models.Identity) error {
	caller, ok := models.CallerFromContext(ctx)
	if !ok {
		return fmt.Errorf("%w: no caller identity", ErrAuthenticationFailed)
	}
	if caller != id {
		return fmt.Errorf("%w: caller %s is not %s", ErrAuthenticationFailed, caller, id)
	}
	return nil
}
