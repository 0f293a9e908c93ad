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

package events

import "go.uber.org/zap"

const (
	TypeMerchantRegistered = "loyalty.merchant.registered"
	TypePointsIssued       = "loyalty.points.issued"
	TypePointsRedeemed     = "loyalty.points.redeemed"
)

// Event is an audit record emitted after a state-changing ledger operation.
// Events are sideband telemetry; ledger correctness never depends on them.
type Event interface {
	EventType() string
	// Message is a human-readable summary of the state change
	Message() string
	Fields() []zap.Field
}

// Emitter broadcasts events to downstream subscribers (logs, metrics, mirrors).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter discards all events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// MultiEmitter fans each event out to every non-nil emitter in order.
type MultiEmitter []Emitter

// Emit implements the Emitter interface.
func (m MultiEmitter) Emit(e Event) {
	for _, emitter := range m {
		if emitter != nil {
			emitter.Emit(e)
		}
	}
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Event)

// Emit implements the Emitter interface.
func (f EmitterFunc) Emit(e Event) { f(e) }
