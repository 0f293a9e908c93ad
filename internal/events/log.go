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

// LogEmitter writes every event as an info-level audit log entry.
type LogEmitter struct {
	logger *zap.Logger
}

// NewLogEmitter returns an emitter writing to logger, or to the global
// logger when logger is nil.
func NewLogEmitter(logger *zap.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit implements the Emitter interface.
func (l *LogEmitter) Emit(e Event) {
	logger := l.logger
	if logger == nil {
		logger = zap.L()
	}
	fields := append([]zap.Field{zap.String("event_type", e.EventType())}, e.Fields()...)
	logger.Info(e.Message(), fields...)
}
