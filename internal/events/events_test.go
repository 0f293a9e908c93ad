package events

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogEmitter_WritesAuditEntry(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	emitter := NewLogEmitter(zap.New(core))

	emitter.Emit(PointsIssued{
		OperationId:       "op-1",
		Merchant:          "merchant-a",
		User:              "user-1",
		Points:            100,
		UserBalance:       100,
		TotalPointsIssued: 100,
		TotalSupply:       100,
	})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 log entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Message != "Issued 100 points to user-1 from merchant merchant-a" {
		t.Errorf("Unexpected message %q", entry.Message)
	}
	fields := entry.ContextMap()
	if fields["event_type"] != TypePointsIssued {
		t.Errorf("Expected event_type %s, got %v", TypePointsIssued, fields["event_type"])
	}
	if fields["points"] != uint64(100) {
		t.Errorf("Expected points 100, got %v", fields["points"])
	}
}

func TestMultiEmitter_FansOut(t *testing.T) {
	var got []string
	record := EmitterFunc(func(e Event) { got = append(got, e.EventType()) })

	MultiEmitter{record, nil, NoopEmitter{}, record}.Emit(MerchantRegistered{Merchant: "m"})

	if len(got) != 2 {
		t.Fatalf("Expected event delivered twice, got %d", len(got))
	}
	if got[0] != TypeMerchantRegistered {
		t.Errorf("Expected %s, got %s", TypeMerchantRegistered, got[0])
	}
}

func TestEventMessages(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{MerchantRegistered{Merchant: "m1"}, "Merchant registered successfully: m1"},
		{PointsRedeemed{User: "u1", Merchant: "m2", Points: 40}, "User u1 redeemed 40 points at merchant m2"},
	}
	for _, tt := range tests {
		if got := tt.event.Message(); got != tt.want {
			t.Errorf("Message() = %q, want %q", got, tt.want)
		}
	}
}
