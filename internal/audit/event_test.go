package audit

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xela07ax/oversight-gate/internal/domain"
)

func TestNewInitiated(t *testing.T) {
	params := map[string]any{"user_id": "1"}
	e := NewInitiated("Ops", "c-1", "Delete user data", params)

	if e.PartitionKey != "Ops" || e.RowKey != "c-1" {
		t.Errorf("keys = %q/%q, want agent name / correlation id", e.PartitionKey, e.RowKey)
	}
	if e.Status != domain.StatusInitiated {
		t.Errorf("status = %s, want Initiated", e.Status)
	}
	if e.ActionDescription != "Delete user data" || e.Parameters["user_id"] != "1" {
		t.Errorf("initiated context lost: %+v", e)
	}
	if _, err := time.Parse(time.RFC3339Nano, e.Timestamp); err != nil {
		t.Errorf("timestamp %q is not ISO-8601: %v", e.Timestamp, err)
	}
}

func TestEvent_WireKeys(t *testing.T) {
	e := NewInitiated("Ops", "c-1", "act", map[string]any{"k": "v"})
	raw, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}

	// PascalCase-ключи — контракт внешних потребителей
	for _, key := range []string{`"PartitionKey"`, `"RowKey"`, `"Status"`, `"Timestamp"`, `"ActionDescription"`, `"Parameters"`} {
		if !strings.Contains(string(raw), key) {
			t.Errorf("wire format missing %s: %s", key, raw)
		}
	}
	// Поля других переходов не должны засорять Initiated
	for _, key := range []string{`"Approver"`, `"Error"`, `"CompletionTimestamp"`, `"ExecutionTimestamp"`} {
		if strings.Contains(string(raw), key) {
			t.Errorf("initiated event must omit %s: %s", key, raw)
		}
	}
}

type captureSink struct {
	events []Event
}

func (c *captureSink) Emit(e Event) { c.events = append(c.events, e) }

func TestTee_PreservesOrderAndSnapshots(t *testing.T) {
	first, second := &captureSink{}, &captureSink{}
	tee := Tee{first, second}

	e := NewInitiated("Ops", "c-1", "act", nil)
	tee.Emit(e)

	// Рабочая запись мутируется дальше — снимок в стоке меняться не должен
	e.Status = domain.StatusApproved
	e.Approver = "bob@x"
	tee.Emit(e)

	for _, sink := range []*captureSink{first, second} {
		if len(sink.events) != 2 {
			t.Fatalf("sink got %d events, want 2", len(sink.events))
		}
		if sink.events[0].Status != domain.StatusInitiated || sink.events[0].Approver != "" {
			t.Errorf("first snapshot was mutated retroactively: %+v", sink.events[0])
		}
		if sink.events[1].Status != domain.StatusApproved {
			t.Errorf("second snapshot lost transition: %+v", sink.events[1])
		}
	}
}

func TestZapSink_EmitsOneLinePerEvent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := NewZapSink(zap.New(core))

	sink.Emit(NewInitiated("Ops", "c-1", "act", map[string]any{"k": "v"}))

	entries := logs.FilterMessage("approval event").All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["row_key"] != "c-1" || ctx["partition_key"] != "Ops" || ctx["status"] != "Initiated" {
		t.Errorf("log fields mismatch: %+v", ctx)
	}
}
