package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRecorder(t *testing.T) {
	var rec Recorder
	ev := UploadCompleted{Type: TypeUploadCompleted, FileName: "jan.csv", Created: 3}

	if err := rec.Publish(context.Background(), "up-1", ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got := rec.Events()
	if len(got) != 1 {
		t.Fatalf("len(Events) = %d, want 1", len(got))
	}
	if got[0].Key != "up-1" {
		t.Errorf("Key = %q, want up-1", got[0].Key)
	}
	if e, ok := got[0].Event.(UploadCompleted); !ok || e.Created != 3 {
		t.Errorf("Event = %#v", got[0].Event)
	}
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.Publish(context.Background(), "k", struct{}{}); err != nil {
		t.Errorf("Publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestUploadCompleted_JSON(t *testing.T) {
	ev := UploadCompleted{
		Type:        TypeUploadCompleted,
		UploadID:    "up-1",
		UploadedBy:  uuid.MustParse("6f1c2d3e-4b5a-4c6d-8e7f-901a2b3c4d5e"),
		UploadedAt:  time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		UniqueDates: []string{"05/01/2024"},
	}

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, key := range []string{"type", "uploadId", "uploadedBy", "uniqueDates"} {
		if _, ok := m[key]; !ok {
			t.Errorf("payload missing %q: %s", key, data)
		}
	}
	if m["type"] != TypeUploadCompleted {
		t.Errorf("type = %v, want %s", m["type"], TypeUploadCompleted)
	}
}
