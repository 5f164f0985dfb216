package api

import (
	"encoding/json"
	"strconv"
	"testing"

	"cvforge/internal/errcode"
	"cvforge/internal/worker"
)

func TestUserNotifyChannelSharedName(t *testing.T) {
	if got := worker.UserNotifyChannel(42); got != "user_notify:42" {
		t.Fatalf("unexpected channel name: %q", got)
	}
}

func TestDecodeNotifyEventValid(t *testing.T) {
	payload, err := json.Marshal(worker.PreviewNotifyMessage{
		Status:        "completed",
		ResumeID:      7,
		CorrelationID: "corr-1",
		PreviewURL:    "https://cdn.example.com/preview.jpg",
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	event, err := decodeNotifyEvent(payload)
	if err != nil {
		t.Fatalf("decode valid notification: %v", err)
	}
	if event.Type != "preview" {
		t.Fatalf("expected event type preview, got %q", event.Type)
	}
	if event.Data.ResumeID != 7 || event.Data.Status != "completed" {
		t.Fatalf("unexpected event data: %+v", event.Data)
	}
}

func TestDecodeNotifyEventRejectsBadPayload(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"not json", "{broken"},
		{"missing status", `{"resume_id":7}`},
		{"missing resume id", `{"status":"failed","error_code":` + strconv.Itoa(errcode.SystemError) + `}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := decodeNotifyEvent([]byte(tc.payload)); err == nil {
				t.Fatalf("expected error for payload %q", tc.payload)
			}
		})
	}
}
