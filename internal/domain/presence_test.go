package domain

import (
	"testing"
	"time"
)

func TestPresenceRecordOnline(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		lastActive time.Time
		want       bool
	}{
		{"never reported", time.Time{}, false},
		{"just reported", now, true},
		{"inside window", now.Add(-LivenessWindow + time.Second), true},
		{"exactly at window", now.Add(-LivenessWindow), false},
		{"long silent", now.Add(-time.Hour), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := PresenceRecord{ParticipantKey: "alice", LastActive: tc.lastActive}
			if got := rec.Online(now, LivenessWindow); got != tc.want {
				t.Fatalf("Online=%v want %v", got, tc.want)
			}
		})
	}
}

func TestExternalParticipantKeyNormalizes(t *testing.T) {
	key := ExternalParticipantKey("  Carol@Partner.Example ")
	if key != "ext:carol@partner.example" {
		t.Fatalf("unexpected key %q", key)
	}
	if key != ExternalParticipantKey("carol@partner.example") {
		t.Fatal("expected case and whitespace insensitive keys")
	}
}

func TestIsMemberChecksBothKinds(t *testing.T) {
	s := &CollabSession{
		InternalParticipants: StringSet{"alice"},
		ExternalParticipants: StringSet{"carol@partner.example"},
	}
	if !s.IsMember("alice") {
		t.Fatal("expected internal membership")
	}
	if !s.IsMember("ext:carol@partner.example") {
		t.Fatal("expected external membership by participant key")
	}
	if s.IsMember("carol@partner.example") {
		t.Fatal("raw email is not a participant key")
	}
	if s.IsMember("mallory") {
		t.Fatal("unexpected membership")
	}
}
