package domain

import (
	"testing"
	"time"
)

func TestSessionValid(t *testing.T) {
	now := time.Now()
	var nilSession *Session
	if nilSession.Valid(now) {
		t.Fatalf("nil session must be invalid")
	}

	s := NewSession("s1", User{ID: "u1", Role: SenderRoleClient}, now.Add(time.Hour))
	if !s.Valid(now) {
		t.Fatalf("expected fresh session valid")
	}
	if s.Valid(now.Add(2 * time.Hour)) {
		t.Fatalf("expected expired session invalid")
	}

	s.Invalidate()
	if s.Valid(now) {
		t.Fatalf("expected invalidated session invalid")
	}
}

func TestSessionSenderNameFallback(t *testing.T) {
	s := NewSession("s1", User{ID: "u1", Role: SenderRoleClient}, time.Time{})
	if s.SenderName() != "Client" {
		t.Fatalf("expected Client fallback, got %q", s.SenderName())
	}
	c := NewSession("s2", User{ID: "u2", Role: SenderRoleCounselor}, time.Time{})
	if c.SenderName() != "Counselor" || !c.IsCounselor() {
		t.Fatalf("expected counselor fallback, got %q", c.SenderName())
	}
	n := NewSession("s3", User{ID: "u3", DisplayName: "Ana"}, time.Time{})
	if n.SenderName() != "Ana" {
		t.Fatalf("expected display name, got %q", n.SenderName())
	}
}

func TestChatMessageHasCaption(t *testing.T) {
	img := ChatMessage{Kind: MessageKindImage, Body: ImagePlaceholderBody}
	if img.HasCaption() {
		t.Fatalf("placeholder is not a caption")
	}
	img.Body = "lunch!"
	if !img.HasCaption() {
		t.Fatalf("expected caption")
	}
}
