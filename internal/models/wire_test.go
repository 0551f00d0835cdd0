package models

import "testing"

func TestDecodeClientMessage(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"join","userId":"u1","displayName":"Ada"}`))
	if err != nil {
		t.Fatalf("decode join: %v", err)
	}
	jm, ok := msg.(*JoinMessage)
	if !ok {
		t.Fatalf("decoded %T, want *JoinMessage", msg)
	}
	if jm.UserID != "u1" || jm.DisplayName != "Ada" {
		t.Fatalf("join = %+v", jm)
	}
}

func TestDecodeUnknownTypeIsDropped(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"time_travel"}`))
	if err != nil || msg != nil {
		t.Fatalf("unknown type: msg=%v err=%v, want nil/nil", msg, err)
	}
	msg, err = DecodeServerMessage([]byte(`{"type":"mystery"}`))
	if err != nil || msg != nil {
		t.Fatalf("unknown server type: msg=%v err=%v, want nil/nil", msg, err)
	}
}

func TestDecodeMalformedFrame(t *testing.T) {
	if _, err := DecodeClientMessage([]byte(`{"type":`)); err == nil {
		t.Fatalf("malformed frame decoded without error")
	}
	// Well-formed envelope, wrong field shape.
	if _, err := DecodeClientMessage([]byte(`{"type":"cursor_position","position":"nope"}`)); err == nil {
		t.Fatalf("mistyped position decoded without error")
	}
}

func TestDecodeServerMessagePreservesDocument(t *testing.T) {
	raw := []byte(`{"type":"welcome","userId":"u1","displayName":"Ada","color":"#FF6B6B",` +
		`"code":"print('héllo')\n","language":"python","participants":[{"userId":"u2","displayName":"Grace","color":"#4ECDC4"}]}`)
	msg, err := DecodeServerMessage(raw)
	if err != nil {
		t.Fatalf("decode welcome: %v", err)
	}
	wm := msg.(*WelcomeMessage)
	if wm.Code != "print('héllo')\n" {
		t.Fatalf("code = %q", wm.Code)
	}
	if len(wm.Participants) != 1 || wm.Participants[0].Color != "#4ECDC4" {
		t.Fatalf("participants = %+v", wm.Participants)
	}
}
