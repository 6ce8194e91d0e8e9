package analysis_test

import (
	"errors"
	"testing"
	"time"

	"github.com/chatlens/chatlens/internal/analysis"
)

func TestDetectPlatform(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want analysis.Platform
	}{
		{name: "whatsapp transcript", data: "31/05/22, 23:40 - A: hi", want: analysis.PlatformWhatsApp},
		{name: "empty", data: "", want: analysis.PlatformWhatsApp},
		{name: "facebook json", data: `{"participants": [], "messages": []}`, want: analysis.PlatformFacebook},
		{name: "telegram json", data: `{"id": 1, "name": "x", "messages": []}`, want: analysis.PlatformTelegram},
		{name: "json with leading whitespace", data: "\n  {\"id\": 1}", want: analysis.PlatformTelegram},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := analysis.DetectPlatform([]byte(tt.data)); got != tt.want {
				t.Errorf("DetectPlatform() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseUnsupportedPlatform(t *testing.T) {
	t.Parallel()

	_, err := analysis.Parse([]byte("x"), analysis.Platform("ICQ"), time.UTC)
	var platformErr *analysis.UnsupportedPlatformError
	if !errors.As(err, &platformErr) {
		t.Fatalf("Parse() error = %v, want UnsupportedPlatformError", err)
	}
	if analysis.Code(err) != analysis.CodeUnsupportedPlatform {
		t.Errorf("code = %q", analysis.Code(err))
	}
}

func TestExcludeSenders(t *testing.T) {
	t.Parallel()

	chat, err := analysis.ParseWhatsApp([]byte(fixtureTranscript), fixtureZone)
	if err != nil {
		t.Fatalf("ParseWhatsApp() error = %v", err)
	}
	analysis.ExcludeSenders(chat, []string{"User2"})

	for _, m := range chat.Messages {
		if m.Sender() == "User2" {
			t.Fatal("excluded sender still present")
		}
	}
	if len(chat.Messages) != 12 {
		t.Errorf("message count after exclusion = %d, want 12", len(chat.Messages))
	}
}

func TestExcludeSendersTelegramByID(t *testing.T) {
	t.Parallel()

	export := `{
		"id": 42, "name": "group",
		"messages": [
			{"type": "message", "from": "Alice", "from_id": "user1", "date": "2022-06-05T10:00:00", "text": "hi"},
			{"type": "message", "from": "Bot", "from_id": "user999", "date": "2022-06-05T10:01:00", "text": "spam"},
			{"type": "message", "from": "Bob", "from_id": "user2", "date": "2022-06-05T10:02:00", "text": "hello"}
		]
	}`
	chat, err := analysis.ParseTelegram([]byte(export), time.UTC)
	if err != nil {
		t.Fatalf("ParseTelegram() error = %v", err)
	}

	// Excluding by the raw from_id drops the message even though its
	// display name differs.
	analysis.ExcludeSenders(chat, []string{"user999"})

	if len(chat.Messages) != 2 {
		t.Fatalf("message count after exclusion = %d, want 2", len(chat.Messages))
	}
	for _, m := range chat.Messages {
		if m.Sender() == "Bot" {
			t.Fatal("sender excluded by id still present")
		}
	}
}

func TestVerifyIdentity(t *testing.T) {
	t.Parallel()

	telegram := &analysis.Chat{Platform: analysis.PlatformTelegram, Identity: "111"}
	whatsapp := &analysis.Chat{Platform: analysis.PlatformWhatsApp}

	if err := analysis.VerifyIdentity(telegram, ""); err != nil {
		t.Errorf("no prior identity: %v", err)
	}
	if err := analysis.VerifyIdentity(telegram, "111"); err != nil {
		t.Errorf("matching identity: %v", err)
	}
	if err := analysis.VerifyIdentity(whatsapp, "anything"); err != nil {
		t.Errorf("whatsapp has no stable identity: %v", err)
	}

	err := analysis.VerifyIdentity(telegram, "222")
	var mismatch *analysis.IdentityMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("VerifyIdentity() error = %v, want IdentityMismatchError", err)
	}
	if analysis.Display(err) != "You've uploaded a different chat history." {
		t.Errorf("display = %q", analysis.Display(err))
	}
}
