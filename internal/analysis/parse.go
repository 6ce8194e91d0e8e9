package analysis

import (
	"bytes"
	"encoding/json"
	"time"
)

// DetectPlatform sniffs the export platform from the file content. JSON
// documents split on the presence of a participants array (Facebook);
// everything that is not JSON-shaped is assumed to be a WhatsApp transcript.
func DetectPlatform(data []byte) Platform {
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return PlatformWhatsApp
	}
	var probe struct {
		Participants json.RawMessage `json:"participants"`
	}
	if err := json.Unmarshal(data, &probe); err == nil && probe.Participants != nil {
		return PlatformFacebook
	}
	return PlatformTelegram
}

// Parse decodes an export file for the given platform. An empty platform
// triggers content sniffing.
func Parse(data []byte, platform Platform, loc *time.Location) (*Chat, error) {
	if platform == "" {
		platform = DetectPlatform(data)
	}
	switch platform {
	case PlatformTelegram:
		return ParseTelegram(data, loc)
	case PlatformFacebook:
		return ParseFacebook(data)
	case PlatformWhatsApp:
		return ParseWhatsApp(data, loc)
	}
	return nil, NewUnsupportedPlatformError(string(platform))
}

// ExcludeSenders removes raw messages whose sender is on the exclusion
// list, in place of the chat's message slice. Telegram messages also match
// on the raw from_id. Applied before normalization.
func ExcludeSenders(chat *Chat, excluded []string) {
	if len(excluded) == 0 {
		return
	}
	drop := make(map[string]bool, len(excluded))
	for _, name := range excluded {
		drop[name] = true
	}
	kept := chat.Messages[:0]
	for _, m := range chat.Messages {
		if drop[m.Sender()] {
			continue
		}
		if m.Telegram != nil && m.Telegram.SenderID != "" && drop[m.Telegram.SenderID] {
			continue
		}
		kept = append(kept, m)
	}
	chat.Messages = kept
}

// VerifyIdentity compares the chat identity derived from a fresh parse with
// the identity stored for the analysis being updated. Platforms without a
// stable identity always pass.
func VerifyIdentity(chat *Chat, prior string) error {
	if prior == "" || chat.Platform != PlatformTelegram {
		return nil
	}
	if chat.Identity != prior {
		return NewIdentityMismatchError()
	}
	return nil
}
