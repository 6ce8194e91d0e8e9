package analysis

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"
)

type facebookExport struct {
	Title        string           `json:"title"`
	Participants []map[string]any `json:"participants"`
	Messages     []facebookEntry  `json:"messages"`
}

type facebookEntry struct {
	SenderName  string  `json:"sender_name"`
	Content     *string `json:"content"`
	TimestampMs int64   `json:"timestamp_ms"`
	Type        string  `json:"type"`
}

// ParseFacebook decodes a Facebook Messenger export. The messages array is
// reverse-chronological and gets flipped; only entries of type "Generic"
// survive. Sender names and content pass through RepairEncoding because the
// export writes UTF-8 bytes as individual code points.
func ParseFacebook(data []byte) (*Chat, error) {
	var doc facebookExport
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, NewFormatError("File format is wrong.", err)
	}
	if doc.Participants == nil || doc.Messages == nil {
		return nil, NewFormatError("File format is wrong.", fmt.Errorf("missing participants or messages"))
	}

	chat := &Chat{
		Platform: PlatformFacebook,
		Name:     RepairEncoding(doc.Title),
	}
	if chat.Name == "" {
		chat.Name = "noname"
	}

	for i := len(doc.Messages) - 1; i >= 0; i-- {
		m := doc.Messages[i]
		if m.Type != "Generic" {
			continue
		}
		raw := FacebookRaw{
			Sender: RepairEncoding(m.SenderName),
			Time:   time.UnixMilli(m.TimestampMs).UTC(),
		}
		if m.Content != nil {
			raw.Content = RepairEncoding(*m.Content)
			raw.HasContent = true
		}
		chat.Messages = append(chat.Messages, RawMessage{Facebook: &raw})
	}

	if len(chat.Messages) < minMessages {
		return nil, NewFormatError("File format is wrong.", fmt.Errorf("only %d messages", len(chat.Messages)))
	}
	return chat, nil
}

// RepairEncoding corrects the mis-encoded strings Facebook exports produce:
// every UTF-8 byte of the original text appears as its own U+00XX code
// point. When the string consists solely of such code points and they form
// valid multi-byte UTF-8, the reinterpreted text is returned; otherwise the
// input passes through unchanged.
func RepairEncoding(s string) string {
	bytes := make([]byte, 0, len(s))
	multibyte := false
	for _, r := range s {
		if r > 0xFF {
			return s
		}
		if r > 0x7F {
			multibyte = true
		}
		bytes = append(bytes, byte(r))
	}
	if !multibyte || !utf8.Valid(bytes) {
		return s
	}
	return string(bytes)
}
