package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlFallbackLimit bounds the cost of the YAML fallback parse. Telegram
// desktop briefly exported histories as YAML; anything bigger than this is
// rejected outright instead of being fed to the YAML decoder.
const yamlFallbackLimit = 8 << 20

// Telegram exports use naive local timestamps like "2022-06-05T12:22:12";
// newer builds may include a zone offset.
var telegramDateLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
}

type telegramEntry struct {
	kind      string
	sender    string
	senderID  string
	date      string
	text      any
	forwarded bool
	media     bool
}

type telegramJSONExport struct {
	ID       json.RawMessage     `json:"id"`
	Name     *string             `json:"name"`
	Messages []telegramJSONEntry `json:"messages"`
}

type telegramJSONEntry struct {
	Type          string          `json:"type"`
	From          string          `json:"from"`
	FromID        string          `json:"from_id"`
	Date          string          `json:"date"`
	Text          json.RawMessage `json:"text"`
	ForwardedFrom json.RawMessage `json:"forwarded_from"`
	MediaType     string          `json:"media_type"`
}

type telegramYAMLExport struct {
	ID       any                 `yaml:"id"`
	Name     *string             `yaml:"name"`
	Messages []telegramYAMLEntry `yaml:"messages"`
}

type telegramYAMLEntry struct {
	Type          string  `yaml:"type"`
	From          *string `yaml:"from"`
	FromID        string  `yaml:"from_id"`
	Date          string  `yaml:"date"`
	Text          any     `yaml:"text"`
	ForwardedFrom *string `yaml:"forwarded_from"`
	MediaType     string  `yaml:"media_type"`
}

// ParseTelegram decodes a Telegram chat export. The document is JSON with a
// YAML fallback. Service entries are dropped; only entries of type "message"
// survive. Naive timestamps are interpreted in loc.
func ParseTelegram(data []byte, loc *time.Location) (*Chat, error) {
	id, name, entries, err := decodeTelegram(data)
	if err != nil {
		return nil, NewFormatError("File format is wrong.", err)
	}

	chat := &Chat{
		Platform: PlatformTelegram,
		Name:     name,
		Identity: id,
	}
	if chat.Name == "" {
		chat.Name = "noname"
	}

	for _, e := range entries {
		if e.kind != "message" {
			continue
		}
		sender := e.sender
		if sender == "" {
			sender = e.senderID
		}
		if sender == "" {
			sender = "Deleted user"
		}
		ts, err := parseTelegramDate(e.date, loc)
		if err != nil {
			return nil, NewFormatError("File format is wrong.", err)
		}
		raw := TelegramRaw{
			Sender:    sender,
			SenderID:  e.senderID,
			Time:      ts,
			Forwarded: e.forwarded,
			Media:     e.media,
		}
		// Rich-text entries export text as an array of fragments; anything
		// that is not a plain string counts as having no text.
		if s, ok := e.text.(string); ok {
			raw.Text = s
			raw.HasText = true
		}
		chat.Messages = append(chat.Messages, RawMessage{Telegram: &raw})
	}

	if len(chat.Messages) < minMessages {
		return nil, NewFormatError("File format is wrong.", fmt.Errorf("only %d messages", len(chat.Messages)))
	}
	return chat, nil
}

func decodeTelegram(data []byte) (id, name string, entries []telegramEntry, err error) {
	var doc telegramJSONExport
	if jsonErr := json.Unmarshal(data, &doc); jsonErr == nil {
		if doc.ID == nil || doc.Name == nil || doc.Messages == nil {
			return "", "", nil, fmt.Errorf("missing required field (id, name or messages)")
		}
		for _, m := range doc.Messages {
			entries = append(entries, telegramEntry{
				kind:      m.Type,
				sender:    m.From,
				senderID:  m.FromID,
				date:      m.Date,
				text:      decodeJSONText(m.Text),
				forwarded: hasJSONValue(m.ForwardedFrom),
				media:     m.MediaType != "",
			})
		}
		return stringifyRawID(doc.ID), *doc.Name, entries, nil
	}

	if len(data) > yamlFallbackLimit {
		return "", "", nil, fmt.Errorf("file too large for YAML fallback (%d bytes)", len(data))
	}

	var ydoc telegramYAMLExport
	if yamlErr := yaml.Unmarshal(data, &ydoc); yamlErr != nil {
		return "", "", nil, yamlErr
	}
	if ydoc.ID == nil || ydoc.Name == nil || ydoc.Messages == nil {
		return "", "", nil, fmt.Errorf("missing required field (id, name or messages)")
	}
	for _, m := range ydoc.Messages {
		e := telegramEntry{
			kind:      m.Type,
			senderID:  m.FromID,
			date:      m.Date,
			text:      m.Text,
			forwarded: m.ForwardedFrom != nil && *m.ForwardedFrom != "",
			media:     m.MediaType != "",
		}
		if m.From != nil {
			e.sender = *m.From
		}
		entries = append(entries, e)
	}
	return fmt.Sprint(ydoc.ID), *ydoc.Name, entries, nil
}

func decodeJSONText(raw json.RawMessage) any {
	if raw == nil {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

func hasJSONValue(raw json.RawMessage) bool {
	if raw == nil {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	}
	return true
}

// stringifyRawID turns the export's id field (number or string) into the
// canonical chat identity string used for update matching.
func stringifyRawID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return strings.TrimSpace(string(raw))
}

func parseTelegramDate(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range telegramDateLayouts {
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad message date %q", s)
}
