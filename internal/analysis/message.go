// Package analysis implements the core of the chat analytics pipeline:
// platform-specific export parsers, the canonical message normalizer, and
// the statistics aggregator.
package analysis

import "time"

// Platform identifies the messaging service a chat history was exported from.
type Platform string

const (
	PlatformTelegram Platform = "Telegram"
	PlatformWhatsApp Platform = "WhatsApp"
	PlatformFacebook Platform = "Facebook"
)

// Language identifies the language the lexical pipeline should assume.
type Language string

const (
	LanguageRussian          Language = "ru"
	LanguageEnglish          Language = "en"
	LanguageUkrainian        Language = "uk"
	LanguageUkrainianRussian Language = "uk-ru"
)

// MediaType classifies what a message carries besides plain text.
type MediaType int

const (
	MediaNone MediaType = iota
	MediaFile
	MediaURL
)

// TelegramRaw is a Telegram export entry of type "message". Media reflects
// the export's own media_type marker (voice, video, sticker and so on).
type TelegramRaw struct {
	Sender string
	// SenderID is the export's raw from_id; exclusion matches it too.
	SenderID  string
	Time      time.Time
	Text      string
	HasText   bool
	Forwarded bool
	Media     bool
}

// FacebookRaw is a Facebook export entry of type "Generic". A message
// without content is a media message.
type FacebookRaw struct {
	Sender     string
	Time       time.Time
	Content    string
	HasContent bool
}

// WhatsAppRaw is one parsed line group of a WhatsApp transcript.
type WhatsAppRaw struct {
	Sender    string
	Time      time.Time
	Text      string
	MediaType MediaType
}

// RawMessage is the platform-tagged variant produced by the parsers.
// Exactly one of the case pointers is set, matching the chat's platform.
type RawMessage struct {
	Telegram *TelegramRaw
	Facebook *FacebookRaw
	WhatsApp *WhatsAppRaw
}

// Sender returns the message sender regardless of platform.
func (m RawMessage) Sender() string {
	switch {
	case m.Telegram != nil:
		return m.Telegram.Sender
	case m.Facebook != nil:
		return m.Facebook.Sender
	case m.WhatsApp != nil:
		return m.WhatsApp.Sender
	}
	return ""
}

// Time returns the message timestamp regardless of platform.
func (m RawMessage) Time() time.Time {
	switch {
	case m.Telegram != nil:
		return m.Telegram.Time
	case m.Facebook != nil:
		return m.Facebook.Time
	case m.WhatsApp != nil:
		return m.WhatsApp.Time
	}
	return time.Time{}
}

// Text returns the message text and whether the message has one. Media
// messages and rich-text entries report no text.
func (m RawMessage) Text() (string, bool) {
	switch {
	case m.Telegram != nil:
		return m.Telegram.Text, m.Telegram.HasText
	case m.Facebook != nil:
		return m.Facebook.Content, m.Facebook.HasContent
	case m.WhatsApp != nil:
		if m.WhatsApp.MediaType != MediaNone {
			return "", false
		}
		return m.WhatsApp.Text, true
	}
	return "", false
}

// Chat is the output of a parse: the platform, display name, the platform's
// chat identity (Telegram only), and the time-ordered raw messages.
type Chat struct {
	Platform Platform
	Name     string
	Identity string
	Messages []RawMessage
}

// CanonicalMessage is the platform-independent record all analytics work on.
// Weekday is zero-based starting at Monday. TurnGap is the elapsed seconds
// since the previous turn and is meaningful only when HasTurnGap is set.
type CanonicalMessage struct {
	ID         int
	Sender     string
	Timestamp  time.Time
	Text       string
	HasText    bool
	MediaType  MediaType
	Forwarded  bool
	WordCount  int
	Hour       int
	Weekday    int
	TurnID     int
	TurnGap    float64
	HasTurnGap bool
}
