package analysis

import (
	"strings"
	"time"
)

// turnGapCutoff is the longest silence still counted as a response; gaps at
// or above it are treated as missing, not zero.
const turnGapCutoff = 5 * time.Hour

// pastedBlockRunes is the WhatsApp proxy for "this was pasted, not typed":
// texts at or above this length are excluded from word-count statistics.
const pastedBlockRunes = 230

// Normalize converts parsed raw messages into canonical records in one
// left-to-right pass: turn ids increment exactly when the sender changes,
// the turn gap is the elapsed seconds since the predecessor (kept only on
// turn-initiating messages and only under the cutoff), and hour, weekday
// and word count are derived per record. It is total: any parsed chat
// normalizes without failure.
func Normalize(chat *Chat) []CanonicalMessage {
	out := make([]CanonicalMessage, 0, len(chat.Messages))

	turn := 1
	var prevSender string
	var prevTime time.Time
	for i, raw := range chat.Messages {
		text, hasText := raw.Text()
		m := CanonicalMessage{
			ID:        i,
			Sender:    raw.Sender(),
			Timestamp: raw.Time(),
			Text:      text,
			HasText:   hasText,
			MediaType: mediaTypeOf(raw),
			WordCount: countWords(text),
		}
		if raw.Telegram != nil {
			m.Forwarded = raw.Telegram.Forwarded
		}
		m.Hour = m.Timestamp.Hour()
		m.Weekday = mondayWeekday(m.Timestamp.Weekday())

		if i > 0 && m.Sender != prevSender {
			turn++
			if gap := m.Timestamp.Sub(prevTime); gap < turnGapCutoff {
				m.TurnGap = gap.Seconds()
				m.HasTurnGap = true
			}
		}
		m.TurnID = turn
		prevSender = m.Sender
		prevTime = m.Timestamp

		out = append(out, m)
	}
	return out
}

func mediaTypeOf(raw RawMessage) MediaType {
	switch {
	case raw.WhatsApp != nil:
		return raw.WhatsApp.MediaType
	case raw.Facebook != nil:
		if !raw.Facebook.HasContent {
			return MediaFile
		}
	case raw.Telegram != nil:
		if raw.Telegram.Media {
			return MediaFile
		}
	}
	return MediaNone
}

func countWords(text string) int {
	return len(strings.Fields(text))
}

// mondayWeekday maps time.Weekday (Sunday-based) onto the zero-is-Monday
// numbering the statistics use.
func mondayWeekday(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// wordStatSubset selects the records word-count statistics run on: Telegram
// drops forwarded messages, WhatsApp keeps only texts short enough to have
// been typed, Facebook keeps everything.
func wordStatSubset(msgs []CanonicalMessage, platform Platform) []CanonicalMessage {
	switch platform {
	case PlatformTelegram:
		subset := make([]CanonicalMessage, 0, len(msgs))
		for _, m := range msgs {
			if !m.Forwarded {
				subset = append(subset, m)
			}
		}
		return subset
	case PlatformWhatsApp:
		subset := make([]CanonicalMessage, 0, len(msgs))
		for _, m := range msgs {
			if len([]rune(m.Text)) < pastedBlockRunes {
				subset = append(subset, m)
			}
		}
		return subset
	}
	return msgs
}
