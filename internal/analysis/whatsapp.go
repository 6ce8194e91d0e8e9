package analysis

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// minMessages is the shortest history worth analyzing; anything below it is
// a format error on every platform.
const minMessages = 3

// WhatsApp launched in 2009; detected timestamps before that, or in the
// future, rule a candidate format out.
const whatsappEpochYear = 2009

// Service notices WhatsApp interleaves with the transcript. Lines containing
// any of these are dropped entirely before message parsing. Media-omitted
// placeholders are not in this list: those stay and become media messages.
var whatsappServicePhrases = []string{
	"Пропущенный аудиозвонок",
	"Пропущенный видеозвонок",
	"Missed voice call",
	"Missed video",
	"защищены сквозным шифрованием",
	"No one outside of this chat, not even WhatsApp",
	"Messages to this chat and calls are now secured",
	"Данное сообщение удалено",
	"Вы удалили данное сообщение",
	"deleted this message",
	"was deleted",
	"Your security code with",
}

var whatsappMediaPhrases = []string{
	"Без медиафайлов",
	"Media omitted",
}

var (
	whatsappLineRegex = regexp.MustCompile(
		`^(\d{1,2}[/.]\d{1,2}[/.]\d{2,4},?\s\d{2}[:.]\d{2}(?:[:.]\d{2})?(?:\s?[APap][Mm])?)\s-\s(\S+|[^:]*):\s(.*)$`)

	whatsappLinkRegex = regexp.MustCompile(
		`(?i)\b(?:https?://|www\d{0,3}\.|[a-z0-9.\-]+\.[a-z]{2,6}/)[^\s()<>]+`)
)

// whatsappDatetimeLayouts is the fixed catalogue of date-format by
// time-format combinations tried during detection, built once at init.
var whatsappDatetimeLayouts = buildWhatsappLayouts()

func buildWhatsappLayouts() []string {
	dates := []string{
		"2.1.06", "1.2.06", "2.1.2006", "1.2.2006", "06.1.2", "06.2.1",
		"1/2/06", "2/1/06", "1/2/2006", "2/1/2006", "06/2/1", "06/1/2",
	}
	times := []string{
		", 15:04", ", 15:04:05", " 15:04", " 15:04:05",
		", 15.04", ", 15.04.05", " 15.04", " 15.04.05",
		", 15:04 PM", ", 15:04:05 PM", " 15:04 PM", " 15:04:05 PM",
		", 15.04 PM", ", 15.04.05 PM", " 15.04 PM", " 15.04.05 PM",
		", 15:04PM", ", 15:04:05PM", " 15:04PM", " 15:04:05PM",
		", 15.04PM", ", 15.04.05PM", " 15.04PM", " 15.04.05PM",
	}
	layouts := make([]string, 0, len(dates)*len(times))
	for _, d := range dates {
		for _, t := range times {
			layouts = append(layouts, d+t)
		}
	}
	return layouts
}

type whatsappLine struct {
	datetime string
	sender   string
	text     string
}

// ParseWhatsApp decodes a plain-text WhatsApp transcript. Lines matching
// the "<datetime> - <sender>: <text>" grammar start messages; every other
// line continues the previous message. The datetime format is detected from
// the transcript itself.
func ParseWhatsApp(data []byte, loc *time.Location) (*Chat, error) {
	lines := collectWhatsappLines(string(data))
	if len(lines) < minMessages {
		return nil, NewFormatError("File format is wrong.", fmt.Errorf("only %d messages", len(lines)))
	}

	candidates := make([]string, len(lines))
	for i, l := range lines {
		candidates[i] = l.datetime
	}
	layout, err := DetectDatetimeFormat(candidates, loc)
	if err != nil {
		return nil, err
	}

	chat := &Chat{Platform: PlatformWhatsApp}
	for _, l := range lines {
		ts, err := time.ParseInLocation(layout, l.datetime, loc)
		if err != nil {
			return nil, NewFormatError("File format is wrong or this WhatsApp localization is not supported yet.", err)
		}
		raw := WhatsAppRaw{
			Sender: l.sender,
			Time:   ts,
			Text:   l.text,
		}
		switch {
		case whatsappLinkRegex.MatchString(l.text):
			raw.MediaType = MediaURL
			raw.Text = ""
		case containsAny(l.text, whatsappMediaPhrases):
			raw.MediaType = MediaFile
			raw.Text = ""
		}
		chat.Messages = append(chat.Messages, RawMessage{WhatsApp: &raw})
	}
	return chat, nil
}

func collectWhatsappLines(text string) []whatsappLine {
	var lines []whatsappLine
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if containsAny(line, whatsappServicePhrases) {
			continue
		}
		if m := whatsappLineRegex.FindStringSubmatch(line); m != nil {
			sender := m[2]
			if sender == "" {
				sender = "You"
			}
			lines = append(lines, whatsappLine{datetime: m[1], sender: sender, text: m[3]})
			continue
		}
		if len(lines) > 0 {
			lines[len(lines)-1].text += "\n" + line
		}
	}
	return lines
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// DetectDatetimeFormat finds the one layout from the catalogue that parses
// every sampled candidate into a plausible date. Long candidate lists are
// sampled: the first 50, a 50-wide window around the midpoint, and the last
// 50. Detection fails unless exactly one layout survives all samples.
func DetectDatetimeFormat(candidates []string, loc *time.Location) (string, error) {
	if total := len(candidates); total > 200 {
		sample := make([]string, 0, 150)
		sample = append(sample, candidates[:50]...)
		sample = append(sample, candidates[total/2-25:total/2+25]...)
		sample = append(sample, candidates[total-50:]...)
		candidates = sample
	}

	now := time.Now()
	surviving := make(map[string]bool, len(whatsappDatetimeLayouts))
	for _, layout := range whatsappDatetimeLayouts {
		surviving[layout] = true
	}
	for _, c := range candidates {
		for layout := range surviving {
			ts, err := time.ParseInLocation(layout, c, loc)
			if err != nil || !ts.Before(now) || ts.Year() < whatsappEpochYear {
				delete(surviving, layout)
			}
		}
		if len(surviving) == 0 {
			break
		}
	}

	if len(surviving) != 1 {
		return "", NewFormatError(
			"File format is wrong or this WhatsApp localization is not supported yet.",
			fmt.Errorf("datetime format detection left %d candidates", len(surviving)))
	}
	for layout := range surviving {
		return layout, nil
	}
	return "", nil
}
