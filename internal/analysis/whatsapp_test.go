package analysis_test

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/chatlens/chatlens/internal/analysis"
)

// fixtureTranscript is a small two-week WhatsApp export with three
// participants, media placeholders, a bare link and a service notice.
const fixtureTranscript = `Messages to this chat and calls are now secured with end-to-end encryption.
31/05/22, 23:40 - User:): Hello
31/05/22, 23:45 - User2: Hi
1/6/22, 05:00 - User1: How are you doing today
5/6/22, 00:09 - User1: Are you around
5/6/22, 00:50 - User2: Yes I am here now
5/6/22, 00:59 - User:): Good night
5/6/22, 01:00 - User1: Ok
5/6/22, 01:10 - User1: Fine then
5/6/22, 01:20 - User1: See you tomorrow
8/6/22, 04:00 - User2: <Media omitted>
8/6/22, 04:03 - User1: Nice photo
10/6/22, 00:30 - User1: Look at this
10/6/22, 00:40 - User1: https://example.com/a
10/6/22, 00:45 - User:): <Media omitted>
12/6/22, 02:50 - User1: Anyone awake
12/6/22, 03:05 - User2: Yes
`

// fixtureZone is UTC+3; naive transcript timestamps resolve in it.
var fixtureZone = time.FixedZone("UTC+3", 3*60*60)

func parseFixture(t *testing.T) []analysis.CanonicalMessage {
	t.Helper()
	chat, err := analysis.ParseWhatsApp([]byte(fixtureTranscript), fixtureZone)
	if err != nil {
		t.Fatalf("ParseWhatsApp() error = %v", err)
	}
	return analysis.Normalize(chat)
}

func TestParseWhatsAppFixture(t *testing.T) {
	t.Parallel()

	msgs := parseFixture(t)

	if len(msgs) != 16 {
		t.Fatalf("message count = %d, want 16", len(msgs))
	}
	if msgs[0].Sender != "User:)" {
		t.Errorf("first sender = %q, want %q", msgs[0].Sender, "User:)")
	}
	if got := msgs[0].Timestamp; !got.Equal(time.Date(2022, 5, 31, 23, 40, 0, 0, fixtureZone)) {
		t.Errorf("first timestamp = %v", got)
	}

	mediaCount := 0
	for _, m := range msgs {
		if m.MediaType != analysis.MediaNone {
			mediaCount++
		}
	}
	if mediaCount != 3 {
		t.Errorf("media messages = %d, want 3", mediaCount)
	}
	if msgs[12].MediaType != analysis.MediaURL {
		t.Errorf("link message MediaType = %v, want MediaURL", msgs[12].MediaType)
	}
	if msgs[9].MediaType != analysis.MediaFile {
		t.Errorf("omitted-media message MediaType = %v, want MediaFile", msgs[9].MediaType)
	}
	if msgs[9].HasText {
		t.Error("media message should have no text")
	}
}

func TestNormalizeWhatsAppTurns(t *testing.T) {
	t.Parallel()

	msgs := parseFixture(t)

	// m11 and m12 are the same sender across a day boundary: same turn.
	if msgs[10].TurnID != msgs[11].TurnID {
		t.Errorf("consecutive same-sender messages split turns: %d vs %d", msgs[10].TurnID, msgs[11].TurnID)
	}
	if msgs[11].HasTurnGap {
		t.Error("mid-turn message must not carry a turn gap")
	}
	// m3 starts a turn after a 5h15m silence: over the cutoff, gap missing.
	if msgs[2].TurnID == msgs[1].TurnID {
		t.Error("sender change must start a new turn")
	}
	if msgs[2].HasTurnGap {
		t.Error("gap at or above the cutoff must be dropped, not zeroed")
	}
	// m7 replies within a minute.
	if !msgs[6].HasTurnGap || msgs[6].TurnGap != 60 {
		t.Errorf("reply gap = %v (has=%v), want 60", msgs[6].TurnGap, msgs[6].HasTurnGap)
	}
	if msgs[len(msgs)-1].TurnID != 11 {
		t.Errorf("final turn id = %d, want 11", msgs[len(msgs)-1].TurnID)
	}
}

func TestAggregateWhatsAppFixture(t *testing.T) {
	t.Parallel()

	msgs := parseFixture(t)
	stats := analysis.Aggregate(msgs, analysis.PlatformWhatsApp)

	if len(stats.Failures) != 0 {
		t.Fatalf("unexpected metric failures: %v", stats.Failures)
	}

	daily := stats.DailyYearMsg
	if daily == nil {
		t.Fatal("daily_year_msg missing")
	}
	wantValues := []int{2, 1, 0, 0, 0, 6, 0, 0, 2, 0, 3, 0, 2}
	if len(daily.Values) != len(wantValues) {
		t.Fatalf("daily values length = %d, want %d", len(daily.Values), len(wantValues))
	}
	for i, want := range wantValues {
		if daily.Values[i] != want {
			t.Errorf("daily values[%d] = %d, want %d", i, daily.Values[i], want)
		}
	}
	if daily.EndDate != 1654981200 {
		t.Errorf("end_date = %v, want 1654981200", daily.EndDate)
	}
	if math.Abs(daily.Average-16.0/13.0) > 1e-9 {
		t.Errorf("average = %v, want %v", daily.Average, 16.0/13.0)
	}

	if stats.TopDay != "05.06.2022" {
		t.Errorf("top_day = %q, want 05.06.2022", stats.TopDay)
	}
	if stats.TopWeekday != 6 {
		t.Errorf("top_weekday = %d, want 6 (Sunday)", stats.TopWeekday)
	}

	wantHourly := []float64{0.5, 0.25, 0.08, 0.08, 0.17, 0.08, 0.17}
	if len(stats.HourlyMessages) != len(wantHourly) {
		t.Fatalf("hourly_messages length = %d, want %d", len(stats.HourlyMessages), len(wantHourly))
	}
	for i, want := range wantHourly {
		if stats.HourlyMessages[i] != want {
			t.Errorf("hourly_messages[%d] = %v, want %v", i, stats.HourlyMessages[i], want)
		}
	}

	assertUserStat(t, "msg_per_user", stats.MsgPerUser, "User1", 9)
	assertUserStat(t, "msg_per_user", stats.MsgPerUser, "User2", 4)
	assertUserStat(t, "msg_per_user", stats.MsgPerUser, "User:)", 3)
	if stats.MsgPerUser[0].User != "User1" {
		t.Errorf("msg_per_user ranked first = %q, want User1", stats.MsgPerUser[0].User)
	}

	assertUserStat(t, "msg_per_day", stats.MsgPerDay, "User1", 0.8)
	assertUserStat(t, "msg_per_day", stats.MsgPerDay, "User2", 0.3)
	assertUserStat(t, "msg_per_day", stats.MsgPerDay, "User:)", 0.3)

	assertUserStat(t, "words_per_message", stats.WordsPerMessage, "User:)", 1.5)

	if stats.MediaTextShare == nil {
		t.Fatal("media_text_share missing")
	}
	if stats.MediaTextShare.Text != 81.25 || stats.MediaTextShare.Media != 18.75 {
		t.Errorf("media_text_share = %+v, want 81.25/18.75", stats.MediaTextShare)
	}

	assertUserStat(t, "response_time", stats.ResponseTime, "User1", 120)
	assertUserStat(t, "response_time", stats.ResponseTime, "User:)", 420)
	assertUserStat(t, "response_time", stats.ResponseTime, "User2", 1220)
	if stats.ResponseTime[0].User != "User1" {
		t.Errorf("quickest responder = %q, want User1", stats.ResponseTime[0].User)
	}

	if stats.ResponseTimeHour == nil {
		t.Fatal("response_time_hour missing")
	}
	if stats.ResponseTimeHour.Start != 1 || stats.ResponseTimeHour.End != 2 {
		t.Errorf("response_time_hour = %+v, want {1 2}", stats.ResponseTimeHour)
	}
}

func assertUserStat(t *testing.T, metric string, stats analysis.UserStats, user string, want float64) {
	t.Helper()
	got, ok := stats.Get(user)
	if !ok {
		t.Errorf("%s missing user %q", metric, user)
		return
	}
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s[%q] = %v, want %v", metric, user, got, want)
	}
}

func TestParseWhatsAppTooShort(t *testing.T) {
	t.Parallel()

	_, err := analysis.ParseWhatsApp([]byte("31/05/22, 23:40 - A: hi\n31/05/22, 23:41 - B: hey\n"), fixtureZone)
	var formatErr *analysis.FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("ParseWhatsApp() error = %v, want FormatError", err)
	}
}

func TestDetectDatetimeFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		candidates []string
		wantErr    bool
	}{
		{
			name:       "unambiguous day first",
			candidates: []string{"31/05/22, 23:40", "1/6/22, 05:00", "12/6/22, 03:05"},
			wantErr:    false,
		},
		{
			name:       "ambiguous low day and month",
			candidates: []string{"1/2/22, 10:00", "3/4/22, 11:00"},
			wantErr:    true,
		},
		{
			name:       "implausible year",
			candidates: []string{"31/05/99, 23:40", "01/06/99, 05:00"},
			wantErr:    true,
		},
		{
			name:       "garbage",
			candidates: []string{"yesterday, noonish"},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			layout, err := analysis.DetectDatetimeFormat(tt.candidates, fixtureZone)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("DetectDatetimeFormat() = %q, want error", layout)
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectDatetimeFormat() error = %v", err)
			}
			if layout != "2/1/06, 15:04" {
				t.Errorf("layout = %q, want 2/1/06, 15:04", layout)
			}
		})
	}
}

func TestWhatsAppContinuationLines(t *testing.T) {
	t.Parallel()

	transcript := strings.Join([]string{
		"31/05/22, 23:40 - A: first line",
		"second line",
		"31/05/22, 23:45 - B: hey",
		"31/05/22, 23:50 - A: ok",
	}, "\n")
	chat, err := analysis.ParseWhatsApp([]byte(transcript), fixtureZone)
	if err != nil {
		t.Fatalf("ParseWhatsApp() error = %v", err)
	}
	text, _ := chat.Messages[0].Text()
	if text != "first line\nsecond line" {
		t.Errorf("continuation text = %q", text)
	}
}
