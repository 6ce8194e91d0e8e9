package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

const (
	dailySeriesDays = 365
	topUserCount    = 5
	trimPercent     = 0.05
)

var errNoMessages = errors.New("no messages to aggregate")

// UserStat is one sender's value in a ranked per-user statistic.
type UserStat struct {
	User  string
	Value float64
}

// UserStats is an ordered per-user mapping. Order is significant (rankings
// are part of the result), so it serializes as a JSON object with keys in
// slice order.
type UserStats []UserStat

// Get returns the value recorded for user.
func (s UserStats) Get(user string) (float64, bool) {
	for _, us := range s {
		if us.User == user {
			return us.Value, true
		}
	}
	return 0, false
}

func (s UserStats) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, us := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(us.User)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(us.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *UserStats) UnmarshalJSON(data []byte) error {
	m := map[string]float64{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*s = (*s)[:0]
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		*s = append(*s, UserStat{User: k, Value: m[k]})
	}
	return nil
}

// DailySeries is the data behind the daily message volume chart: the last
// year of daily counts, the last bucket's date as a Unix timestamp, and the
// average over the entire daily series.
type DailySeries struct {
	Values  []int   `json:"values"`
	EndDate float64 `json:"end_date"`
	Average float64 `json:"average"`
}

// MediaShare is the percentage split between text and media messages.
type MediaShare struct {
	Text  float64 `json:"text"`
	Media float64 `json:"media"`
}

// HourBand is a contiguous range of hours; End is exclusive.
type HourBand struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Stats holds the ten named statistics. Metrics are independent: a failure
// computing one is recorded in Failures and leaves its field zero without
// touching the rest.
type Stats struct {
	DailyYearMsg     *DailySeries `json:"daily_year_msg"`
	TopDay           string       `json:"top_day"`
	TopWeekday       int          `json:"top_weekday"`
	HourlyMessages   []float64    `json:"hourly_messages"`
	MsgPerUser       UserStats    `json:"msg_per_user"`
	MsgPerDay        UserStats    `json:"msg_per_day"`
	WordsPerMessage  UserStats    `json:"words_per_message"`
	MediaTextShare   *MediaShare  `json:"media_text_share"`
	ResponseTime     UserStats    `json:"response_time"`
	ResponseTimeHour *HourBand    `json:"response_time_hour"`

	Failures map[string]string `json:"-"`
}

// Aggregate computes the statistics battery over a canonical sequence. It
// is pure and deterministic: re-running it on the same sequence yields the
// same result.
func Aggregate(msgs []CanonicalMessage, platform Platform) *Stats {
	stats := &Stats{Failures: map[string]string{}}

	turns := uniqueTurns(msgs)
	wordSubset := wordStatSubset(msgs, platform)

	stats.compute("daily_year_msg", func() error {
		series, err := dailyMessageSeries(msgs, dailySeriesDays)
		if err != nil {
			return err
		}
		stats.DailyYearMsg = series
		return nil
	})
	stats.compute("top_day", func() error {
		day, err := topDay(turns)
		if err != nil {
			return err
		}
		stats.TopDay = day
		return nil
	})
	stats.compute("top_weekday", func() error {
		wd, err := topWeekday(turns)
		if err != nil {
			return err
		}
		stats.TopWeekday = wd
		return nil
	})
	stats.compute("hourly_messages", func() error {
		hourly, err := hourlyMessages(msgs)
		if err != nil {
			return err
		}
		stats.HourlyMessages = hourly
		return nil
	})
	stats.compute("msg_per_user", func() error {
		per, err := messagesPerUser(msgs)
		if err != nil {
			return err
		}
		stats.MsgPerUser = per
		return nil
	})
	stats.compute("msg_per_day", func() error {
		per, err := messagesPerDay(msgs)
		if err != nil {
			return err
		}
		stats.MsgPerDay = per
		return nil
	})
	stats.compute("words_per_message", func() error {
		per, err := wordsPerMessage(wordSubset)
		if err != nil {
			return err
		}
		stats.WordsPerMessage = per
		return nil
	})
	stats.compute("media_text_share", func() error {
		share, err := mediaTextShare(msgs)
		if err != nil {
			return err
		}
		stats.MediaTextShare = share
		return nil
	})
	stats.compute("response_time", func() error {
		per, err := responseTime(msgs)
		if err != nil {
			return err
		}
		stats.ResponseTime = per
		return nil
	})
	stats.compute("response_time_hour", func() error {
		band, err := responseTimeHours(msgs)
		if err != nil {
			return err
		}
		stats.ResponseTimeHour = band
		return nil
	})

	return stats
}

func (s *Stats) compute(metric string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.Failures[metric] = fmt.Sprintf("unexpected fault: %v", r)
		}
	}()
	if err := fn(); err != nil {
		s.Failures[metric] = err.Error()
	}
}

// uniqueTurns keeps one representative per turn: its first message.
func uniqueTurns(msgs []CanonicalMessage) []CanonicalMessage {
	turns := make([]CanonicalMessage, 0, len(msgs))
	lastTurn := -1
	for _, m := range msgs {
		if m.TurnID != lastTurn {
			turns = append(turns, m)
			lastTurn = m.TurnID
		}
	}
	return turns
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// dayIndex counts calendar days between two midnights, robust to DST
// shifts making a day 23 or 25 hours long.
func dayIndex(first, day time.Time) int {
	return int(math.Round(day.Sub(first).Hours() / 24))
}

// dailyCounts resamples messages into one bucket per calendar day from the
// first message's day through the last message's day inclusive.
func dailyCounts(msgs []CanonicalMessage) (counts []int, firstDay time.Time) {
	firstDay = dayOf(msgs[0].Timestamp)
	lastDay := dayOf(msgs[len(msgs)-1].Timestamp)
	counts = make([]int, dayIndex(firstDay, lastDay)+1)
	for _, m := range msgs {
		counts[dayIndex(firstDay, dayOf(m.Timestamp))]++
	}
	return counts, firstDay
}

func dailyMessageSeries(msgs []CanonicalMessage, days int) (*DailySeries, error) {
	if len(msgs) == 0 {
		return nil, errNoMessages
	}
	counts, _ := dailyCounts(msgs)

	total := 0
	for _, c := range counts {
		total += c
	}
	values := counts
	if len(values) > days {
		values = values[len(values)-days:]
	}
	return &DailySeries{
		Values:  values,
		EndDate: float64(dayOf(msgs[len(msgs)-1].Timestamp).Unix()),
		Average: float64(total) / float64(len(counts)),
	}, nil
}

func topDay(turns []CanonicalMessage) (string, error) {
	if len(turns) == 0 {
		return "", errNoMessages
	}
	counts := map[time.Time]int{}
	var order []time.Time
	for _, m := range turns {
		day := dayOf(m.Timestamp)
		if _, seen := counts[day]; !seen {
			order = append(order, day)
		}
		counts[day]++
	}
	best := order[0]
	for _, day := range order[1:] {
		if counts[day] > counts[best] {
			best = day
		}
	}
	return best.Format("02.01.2006"), nil
}

func topWeekday(turns []CanonicalMessage) (int, error) {
	if len(turns) == 0 {
		return 0, errNoMessages
	}
	counts := [7]int{}
	var order []int
	seen := [7]bool{}
	for _, m := range turns {
		if !seen[m.Weekday] {
			seen[m.Weekday] = true
			order = append(order, m.Weekday)
		}
		counts[m.Weekday]++
	}
	best := order[0]
	for _, wd := range order[1:] {
		if counts[wd] > counts[best] {
			best = wd
		}
	}
	return best, nil
}

// daysDuration is the chat's span in days measured on raw timestamps, not
// calendar days: the floored day difference plus one.
func daysDuration(msgs []CanonicalMessage) int {
	span := msgs[len(msgs)-1].Timestamp.Sub(msgs[0].Timestamp)
	return int(span.Hours()/24) + 1
}

// hourlyMessages averages message volume per hour of day over the chat's
// duration, one value per hour actually present, ascending by hour.
func hourlyMessages(msgs []CanonicalMessage) ([]float64, error) {
	if len(msgs) == 0 {
		return nil, errNoMessages
	}
	days := daysDuration(msgs)
	counts := [24]int{}
	for _, m := range msgs {
		counts[m.Hour]++
	}
	var out []float64
	for hour := 0; hour < 24; hour++ {
		if counts[hour] > 0 {
			out = append(out, round2(float64(counts[hour])/float64(days)))
		}
	}
	return out, nil
}

// senderOrder lists distinct senders in first-appearance order; ranking
// ties resolve in this order, which is timestamp-stable.
func senderOrder(msgs []CanonicalMessage) []string {
	var order []string
	seen := map[string]bool{}
	for _, m := range msgs {
		if !seen[m.Sender] {
			seen[m.Sender] = true
			order = append(order, m.Sender)
		}
	}
	return order
}

func rankDescending(stats UserStats) {
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Value > stats[j].Value })
}

func messagesPerUser(msgs []CanonicalMessage) (UserStats, error) {
	if len(msgs) == 0 {
		return nil, errNoMessages
	}
	counts := map[string]int{}
	for _, m := range msgs {
		counts[m.Sender]++
	}
	stats := make(UserStats, 0, len(counts))
	for _, sender := range senderOrder(msgs) {
		stats = append(stats, UserStat{User: sender, Value: float64(counts[sender])})
	}
	rankDescending(stats)

	if len(stats) > topUserCount {
		kept := stats[:topUserCount-1]
		others := 0.0
		for _, us := range stats[topUserCount-1:] {
			others += us.Value
		}
		stats = append(kept, UserStat{User: "others", Value: others})
	}
	return stats, nil
}

func messagesPerDay(msgs []CanonicalMessage) (UserStats, error) {
	if len(msgs) == 0 {
		return nil, errNoMessages
	}
	perSender := map[string][]CanonicalMessage{}
	for _, m := range msgs {
		perSender[m.Sender] = append(perSender[m.Sender], m)
	}

	stats := make(UserStats, 0, len(perSender))
	for _, sender := range senderOrder(msgs) {
		counts, _ := dailyCounts(perSender[sender])
		sort.Ints(counts)
		trim := int(float64(len(counts)) * trimPercent)
		trimmed := counts
		if trim > 0 && len(counts) > 2*trim {
			trimmed = counts[trim : len(counts)-trim]
		}
		stats = append(stats, UserStat{User: sender, Value: round1(meanInts(trimmed))})
	}
	rankDescending(stats)
	if len(stats) > topUserCount {
		stats = stats[:topUserCount]
	}
	return stats, nil
}

// wordsPerMessage averages word counts per sender over text-only messages
// of the word-statistics subset. Senders with no eligible messages score 0.
func wordsPerMessage(subset []CanonicalMessage) (UserStats, error) {
	if len(subset) == 0 {
		return nil, errNoMessages
	}
	words := map[string]int{}
	eligible := map[string]int{}
	for _, m := range subset {
		if m.MediaType != MediaNone {
			continue
		}
		words[m.Sender] += m.WordCount
		eligible[m.Sender]++
	}
	stats := make(UserStats, 0, len(words))
	for _, sender := range senderOrder(subset) {
		value := 0.0
		if eligible[sender] > 0 {
			value = round2(float64(words[sender]) / float64(eligible[sender]))
		}
		stats = append(stats, UserStat{User: sender, Value: value})
	}
	rankDescending(stats)
	if len(stats) > topUserCount {
		stats = stats[:topUserCount]
	}
	return stats, nil
}

func mediaTextShare(msgs []CanonicalMessage) (*MediaShare, error) {
	if len(msgs) == 0 {
		return nil, errNoMessages
	}
	textCount := 0
	for _, m := range msgs {
		if m.MediaType == MediaNone {
			textCount++
		}
	}
	text := round2(100 * float64(textCount) / float64(len(msgs)))
	return &MediaShare{Text: text, Media: round2(100 - text)}, nil
}

func responseTime(msgs []CanonicalMessage) (UserStats, error) {
	if len(msgs) == 0 {
		return nil, errNoMessages
	}
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, m := range msgs {
		if m.HasTurnGap {
			sums[m.Sender] += m.TurnGap
			counts[m.Sender]++
		}
	}
	if len(counts) == 0 {
		return nil, errors.New("no turn gaps under the cutoff")
	}
	stats := make(UserStats, 0, len(counts))
	for _, sender := range senderOrder(msgs) {
		if counts[sender] > 0 {
			stats = append(stats, UserStat{User: sender, Value: sums[sender] / float64(counts[sender])})
		}
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Value < stats[j].Value })
	if len(stats) > topUserCount {
		stats = stats[:topUserCount]
	}
	return stats, nil
}

// responseTimeHours finds the band of hours with the quickest replies:
// hours sorted by mean turn gap ascending seed a band grown greedily while
// the next hour is adjacent (midnight wraps) to one already in it, capped
// at five hours.
func responseTimeHours(msgs []CanonicalMessage) (*HourBand, error) {
	sums := [24]float64{}
	counts := [24]int{}
	for _, m := range msgs {
		if m.HasTurnGap {
			sums[m.Hour] += m.TurnGap
			counts[m.Hour]++
		}
	}

	type hourMean struct {
		hour int
		mean float64
	}
	var means []hourMean
	for hour := 0; hour < 24; hour++ {
		if counts[hour] > 0 {
			means = append(means, hourMean{hour, sums[hour] / float64(counts[hour])})
		}
	}
	if len(means) == 0 {
		return nil, errors.New("no turn gaps under the cutoff")
	}
	sort.SliceStable(means, func(i, j int) bool { return means[i].mean < means[j].mean })

	var band []int
	for _, hm := range means {
		if len(band) == 0 {
			band = append(band, hm.hour)
			continue
		}
		joined := false
		for _, member := range band {
			if adjacentHours(member, hm.hour) {
				band = append(band, hm.hour)
				joined = true
				break
			}
		}
		if !joined {
			break
		}
	}
	if len(band) > 5 {
		band = band[:5]
	}
	sort.Ints(band)

	// A band holding both 0 and 23 wraps midnight; evening hours go first
	// so the range reads e.g. 23..1 rather than 0..24.
	if containsInt(band, 0) && containsInt(band, 23) {
		var evening, morning []int
		for _, h := range band {
			if h >= 12 {
				evening = append(evening, h)
			} else {
				morning = append(morning, h)
			}
		}
		band = append(evening, morning...)
	}

	return &HourBand{Start: band[0], End: band[len(band)-1] + 1}, nil
}

func adjacentHours(a, b int) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff == 1 || diff == 23
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func meanInts(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0
	for _, v := range values {
		total += v
	}
	return float64(total) / float64(len(values))
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }

func round2(x float64) float64 { return math.Round(x*100) / 100 }
