package publish

import (
	"fmt"
	"html"
	"math/rand"
	"strings"
	"time"
)

// Closing phrases appended to captions. Phrases with %s get the configured
// name substituted in.
var plainPhrases = []string{
	"Помните этот день?",
	"Какие воспоминания!",
	"А кажется, это было вчера...",
	"Хороший был день!",
}

var namedPhrases = []string{
	"%s, помнишь этот день?",
	"%s, узнаёшь?",
}

// Captioner builds photo captions. The clock and the random source are
// injected so tests are deterministic.
type Captioner struct {
	// Name, when set, lets the captioner address someone directly.
	Name string

	now func() time.Time
	rng *rand.Rand
}

func NewCaptioner(now func() time.Time, rng *rand.Rand) *Captioner {
	return &Captioner{now: now, rng: rng}
}

// Caption formats the lead caption for one year's batch: the date, the
// photo count, how long ago it was, and a randomized closing phrase.
func (c *Captioner) Caption(dateStr string, count, year int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 <b>%s</b>\n", html.EscapeString(dateStr))
	if count > 1 {
		fmt.Fprintf(&b, "🖼 %d фотографий\n", count)
	}

	yearsAgo := c.now().Year() - year
	switch {
	case yearsAgo <= 0:
		b.WriteString("\n📸 Сегодня!")
	case yearsAgo == 1:
		b.WriteString("\n🕐 Год назад")
	case yearsAgo < 5:
		fmt.Fprintf(&b, "\n🕑 %d года назад", yearsAgo)
	case yearsAgo < 10:
		fmt.Fprintf(&b, "\n🕔 %d лет назад", yearsAgo)
	default:
		fmt.Fprintf(&b, "\n⏳ %d лет назад", yearsAgo)
	}

	b.WriteString("\n\n")
	b.WriteString(c.closingPhrase())
	return b.String()
}

// NothingFound is the message sent when the archive holds no photos for the
// queried date.
func (c *Captioner) NothingFound(dateStr string) string {
	return fmt.Sprintf("📅 %s\n\nК сожалению, на эту дату фотографий в архиве не найдено 😔", dateStr)
}

func (c *Captioner) closingPhrase() string {
	if c.Name != "" && c.rng.Intn(2) == 0 {
		return fmt.Sprintf(namedPhrases[c.rng.Intn(len(namedPhrases))], html.EscapeString(c.Name))
	}
	return plainPhrases[c.rng.Intn(len(plainPhrases))]
}
