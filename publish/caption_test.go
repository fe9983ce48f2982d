package publish

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func captionerAt(year int) *Captioner {
	now := func() time.Time { return time.Date(year, time.June, 15, 12, 0, 0, 0, time.UTC) }
	return NewCaptioner(now, rand.New(rand.NewSource(1)))
}

func TestCaptionHeaderAndCount(t *testing.T) {
	c := captionerAt(2026)

	got := c.Caption("15.06.2019", 3, 2019)
	assert.True(t, strings.HasPrefix(got, "📅 <b>15.06.2019</b>\n"), got)
	assert.Contains(t, got, "🖼 3 фотографий")

	got = c.Caption("15.06.2019", 1, 2019)
	assert.NotContains(t, got, "🖼", "no count line for a single photo")
}

func TestCaptionYearsAgoWording(t *testing.T) {
	c := captionerAt(2026)

	assert.Contains(t, c.Caption("15.06.2026", 1, 2026), "📸 Сегодня!")
	assert.Contains(t, c.Caption("15.06.2025", 1, 2025), "🕐 Год назад")
	assert.Contains(t, c.Caption("15.06.2023", 1, 2023), "🕑 3 года назад")
	assert.Contains(t, c.Caption("15.06.2019", 1, 2019), "🕔 7 лет назад")
	assert.Contains(t, c.Caption("15.06.2010", 1, 2010), "⏳ 16 лет назад")
}

func TestCaptionEscapesDate(t *testing.T) {
	c := captionerAt(2026)
	got := c.Caption("<script>", 1, 2020)
	assert.NotContains(t, got, "<script>")
	assert.Contains(t, got, "&lt;script&gt;")
}

func TestClosingPhraseDeterministicWithSeed(t *testing.T) {
	a := captionerAt(2026).Caption("15.06.2019", 1, 2019)
	b := captionerAt(2026).Caption("15.06.2019", 1, 2019)
	assert.Equal(t, a, b)
}

func TestClosingPhraseUsesNameWhenSet(t *testing.T) {
	sawName := false
	for seed := int64(0); seed < 16 && !sawName; seed++ {
		c := NewCaptioner(
			func() time.Time { return time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC) },
			rand.New(rand.NewSource(seed)),
		)
		c.Name = "Маша"
		if strings.Contains(c.Caption("15.06.2019", 1, 2019), "Маша") {
			sawName = true
		}
	}
	assert.True(t, sawName, "the name should show up in some seed's phrasing")
}

func TestNothingFoundMentionsDate(t *testing.T) {
	c := captionerAt(2026)
	got := c.NothingFound("15.06")
	assert.Contains(t, got, "15.06")
	assert.Contains(t, got, "не найдено")
}
