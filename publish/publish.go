// Package publish turns a selection of photo matches into messaging API
// calls: captioned albums per year, chunked to the API's group size limit.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"memories-bot/memories"
	"memories-bot/telegram"
)

// Pause between consecutive media batches.
const betweenBatches = time.Second

// Messenger is the slice of the messaging client the publisher needs.
type Messenger interface {
	SendMessage(ctx context.Context, text string) error
	SendPhoto(ctx context.Context, url, caption string) error
	SendMediaGroup(ctx context.Context, items []telegram.Media, leadCaption string) error
}

type Publisher struct {
	messenger Messenger
	captions  *Captioner
	log       *slog.Logger
	sleep     func(time.Duration)
}

func New(m Messenger, c *Captioner, log *slog.Logger) *Publisher {
	return &Publisher{
		messenger: m,
		captions:  c,
		log:       log,
		sleep:     time.Sleep,
	}
}

// Publish sends the selection plan to the chat. An empty plan sends exactly
// one text notification and nothing else. A failed batch is logged and does
// not stop remaining batches; the error reports the overall outcome.
func (p *Publisher) Publish(ctx context.Context, day, month int, plan []memories.Match) error {
	dateStr := fmt.Sprintf("%d.%02d", day, month)

	if len(plan) == 0 {
		p.log.Info("nothing to publish", "date", dateStr)
		if err := p.messenger.SendMessage(ctx, p.captions.NothingFound(dateStr)); err != nil {
			return fmt.Errorf("send empty-result notification: %w", err)
		}
		return nil
	}

	batches := 0
	failed := 0
	for _, yearPlan := range splitByYear(plan) {
		year := yearPlan[0].Year
		caption := p.captions.Caption(fmt.Sprintf("%02d.%02d.%d", day, month, year), len(yearPlan), year)

		for i := 0; i < len(yearPlan); i += telegram.MaxGroupSize {
			if batches > 0 {
				p.sleep(betweenBatches)
			}
			batches++

			chunk := yearPlan[i:min(i+telegram.MaxGroupSize, len(yearPlan))]
			lead := ""
			if i == 0 {
				lead = caption
			}

			var err error
			if len(chunk) == 1 {
				err = p.messenger.SendPhoto(ctx, chunk[0].File, lead)
			} else {
				items := make([]telegram.Media, len(chunk))
				for j, m := range chunk {
					items[j] = telegram.Media{URL: m.File}
				}
				err = p.messenger.SendMediaGroup(ctx, items, lead)
			}
			if err != nil {
				failed++
				p.log.Error("batch failed", "year", year, "err", err)
				continue
			}
			p.log.Info("batch sent", "year", year, "photos", len(chunk))
		}
	}

	if failed > 0 {
		return fmt.Errorf("publish: %d of %d batches failed", failed, batches)
	}
	return nil
}

// splitByYear cuts the plan into consecutive same-year runs, preserving the
// plan's order.
func splitByYear(plan []memories.Match) [][]memories.Match {
	var out [][]memories.Match
	start := 0
	for i := 1; i <= len(plan); i++ {
		if i == len(plan) || plan[i].Year != plan[start].Year {
			out = append(out, plan[start:i])
			start = i
		}
	}
	return out
}
