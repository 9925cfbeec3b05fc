// Package digest periodically posts a per-category summary of recent
// classifications to Slack.
package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/emariqueo1/clasificador-salcobrand/internal/domain"
)

type Counter interface {
	CountByCategory(ctx context.Context, since time.Time) ([]domain.CategoryCount, error)
}

type Poster interface {
	PostText(ctx context.Context, text string) error
}

// ParseSchedule accepts a standard 5-field cron expression
// (minute hour day-of-month month day-of-week), e.g. "0 18 * * 1-5".
func ParseSchedule(schedule string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(strings.TrimSpace(schedule))
}

func FormatDigest(counts []domain.CategoryCount, since, now time.Time) string {
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	header := fmt.Sprintf("Resumen de clasificaciones %s - %s: %d productos",
		since.Format("2006-01-02 15:04"), now.Format("2006-01-02 15:04"), total)
	if total == 0 {
		return header + "."
	}

	var b strings.Builder
	b.WriteString(header)
	for _, c := range counts {
		fmt.Fprintf(&b, "\n- %s (%s): %d", c.CategoryCode, c.CategoryCode.Label(), c.Count)
	}
	return b.String()
}

// RunOnce posts the digest for classifications made since `since`.
func RunOnce(ctx context.Context, counter Counter, poster Poster, since, now time.Time) error {
	counts, err := counter.CountByCategory(ctx, since)
	if err != nil {
		return fmt.Errorf("counting classifications: %w", err)
	}
	msg := FormatDigest(counts, since, now)
	if err := poster.PostText(ctx, msg); err != nil {
		return err
	}
	log.Printf("digest posted since=%s categories=%d", since.Format(time.RFC3339), len(counts))
	return nil
}

// Start runs the digest on schedule until ctx is cancelled. Each digest
// covers the time since the previous run. An empty schedule disables it.
func Start(ctx context.Context, schedule string, loc *time.Location, counter Counter, poster Poster) error {
	if strings.TrimSpace(schedule) == "" {
		log.Println("Digest disabled (digest_schedule not set)")
		return nil
	}
	sched, err := ParseSchedule(schedule)
	if err != nil {
		return fmt.Errorf("invalid digest_schedule '%s': %w", schedule, err)
	}
	if loc == nil {
		loc = time.Local
	}
	log.Printf("Digest scheduled (cron: %s)", schedule)

	go func() {
		last := time.Now().In(loc)
		for {
			now := time.Now().In(loc)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next digest at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			runAt := time.Now().In(loc)
			if err := RunOnce(ctx, counter, poster, last, runAt); err != nil {
				log.Printf("Digest error: %v", err)
			}
			last = runAt
		}
	}()
	return nil
}
