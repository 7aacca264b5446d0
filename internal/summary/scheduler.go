package summary

import (
	"context"
	"time"

	"go.uber.org/zap"

	"voxnote/internal/settings"
)

// defaultPoll is how often the scheduler checks whether a digest is due.
const defaultPoll = 30 * time.Second

// Sender delivers digest text to a chat.
type Sender interface {
	Send(chatID int64, text string) error
}

var weekdayNames = map[string]time.Weekday{
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
	"sun": time.Sunday,
}

// Scheduler polls the settings store and sends daily and weekly digests at
// the configured local times. A last-sent marker per cadence keeps a digest
// from going out twice in one day.
type Scheduler struct {
	store   *settings.Store
	builder *Builder
	sender  Sender
	log     *zap.Logger
	now     func() time.Time
	poll    time.Duration
}

func NewScheduler(store *settings.Store, builder *Builder, sender Sender, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		store:   store,
		builder: builder,
		sender:  sender,
		log:     log,
		now:     time.Now,
		poll:    defaultPoll,
	}
}

// Run polls until ctx is cancelled. Errors inside a tick are logged, never
// fatal; the loop keeps going.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.log.Error("scheduler tick failed", zap.Error(err))
			}
		}
	}
}

// Tick runs one scheduling check.
func (s *Scheduler) Tick(ctx context.Context) error {
	cfg, err := s.store.Load()
	if err != nil {
		return err
	}
	if cfg.SummaryChatID == 0 {
		return nil
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		s.log.Warn("bad timezone, using UTC", zap.String("timezone", cfg.Timezone))
		loc = time.UTC
	}
	now := s.now().In(loc)
	clock := now.Format("15:04")
	today := now.Format("2006-01-02")

	if cfg.DailyEnabled && clock == cfg.DailyTime && cfg.LastDailySent != today {
		text, count, err := s.builder.Daily(ctx, now)
		if err != nil {
			return err
		}
		if err := s.sender.Send(cfg.SummaryChatID, text); err != nil {
			return err
		}
		s.log.Info("daily digest sent", zap.Int("entries", count))
		if _, err := s.store.Update(func(v *settings.Settings) { v.LastDailySent = today }); err != nil {
			return err
		}
	}

	if cfg.WeeklyEnabled && clock == cfg.WeeklyTime && cfg.LastWeeklySent != today {
		if day, ok := weekdayNames[cfg.WeeklyDay]; ok && now.Weekday() == day {
			text, count, err := s.builder.Weekly(ctx, now)
			if err != nil {
				return err
			}
			if err := s.sender.Send(cfg.SummaryChatID, text); err != nil {
				return err
			}
			s.log.Info("weekly digest sent", zap.Int("entries", count))
			if _, err := s.store.Update(func(v *settings.Settings) { v.LastWeeklySent = today }); err != nil {
				return err
			}
		}
	}
	return nil
}
