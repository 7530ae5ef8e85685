package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rsd-team/rsd-service/internal/config"
	"github.com/rsd-team/rsd-service/pkg/logger/sl"
)

const jobTimeout = 5 * time.Minute

// Scheduler registers the configured collect/publish schedules on a single
// cron runner. Configured days use ISO weekday numbering (0=Monday) and are
// translated to cron's 0=Sunday numbering.
type Scheduler struct {
	log      *slog.Logger
	notifier *Notifier
	channels config.ChannelSet
	cron     *cron.Cron
}

func NewScheduler(log *slog.Logger, notifier *Notifier, channels config.ChannelSet) *Scheduler {
	return &Scheduler{
		log:      log,
		notifier: notifier,
		channels: channels,
		cron:     cron.New(),
	}
}

// Start registers every schedule entry and starts the runner. It returns
// the number of cron entries registered.
func (s *Scheduler) Start() int {
	const op = "internal.notify.Scheduler.Start"

	log := s.log.With(slog.String("op", op))
	jobs := 0

	for projectSlug, channels := range s.channels {
		for _, channel := range channels {
			if !channel.Enabled || channel.WebhookURL == "" {
				continue
			}

			if channel.Collect != nil {
				jobs += s.register(log, channel.Collect.Schedules, s.collectJob(projectSlug, channel))
			}
			if channel.Publish != nil {
				jobs += s.register(log, channel.Publish.Schedules, s.publishJob(projectSlug, channel))
			}
		}
	}

	s.cron.Start()
	log.Info("notification scheduler started", slog.Int("jobs", jobs))

	return jobs
}

// Stop stops the runner and waits for any in-flight job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) register(log *slog.Logger, schedules []config.Schedule, job func()) int {
	jobs := 0

	for _, schedule := range schedules {
		for _, day := range schedule.Days {
			for _, clock := range schedule.Times {
				spec, err := cronSpec(day, clock)
				if err != nil {
					log.Warn("skipping invalid schedule entry",
						slog.Int("day", day),
						slog.String("time", clock),
						sl.Err(err),
					)
					continue
				}

				if _, err := s.cron.AddFunc(spec, job); err != nil {
					log.Warn("failed to register schedule", slog.String("spec", spec), sl.Err(err))
					continue
				}

				jobs++
			}
		}
	}

	return jobs
}

func (s *Scheduler) collectJob(projectSlug string, channel config.Channel) func() {
	overrides := MessageOverrides{}
	if channel.Collect != nil {
		overrides = MessageOverrides{Title: channel.Collect.Title, Text: channel.Collect.Text}
	}

	teamSlug := channel.TeamSlug
	webhookURL := channel.WebhookURL

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if err := s.notifier.SendCollect(ctx, projectSlug, teamSlug, "", webhookURL, overrides); err != nil {
			s.notifier.logSendError("collect", err)
		}
	}
}

func (s *Scheduler) publishJob(projectSlug string, channel config.Channel) func() {
	overrides := MessageOverrides{}
	if channel.Publish != nil {
		overrides = MessageOverrides{Title: channel.Publish.Title, Text: channel.Publish.Text}
	}

	teamSlug := channel.TeamSlug
	webhookURL := channel.WebhookURL

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if err := s.notifier.SendPublish(ctx, projectSlug, teamSlug, "", webhookURL, overrides); err != nil {
			s.notifier.logSendError("publish", err)
		}
	}
}

// cronSpec builds a "minute hour * * weekday" spec from an ISO weekday
// (0=Monday) and an "HH:MM" wall-clock time.
func cronSpec(isoDay int, clock string) (string, error) {
	if isoDay < 0 || isoDay > 6 {
		return "", fmt.Errorf("weekday %d out of range", isoDay)
	}

	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("time %q is not HH:MM", clock)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("time %q has an invalid hour", clock)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("time %q has an invalid minute", clock)
	}

	cronDay := (isoDay + 1) % 7

	return fmt.Sprintf("%d %d * * %d", minute, hour, cronDay), nil
}
