package invitation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wedding-os/client/internal/metrics"
	"github.com/wedding-os/client/pkg/eventbus"
)

// DefaultPollInterval is the status polling period for 3-D jobs.
const DefaultPollInterval = 5 * time.Second

// JobUpdate is published whenever a polled job changes status.
type JobUpdate struct {
	Key               string
	Status            JobStatus
	RawStatus         string
	InvitationID      string
	Result2DImageURLs []string
	Message           string
	At                time.Time
}

// ClassifyStatus maps a server job status onto DONE, FAILED or RUNNING.
func ClassifyStatus(raw string) JobStatus {
	v := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case v == "COMPLETED":
		return JobDone
	case strings.Contains(v, "FAILED"), strings.Contains(v, "ERROR"):
		return JobFailed
	default:
		return JobRunning
	}
}

// Poller checks 3-D job status until the job finishes. The server exposes
// no push channel for job progress so polling is the only mechanism.
type Poller struct {
	logger   *zap.Logger
	service  *Service
	interval time.Duration
	events   *eventbus.Bus[JobUpdate]

	stopOnce sync.Once
	stopCh   chan struct{}

	active sync.Map // key → context.CancelFunc
	wg     sync.WaitGroup
}

// NewPoller constructs a Poller. A non-positive interval means DefaultPollInterval.
func NewPoller(logger *zap.Logger, service *Service, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		logger:   logger,
		service:  service,
		interval: interval,
		events:   eventbus.New[JobUpdate](),
		stopCh:   make(chan struct{}),
	}
}

// Events returns the bus status changes are published on.
func (p *Poller) Events() *eventbus.Bus[JobUpdate] { return p.events }

// Stop cancels every running poll and waits for them to exit.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}

// Start polls in the background under key. It returns false if a poll for
// key is already running.
func (p *Poller) Start(parent context.Context, key string, draft *Draft) bool {
	ctx, cancel := context.WithCancel(parent)
	if _, loaded := p.active.LoadOrStore(key, cancel); loaded {
		cancel()
		p.logger.Debug("invitation.threed_poll_already_active", zap.String("key", key))
		return false
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			p.active.Delete(key)
			cancel()
		}()
		p.run(ctx, key, draft)
	}()
	return true
}

// Cancel stops the poll running under key, if any.
func (p *Poller) Cancel(key string) {
	if v, ok := p.active.Load(key); ok {
		v.(context.CancelFunc)()
	}
}

// Poll blocks until the job reaches a terminal status and returns it.
func (p *Poller) Poll(ctx context.Context, key string, draft *Draft) JobStatus {
	return p.run(ctx, key, draft)
}

func (p *Poller) run(ctx context.Context, key string, draft *Draft) JobStatus {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	last := draft.ThreeD().Status

	for {
		select {
		case <-ctx.Done():
			p.finish(key, draft, JobCanceled, "context_done")
			return JobCanceled

		case <-p.stopCh:
			p.finish(key, draft, JobCanceled, "poller_shutdown")
			return JobCanceled

		case <-ticker.C:
			st, err := p.service.ThreeDStatus(ctx, p.interval)
			if err != nil {
				if errors.Is(err, ErrCancelled) {
					// Per-poll timeout; the outer select catches real cancellation.
					continue
				}
				p.logger.Warn("invitation.threed_poll_error", zap.String("key", key), zap.Error(err))
				continue
			}

			status := ClassifyStatus(st.Status)
			apply(draft, status, st)

			if status != last {
				last = status
				p.publish(key, status, st)
			}
			if status.Terminal() {
				p.logger.Info("invitation.threed_poll_complete",
					zap.String("key", key),
					zap.String("status", string(status)))
				return status
			}
		}
	}
}

// apply folds one status response into the draft.
func apply(draft *Draft, status JobStatus, st StatusResponse) {
	draft.Update(func(v *DraftData) {
		td := &v.ThreeD
		td.Status = status
		switch status {
		case JobDone:
			model := ""
			if len(st.Result2DImageURLs) > 0 {
				model = st.Result2DImageURLs[0]
			} else if s, ok := st.Assets["model3dUrl"].(string); ok {
				model = s
			}
			prev := td.Assets
			if st.Assets != nil {
				prev = nil
			}
			td.InvitationID = string(st.InvitationID)
			td.Assets = mergeAssets(prev, st.Assets, model)
			td.Result2DImageURLs = append([]string(nil), st.Result2DImageURLs...)
			td.Message = st.Message
			td.Error = ""
		case JobFailed:
			td.InvitationID = string(st.InvitationID)
			td.Assets = st.Assets
			td.Message = st.Message
			td.Error = st.Message
			if td.Error == "" {
				td.Error = "generation failed"
			}
		default:
			if st.InvitationID != "" {
				td.InvitationID = string(st.InvitationID)
			}
			if st.Assets != nil {
				td.Assets = st.Assets
			}
			if st.Message != "" {
				td.Message = st.Message
			}
			td.Error = ""
		}
	})
}

func (p *Poller) publish(key string, status JobStatus, st StatusResponse) {
	metrics.ThreeDJobTransitions.WithLabelValues(string(status)).Inc()
	p.logger.Info("invitation.threed_status_changed",
		zap.String("key", key),
		zap.String("raw_status", st.Status),
		zap.String("status", string(status)))
	p.events.PublishSync(JobUpdate{
		Key:               key,
		Status:            status,
		RawStatus:         st.Status,
		InvitationID:      string(st.InvitationID),
		Result2DImageURLs: append([]string(nil), st.Result2DImageURLs...),
		Message:           st.Message,
		At:                time.Now().UTC(),
	})
}

func (p *Poller) finish(key string, draft *Draft, status JobStatus, reason string) {
	changed := false
	draft.Update(func(v *DraftData) {
		if !v.ThreeD.Status.Terminal() {
			v.ThreeD.Status = status
			changed = true
		}
	})
	p.logger.Info("invitation.threed_poll_stopped", zap.String("key", key), zap.String("reason", reason))
	if changed {
		p.publish(key, status, StatusResponse{})
	}
}
