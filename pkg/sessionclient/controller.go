package sessionclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lshigami/codescreen/internal/dto"
	"github.com/rs/zerolog/log"
)

// ErrSessionClosed is returned for answers given after the session completed.
var ErrSessionClosed = errors.New("session is closed")

type SaveState int

const (
	SaveStateSaving SaveState = iota
	SaveStateSaved
	SaveStateFailed
)

// Config tunes a Controller. Zero values fall back to the defaults.
type Config struct {
	FlushInterval        time.Duration // fallback re-send of unsynced answers, default 20s
	TickInterval         time.Duration // countdown resolution, default 1s
	MaxVisibilityChanges int           // hidden transitions before forced submit, default 5
	RetryInitial         time.Duration // first backoff delay, default 500ms
	RetryMaxElapsed      time.Duration // give up a single save after this long, default 30s
	Now                  func() time.Time
}

func (c *Config) withDefaults() {
	if c.FlushInterval <= 0 {
		c.FlushInterval = 20 * time.Second
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.MaxVisibilityChanges <= 0 {
		c.MaxVisibilityChanges = 5
	}
	if c.RetryInitial <= 0 {
		c.RetryInitial = 500 * time.Millisecond
	}
	if c.RetryMaxElapsed <= 0 {
		c.RetryMaxElapsed = 30 * time.Second
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Hooks lets the embedding UI react to controller state. Any of them may be nil.
// Hooks run on controller goroutines and must not block.
type Hooks struct {
	// OnRequestFullscreen asks the shell to enter fullscreen. Begin calls it when
	// the shell has not reported fullscreen yet.
	OnRequestFullscreen func()

	OnTick      func(remaining time.Duration)
	OnWarning   func(count, remaining int)
	OnBlocked   func(blocked bool)
	OnSaveState func(questionID uint, state SaveState)
	OnSubmitted func(result *dto.SubmitResultDTO, autoSubmitted bool)
}

// Controller drives one candidate session from the client side.
type Controller struct {
	api    *API
	buffer *Buffer
	cfg    Config
	hooks  Hooks

	mu              sync.Mutex
	current         int
	answered        map[uint]bool
	saving          map[uint]*sync.Mutex
	visibilityCount int
	fullscreenExits int
	fullscreen      bool
	blocked         bool
	inProgress      bool
	startedAt       time.Time
	duration        time.Duration

	submitMu sync.Mutex
	result   *dto.SubmitResultDTO

	stop context.CancelFunc
	wg   sync.WaitGroup
}

func NewController(api *API, buffer *Buffer, cfg Config, hooks Hooks) *Controller {
	cfg.withDefaults()
	return &Controller{
		api:      api,
		buffer:   buffer,
		cfg:      cfg,
		hooks:    hooks,
		answered: make(map[uint]bool),
		saving:   make(map[uint]*sync.Mutex),
	}
}

// Begin starts (or resumes) the session, re-sends buffered answers and launches
// the countdown and fallback flush loops. The UI stays blocked until fullscreen is reported.
func (c *Controller) Begin(ctx context.Context) (*dto.SessionViewDTO, error) {
	view, err := c.api.Session(ctx)
	if err != nil {
		if IsAlreadyCompleted(err) {
			return nil, ErrSessionClosed
		}
		return nil, err
	}
	start, err := c.api.Start(ctx)
	if err != nil {
		if IsAlreadyCompleted(err) {
			return nil, ErrSessionClosed
		}
		return nil, err
	}

	c.mu.Lock()
	c.inProgress = true
	c.startedAt = start.StartedAt
	c.duration = time.Duration(view.Duration) * time.Minute
	c.blocked = !c.fullscreen
	blocked := c.blocked
	c.mu.Unlock()
	if blocked && c.hooks.OnRequestFullscreen != nil {
		c.hooks.OnRequestFullscreen()
	}
	c.emitBlocked(blocked)

	if err := c.Resume(ctx); err != nil {
		log.Warn().Err(err).Msg("sessionclient: resume left answers unsynced")
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c.stop = cancel
	c.wg.Add(2)
	go c.timerLoop(loopCtx)
	go c.flushLoop(loopCtx)
	return view, nil
}

// Close stops the background loops and waits for them.
func (c *Controller) Close() {
	if c.stop != nil {
		c.stop()
	}
	c.wg.Wait()
}

func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	rem := c.startedAt.Add(c.duration).Sub(c.cfg.Now())
	if rem < 0 {
		return 0
	}
	return rem
}

func (c *Controller) SetCurrent(index int) {
	c.mu.Lock()
	c.current = index
	c.mu.Unlock()
}

func (c *Controller) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Controller) Answered(questionID uint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answered[questionID]
}

func (c *Controller) AnsweredCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.answered)
}

func (c *Controller) Blocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocked
}

func (c *Controller) VisibilityCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visibilityCount
}

func (c *Controller) isInProgress() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inProgress
}

// SetResponse buffers the value locally, then saves it with retries. On failure the
// value stays in the buffer and the flush loop keeps trying.
func (c *Controller) SetResponse(ctx context.Context, questionID uint, value string) error {
	if !c.isInProgress() {
		return ErrSessionClosed
	}
	if _, err := c.buffer.Put(c.api.TestLink(), questionID, value, c.cfg.Now()); err != nil {
		return fmt.Errorf("buffer answer: %w", err)
	}

	c.mu.Lock()
	if value == "" {
		delete(c.answered, questionID)
	} else {
		c.answered[questionID] = true
	}
	c.mu.Unlock()

	return c.sync(ctx, questionID)
}

func (c *Controller) questionLock(questionID uint) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.saving[questionID]
	if !ok {
		lock = &sync.Mutex{}
		c.saving[questionID] = lock
	}
	return lock
}

func (c *Controller) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryInitial
	b.MaxElapsedTime = c.cfg.RetryMaxElapsed
	return backoff.WithContext(b, ctx)
}

func (c *Controller) retry(ctx context.Context, op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, c.newBackOff(ctx))
}

// sync sends the newest buffered value of a question until the server has
// acknowledged it. Sends for one question never overlap, and a value that was
// replaced while in flight is followed by the replacement.
func (c *Controller) sync(ctx context.Context, questionID uint) error {
	lock := c.questionLock(questionID)
	lock.Lock()
	defer lock.Unlock()

	testLink := c.api.TestLink()
	for {
		entry, ok, err := c.buffer.Get(testLink, questionID)
		if err != nil {
			return fmt.Errorf("read buffered answer: %w", err)
		}
		if !ok || entry.Synced {
			return nil
		}

		c.emitSaveState(questionID, SaveStateSaving)
		err = c.retry(ctx, func() error {
			_, err := c.api.SaveResponse(ctx, questionID, entry.Response)
			return err
		})
		if err != nil {
			if IsAlreadyCompleted(err) {
				c.markClosed()
				err = ErrSessionClosed
			}
			log.Warn().Err(err).Uint("questionID", questionID).Msg("sessionclient: answer not saved, kept in local buffer")
			c.emitSaveState(questionID, SaveStateFailed)
			return err
		}
		if err := c.buffer.MarkSynced(testLink, questionID, entry.Version); err != nil {
			log.Warn().Err(err).Uint("questionID", questionID).Msg("sessionclient: failed to mark answer synced")
			return err
		}
		c.emitSaveState(questionID, SaveStateSaved)
	}
}

// Resume re-sends every buffered answer the server has not acknowledged.
func (c *Controller) Resume(ctx context.Context) error {
	pending, err := c.buffer.Pending(c.api.TestLink())
	if err != nil {
		return err
	}
	var errs []error
	for questionID, entry := range pending {
		c.mu.Lock()
		if entry.Response != "" {
			c.answered[questionID] = true
		}
		c.mu.Unlock()
		if err := c.sync(ctx, questionID); err != nil {
			if errors.Is(err, ErrSessionClosed) {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FullscreenChanged records the shell's fullscreen state. Leaving fullscreen
// during the session blocks the UI and is reported; the countdown keeps running.
func (c *Controller) FullscreenChanged(ctx context.Context, fullscreen bool) {
	c.mu.Lock()
	c.fullscreen = fullscreen
	if !c.inProgress {
		c.mu.Unlock()
		return
	}
	wasBlocked := c.blocked
	c.blocked = !fullscreen
	exits := c.fullscreenExits
	if !fullscreen {
		c.fullscreenExits++
		exits = c.fullscreenExits
	}
	c.mu.Unlock()

	if wasBlocked != !fullscreen {
		c.emitBlocked(!fullscreen)
	}
	if !fullscreen {
		c.report(ctx, dto.IntegrityFullscreenExit, exits)
	}
}

// VisibilityChanged counts visible-to-hidden transitions. From the second one a
// warning is emitted; reaching MaxVisibilityChanges forces an automatic submit.
func (c *Controller) VisibilityChanged(ctx context.Context, hidden bool) {
	if !hidden {
		return
	}
	c.mu.Lock()
	if !c.inProgress {
		c.mu.Unlock()
		return
	}
	c.visibilityCount++
	count := c.visibilityCount
	c.mu.Unlock()

	c.report(ctx, dto.IntegrityVisibilityHidden, count)

	if count >= c.cfg.MaxVisibilityChanges {
		log.Warn().Int("count", count).Msg("sessionclient: visibility limit reached, submitting")
		if _, err := c.Submit(ctx, true); err != nil {
			log.Error().Err(err).Msg("sessionclient: forced submit failed")
		}
		return
	}
	if count > 1 && c.hooks.OnWarning != nil {
		c.hooks.OnWarning(count, c.cfg.MaxVisibilityChanges-count)
	}
}

func (c *Controller) report(ctx context.Context, kind string, count int) {
	if err := c.api.ReportIntegrity(ctx, kind, count); err != nil {
		log.Warn().Err(err).Str("kind", kind).Msg("sessionclient: integrity report failed")
	}
}

// Submit completes the session once. Concurrent and repeated calls share the
// first successful outcome; a failed attempt may be retried. When the server says
// the session is already completed that counts as success.
func (c *Controller) Submit(ctx context.Context, autoSubmitted bool) (*dto.SubmitResultDTO, error) {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()
	if c.result != nil {
		return c.result, nil
	}

	if c.isInProgress() {
		if err := c.Resume(ctx); err != nil && !errors.Is(err, ErrSessionClosed) {
			log.Warn().Err(err).Msg("sessionclient: submitting with unsynced answers")
		}
	}

	result, err := c.submitRemote(ctx, autoSubmitted)
	if err != nil {
		status, statusErr := c.api.Status(ctx)
		if statusErr != nil || status.Status != "completed" {
			return nil, err
		}
		result = &dto.SubmitResultDTO{}
		if status.Score != nil {
			result.Score = *status.Score
		}
	}

	c.result = result
	c.markClosed()
	if c.stop != nil {
		c.stop()
	}
	if err := c.buffer.Clear(c.api.TestLink()); err != nil {
		log.Warn().Err(err).Msg("sessionclient: failed to clear answer buffer")
	}
	if c.hooks.OnSubmitted != nil {
		c.hooks.OnSubmitted(result, autoSubmitted)
	}
	return result, nil
}

func (c *Controller) submitRemote(ctx context.Context, autoSubmitted bool) (*dto.SubmitResultDTO, error) {
	var result *dto.SubmitResultDTO
	err := c.retry(ctx, func() error {
		var err error
		result, err = c.api.Submit(ctx, autoSubmitted)
		return err
	})
	return result, err
}

func (c *Controller) markClosed() {
	c.mu.Lock()
	c.inProgress = false
	c.blocked = false
	c.mu.Unlock()
}

func (c *Controller) timerLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remaining := c.Remaining()
			if c.hooks.OnTick != nil {
				c.hooks.OnTick(remaining)
			}
			if remaining <= 0 {
				if _, err := c.Submit(ctx, true); err != nil {
					log.Error().Err(err).Msg("sessionclient: submit on timeout failed, retrying next tick")
				}
			}
		}
	}
}

func (c *Controller) flushLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.isInProgress() {
				continue
			}
			if err := c.Resume(ctx); err != nil {
				log.Debug().Err(err).Msg("sessionclient: fallback flush incomplete")
			}
		}
	}
}

func (c *Controller) emitBlocked(blocked bool) {
	if c.hooks.OnBlocked != nil {
		c.hooks.OnBlocked(blocked)
	}
}

func (c *Controller) emitSaveState(questionID uint, state SaveState) {
	if c.hooks.OnSaveState != nil {
		c.hooks.OnSaveState(questionID, state)
	}
}
