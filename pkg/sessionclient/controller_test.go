package sessionclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/codescreen/config"
	"github.com/lshigami/codescreen/internal/controller/candidate"
	"github.com/lshigami/codescreen/internal/dto"
	"github.com/lshigami/codescreen/internal/repository/memory"
	"github.com/lshigami/codescreen/internal/service"
	"github.com/lshigami/codescreen/pkg/sessionclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyHandler fails the next n answer saves with 503 and can hold one save
// until released.
type flakyHandler struct {
	next     http.Handler
	failures atomic.Int32

	mu      sync.Mutex
	held    chan struct{}
	release chan struct{}
}

// holdNext parks the next answer save. held is closed once it arrives.
func (f *flakyHandler) holdNext() (held <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.held = make(chan struct{})
	f.release = make(chan struct{})
	r := f.release
	return f.held, func() { close(r) }
}

func (f *flakyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	isSave := r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/responses")
	if isSave && f.failures.Add(-1) >= 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if isSave {
		f.mu.Lock()
		held, release := f.held, f.release
		f.held, f.release = nil, nil
		f.mu.Unlock()
		if held != nil {
			close(held)
			<-release
		}
	}
	f.next.ServeHTTP(w, r)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []service.IntegrityViolationEvent
}

func (p *recordingPublisher) Publish(_ uint, eventType string, data interface{}) {
	if eventType != service.EventIntegrityViolation {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, data.(service.IntegrityViolationEvent))
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

type env struct {
	server    *httptest.Server
	flaky     *flakyHandler
	admin     service.AdminTestService
	publisher *recordingPublisher
	test      *dto.TestDetailDTO
	mcID      uint
	codingID  uint
}

func intPtr(i int) *int { return &i }

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	clock := service.NewSystemClock()
	publisher := &recordingPublisher{}
	cfg := &config.Config{Session: config.Session{TestLinkBytes: 16}}
	sessions := service.NewSessionService(
		store.Tests(), store.Questions(), store.Candidates(), store.Responses(),
		service.NewScoringService(), publisher, clock,
	)
	admin := service.NewAdminTestService(cfg, store.Tests(), store.Candidates(), service.NewLogNotifier(), clock)

	test, err := admin.CreateTest(context.Background(), dto.TestCreateDTO{
		Title:    "Backend screening",
		Duration: 20,
		Questions: []dto.QuestionCreateDTO{
			{Type: "multipleChoice", Content: "Which is a channel op?", Options: []string{"<-", "->"}, Answer: intPtr(0), Points: 2},
			{Type: "coding", Content: "Reverse a list"},
		},
	})
	require.NoError(t, err)

	router := gin.New()
	candidate.NewCandidateController(sessions).RegisterRoutes(router.Group("/api/v1"))
	flaky := &flakyHandler{next: router}
	server := httptest.NewServer(flaky)
	t.Cleanup(server.Close)

	e := &env{server: server, flaky: flaky, admin: admin, publisher: publisher, test: test}
	for _, q := range test.Questions {
		switch q.Type {
		case "multipleChoice":
			e.mcID = q.ID
		case "coding":
			e.codingID = q.ID
		}
	}
	return e
}

func (e *env) api(t *testing.T) *sessionclient.API {
	t.Helper()
	c, err := e.admin.InviteCandidate(context.Background(), e.test.ID, dto.InviteCandidateDTO{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	return sessionclient.NewAPI(e.server.URL+"/api/v1", c.TestLink, e.server.Client())
}

func newController(t *testing.T, api *sessionclient.API, cfg sessionclient.Config, hooks sessionclient.Hooks) (*sessionclient.Controller, *sessionclient.Buffer) {
	t.Helper()
	buf := openBuffer(t, filepath.Join(t.TempDir(), "answers.db"))
	t.Cleanup(func() { _ = buf.Close() })
	if cfg.RetryInitial == 0 {
		cfg.RetryInitial = time.Millisecond
	}
	if cfg.RetryMaxElapsed == 0 {
		cfg.RetryMaxElapsed = time.Second
	}
	ctrl := sessionclient.NewController(api, buf, cfg, hooks)
	t.Cleanup(ctrl.Close)
	return ctrl, buf
}

func TestController_AnswerAndSubmit(t *testing.T) {
	e := newEnv(t)
	api := e.api(t)
	ctx := context.Background()

	var blockedStates []bool
	fullscreenRequests := 0
	ctrl, buf := newController(t, api, sessionclient.Config{}, sessionclient.Hooks{
		OnRequestFullscreen: func() { fullscreenRequests++ },
		OnBlocked:           func(b bool) { blockedStates = append(blockedStates, b) },
	})

	view, err := ctrl.Begin(ctx)
	require.NoError(t, err)
	assert.Len(t, view.Questions, 2)
	assert.True(t, ctrl.Blocked(), "blocked until fullscreen")
	assert.Equal(t, 1, fullscreenRequests)
	assert.InDelta(t, (20 * time.Minute).Seconds(), ctrl.Remaining().Seconds(), 5)

	ctrl.FullscreenChanged(ctx, true)
	assert.False(t, ctrl.Blocked())
	assert.Equal(t, []bool{true, false}, blockedStates)

	require.NoError(t, ctrl.SetResponse(ctx, e.mcID, "0"))
	require.NoError(t, ctrl.SetResponse(ctx, e.codingID, "func reverse() {}"))
	assert.Equal(t, 2, ctrl.AnsweredCount())

	pending, err := buf.Pending(api.TestLink())
	require.NoError(t, err)
	assert.Empty(t, pending)

	saved, err := api.Response(ctx, e.mcID)
	require.NoError(t, err)
	assert.Equal(t, "0", saved.Response)

	result, err := ctrl.Submit(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 67, result.Score)
	assert.Equal(t, 2, result.TotalScore)
	assert.Equal(t, 3, result.TotalPoints)

	all, err := buf.All(api.TestLink())
	require.NoError(t, err)
	assert.Empty(t, all)

	assert.ErrorIs(t, ctrl.SetResponse(ctx, e.mcID, "1"), sessionclient.ErrSessionClosed)
}

func TestController_RetriesTransientFailures(t *testing.T) {
	e := newEnv(t)
	api := e.api(t)
	ctx := context.Background()

	var mu sync.Mutex
	var states []sessionclient.SaveState
	ctrl, buf := newController(t, api, sessionclient.Config{}, sessionclient.Hooks{
		OnSaveState: func(_ uint, s sessionclient.SaveState) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		},
	})
	_, err := ctrl.Begin(ctx)
	require.NoError(t, err)

	e.flaky.failures.Store(2)
	require.NoError(t, ctrl.SetResponse(ctx, e.mcID, "1"))

	mu.Lock()
	assert.Equal(t, []sessionclient.SaveState{sessionclient.SaveStateSaving, sessionclient.SaveStateSaved}, states)
	mu.Unlock()

	pending, err := buf.Pending(api.TestLink())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestController_KeepsUnsyncedAnswersUntilResume(t *testing.T) {
	e := newEnv(t)
	api := e.api(t)
	ctx := context.Background()

	ctrl, buf := newController(t, api, sessionclient.Config{RetryMaxElapsed: 20 * time.Millisecond}, sessionclient.Hooks{})
	_, err := ctrl.Begin(ctx)
	require.NoError(t, err)

	e.flaky.failures.Store(1 << 20)
	require.Error(t, ctrl.SetResponse(ctx, e.codingID, "draft"))
	assert.True(t, ctrl.Answered(e.codingID))

	pending, err := buf.Pending(api.TestLink())
	require.NoError(t, err)
	require.Contains(t, pending, e.codingID)

	e.flaky.failures.Store(0)
	require.NoError(t, ctrl.Resume(ctx))

	pending, err = buf.Pending(api.TestLink())
	require.NoError(t, err)
	assert.Empty(t, pending)

	saved, err := api.Response(ctx, e.codingID)
	require.NoError(t, err)
	assert.Equal(t, "draft", saved.Response)
}

func TestController_NewerAnswerWinsOverStaleFlush(t *testing.T) {
	e := newEnv(t)
	api := e.api(t)
	ctx := context.Background()

	ctrl, buf := newController(t, api, sessionclient.Config{RetryMaxElapsed: 20 * time.Millisecond}, sessionclient.Hooks{})
	_, err := ctrl.Begin(ctx)
	require.NoError(t, err)

	e.flaky.failures.Store(1 << 20)
	require.Error(t, ctrl.SetResponse(ctx, e.mcID, "1"))
	e.flaky.failures.Store(0)

	held, release := e.flaky.holdNext()
	resumed := make(chan error, 1)
	go func() { resumed <- ctrl.Resume(ctx) }()
	<-held

	answered := make(chan error, 1)
	go func() { answered <- ctrl.SetResponse(ctx, e.mcID, "0") }()
	select {
	case err := <-answered:
		answered <- err
	case <-time.After(100 * time.Millisecond):
	}
	release()

	require.NoError(t, <-resumed)
	require.NoError(t, <-answered)

	saved, err := api.Response(ctx, e.mcID)
	require.NoError(t, err)
	assert.Equal(t, "0", saved.Response)

	pending, err := buf.Pending(api.TestLink())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestController_VisibilityLimitForcesSubmit(t *testing.T) {
	e := newEnv(t)
	api := e.api(t)
	ctx := context.Background()

	var warnings [][2]int
	var autoSubmitted atomic.Bool
	ctrl, _ := newController(t, api, sessionclient.Config{MaxVisibilityChanges: 3}, sessionclient.Hooks{
		OnWarning:   func(count, remaining int) { warnings = append(warnings, [2]int{count, remaining}) },
		OnSubmitted: func(_ *dto.SubmitResultDTO, auto bool) { autoSubmitted.Store(auto) },
	})
	_, err := ctrl.Begin(ctx)
	require.NoError(t, err)
	ctrl.FullscreenChanged(ctx, true)

	ctrl.VisibilityChanged(ctx, true)
	ctrl.VisibilityChanged(ctx, false)
	ctrl.VisibilityChanged(ctx, true)
	assert.Equal(t, [][2]int{{2, 1}}, warnings)

	ctrl.VisibilityChanged(ctx, true)
	assert.True(t, autoSubmitted.Load())
	assert.Equal(t, 3, ctrl.VisibilityCount())

	status, err := api.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "completed", status.Status)
	assert.True(t, status.AutoSubmitted)

	assert.Equal(t, []string{
		dto.IntegrityVisibilityHidden,
		dto.IntegrityVisibilityHidden,
		dto.IntegrityVisibilityHidden,
	}, e.publisher.kinds())

	ctrl.VisibilityChanged(ctx, true)
	assert.Equal(t, 3, ctrl.VisibilityCount(), "ignored after completion")
}

func TestController_FullscreenExitBlocksAndReports(t *testing.T) {
	e := newEnv(t)
	api := e.api(t)
	ctx := context.Background()

	requested := false
	ctrl, _ := newController(t, api, sessionclient.Config{}, sessionclient.Hooks{
		OnRequestFullscreen: func() { requested = true },
	})
	ctrl.FullscreenChanged(ctx, true)
	_, err := ctrl.Begin(ctx)
	require.NoError(t, err)
	assert.False(t, ctrl.Blocked())
	assert.False(t, requested, "already fullscreen")

	ctrl.FullscreenChanged(ctx, false)
	assert.True(t, ctrl.Blocked())
	assert.Equal(t, []string{dto.IntegrityFullscreenExit}, e.publisher.kinds())

	ctrl.FullscreenChanged(ctx, true)
	assert.False(t, ctrl.Blocked())
}

func TestController_SubmitsWhenTimeRunsOut(t *testing.T) {
	e := newEnv(t)
	api := e.api(t)

	done := make(chan bool, 1)
	ctrl, _ := newController(t, api, sessionclient.Config{
		TickInterval: 5 * time.Millisecond,
		Now:          func() time.Time { return time.Now().Add(time.Hour) },
	}, sessionclient.Hooks{
		OnSubmitted: func(_ *dto.SubmitResultDTO, auto bool) { done <- auto },
	})
	_, err := ctrl.Begin(context.Background())
	require.NoError(t, err)
	assert.Zero(t, ctrl.Remaining())

	select {
	case auto := <-done:
		assert.True(t, auto)
	case <-time.After(5 * time.Second):
		t.Fatal("session was not submitted on timeout")
	}

	status, err := api.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "completed", status.Status)
}

func TestController_AlreadyCompletedElsewhere(t *testing.T) {
	e := newEnv(t)
	api := e.api(t)
	ctx := context.Background()

	ctrl, _ := newController(t, api, sessionclient.Config{}, sessionclient.Hooks{})
	_, err := ctrl.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, ctrl.SetResponse(ctx, e.mcID, "0"))

	other := sessionclient.NewAPI(e.server.URL+"/api/v1", api.TestLink(), e.server.Client())
	first, err := other.Submit(ctx, false)
	require.NoError(t, err)

	_, err = other.Submit(ctx, false)
	assert.True(t, sessionclient.IsAlreadyCompleted(err))

	result, err := ctrl.Submit(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, first.Score, result.Score)

	_, err = ctrl.Begin(ctx)
	assert.ErrorIs(t, err, sessionclient.ErrSessionClosed)
}

func TestController_ConcurrentSubmitCompletesOnce(t *testing.T) {
	e := newEnv(t)
	api := e.api(t)
	ctx := context.Background()

	var calls atomic.Int32
	ctrl, _ := newController(t, api, sessionclient.Config{}, sessionclient.Hooks{
		OnSubmitted: func(*dto.SubmitResultDTO, bool) { calls.Add(1) },
	})
	_, err := ctrl.Begin(ctx)
	require.NoError(t, err)

	results := make([]*dto.SubmitResultDTO, 8)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := ctrl.Submit(ctx, i%2 == 0)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, res := range results {
		assert.Same(t, results[0], res)
	}
}
