package admin_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lshigami/codescreen/config"
	"github.com/lshigami/codescreen/internal/controller"
	"github.com/lshigami/codescreen/internal/controller/admin"
	"github.com/lshigami/codescreen/internal/dto"
	"github.com/lshigami/codescreen/internal/repository/memory"
	"github.com/lshigami/codescreen/internal/service"
	"github.com/lshigami/codescreen/internal/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	apiKey       = "agency-secret"
	agencyOrigin = "https://agency.example.com"
)

type harness struct {
	router   *gin.Engine
	sessions service.SessionService
	hub      *ws.Hub
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server:  config.Server{AllowOrigins: []string{agencyOrigin}},
		Session: config.Session{TestLinkBytes: 16},
		Admin:   config.Admin{APIKey: apiKey},
	}
	store := memory.NewStore()
	clock := service.NewSystemClock()
	hub := ws.NewHub()
	sessions := service.NewSessionService(
		store.Tests(), store.Questions(), store.Candidates(), store.Responses(),
		service.NewScoringService(), hub, clock,
	)
	adminSvc := service.NewAdminTestService(cfg, store.Tests(), store.Candidates(), service.NewLogNotifier(), clock)

	router := gin.New()
	group := router.Group("/api/v1/admin", controller.RequireAdminKey(cfg))
	admin.NewAdminTestController(cfg, adminSvc, hub).RegisterRoutes(group)
	return &harness{router: router, sessions: sessions, hub: hub}
}

func (h *harness) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1/admin"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(controller.AdminAPIKeyHeader, apiKey)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func intPtr(i int) *int { return &i }

func validTest() dto.TestCreateDTO {
	return dto.TestCreateDTO{
		Title:        "Platform engineer",
		Duration:     45,
		PassingScore: intPtr(60),
		Questions: []dto.QuestionCreateDTO{
			{Type: "multipleChoice", Content: "Default port of Postgres?", Options: []string{"3306", "5432"}, Answer: intPtr(1)},
			{Type: "subjective", Content: "Describe your on-call experience", EvaluationGuidelines: new(string)},
		},
	}
}

func (h *harness) createTest(t *testing.T) dto.TestDetailDTO {
	t.Helper()
	w := h.do(t, http.MethodPost, "/tests", validTest())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var test dto.TestDetailDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &test))
	return test
}

func TestAdminKeyRequired(t *testing.T) {
	h := newHarness(t)

	for _, key := range []string{"", "wrong"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/tests", nil)
		if key != "" {
			req.Header.Set(controller.AdminAPIKeyHeader, key)
		}
		w := httptest.NewRecorder()
		h.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
}

func TestEmptyAdminKeyRejectsEverything(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/guarded", controller.RequireAdminKey(&config.Config{}), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set(controller.AdminAPIKeyHeader, "")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateTestValidation(t *testing.T) {
	h := newHarness(t)

	noQuestions := validTest()
	noQuestions.Questions = nil
	w := h.do(t, http.MethodPost, "/tests", noQuestions)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	badAnswer := validTest()
	badAnswer.Questions[0].Answer = intPtr(5)
	w = h.do(t, http.MethodPost, "/tests", badAnswer)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Details)
	assert.Contains(t, resp.Details[0], "option index")
}

func TestInviteListAndStats(t *testing.T) {
	h := newHarness(t)
	test := h.createTest(t)
	require.Len(t, test.Questions, 2)
	require.NotNil(t, test.Questions[0].Answer)
	base := "/tests/" + strconv.FormatUint(uint64(test.ID), 10)

	w := h.do(t, http.MethodPost, base+"/candidates", dto.InviteCandidateDTO{Name: "Sam", Email: "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodPost, "/tests/999/candidates", dto.InviteCandidateDTO{Name: "Sam", Email: "sam@example.com"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, http.MethodPost, base+"/candidates", dto.InviteCandidateDTO{Name: "Sam", Email: "sam@example.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	var invited dto.CandidateDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &invited))
	assert.Equal(t, "pending", invited.Status)
	assert.NotEmpty(t, invited.TestLink)

	ctx := context.Background()
	_, err := h.sessions.Start(ctx, invited.TestLink)
	require.NoError(t, err)
	_, _, err = h.sessions.RecordResponse(ctx, invited.TestLink, dto.RecordResponseDTO{QuestionID: test.Questions[0].ID, Response: "1"})
	require.NoError(t, err)
	_, err = h.sessions.Submit(ctx, invited.TestLink, false)
	require.NoError(t, err)

	w = h.do(t, http.MethodGet, base+"/candidates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var candidates []dto.CandidateDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &candidates))
	require.Len(t, candidates, 1)
	require.NotNil(t, candidates[0].Score)
	assert.Equal(t, 50, *candidates[0].Score)

	w = h.do(t, http.MethodGet, base+"/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats dto.TestStatsDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 50.0, stats.AverageScore)
	require.NotNil(t, stats.PassRate)
	assert.Equal(t, 0.0, *stats.PassRate)

	w = h.do(t, http.MethodGet, "/tests", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summaries []dto.TestSummaryDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].QuestionCount)
}

func TestLiveFeed(t *testing.T) {
	h := newHarness(t)
	test := h.createTest(t)
	w := h.do(t, http.MethodPost, "/tests/"+strconv.FormatUint(uint64(test.ID), 10)+"/candidates", dto.InviteCandidateDTO{Name: "Kim", Email: "kim@example.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	var invited dto.CandidateDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &invited))

	srv := httptest.NewServer(h.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/admin/tests/" + strconv.FormatUint(uint64(test.ID), 10) + "/live"
	header := http.Header{}
	header.Set(controller.AdminAPIKeyHeader, apiKey)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.hub.Subscribers(test.ID) == 1 }, time.Second, 10*time.Millisecond)

	_, err = h.sessions.Start(context.Background(), invited.TestLink)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg ws.WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, service.EventSessionStarted, msg.Type)
	assert.Equal(t, test.ID, msg.TestID)
}

func TestLiveFeedFromBrowser(t *testing.T) {
	h := newHarness(t)
	test := h.createTest(t)
	srv := httptest.NewServer(h.router)
	defer srv.Close()

	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/admin/tests/" + strconv.FormatUint(uint64(test.ID), 10) + "/live"
	browser := func(origin string) http.Header {
		header := http.Header{}
		header.Set("Origin", origin)
		return header
	}

	conn, _, err := websocket.DefaultDialer.Dial(base+"?api_key="+apiKey, browser(agencyOrigin))
	require.NoError(t, err)
	conn.Close()

	_, resp, err := websocket.DefaultDialer.Dial(base+"?api_key="+apiKey, browser("https://evil.example.com"))
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"?api_key=wrong", browser(agencyOrigin))
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/tests?api_key="+apiKey, nil)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "query key only counts on websocket upgrades")
}

func TestBulkInvite(t *testing.T) {
	h := newHarness(t)
	test := h.createTest(t)
	base := "/tests/" + strconv.FormatUint(uint64(test.ID), 10)

	w := h.do(t, http.MethodPost, base+"/candidates/bulk", dto.BulkInviteDTO{Candidates: []dto.InviteCandidateDTO{
		{Name: "Ana", Email: "ana@example.com"},
		{Name: "", Email: "ghost@example.com"},
		{Name: "Bo", Email: "bo-at-example"},
		{Name: "Cy", Email: "cy@example.com"},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result dto.BulkInviteResultDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Invited)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Results, 4)
	assert.True(t, result.Results[0].Success)
	require.NotNil(t, result.Results[0].Candidate)
	assert.NotEmpty(t, result.Results[0].Candidate.TestLink)
	assert.Equal(t, "Missing required field name", result.Results[1].Error)
	assert.Equal(t, "Invalid email format", result.Results[2].Error)
	assert.Nil(t, result.Results[2].Candidate)
	assert.True(t, result.Results[3].Success)

	w = h.do(t, http.MethodGet, base+"/candidates", nil)
	var candidates []dto.CandidateDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &candidates))
	assert.Len(t, candidates, 2)

	w = h.do(t, http.MethodPost, base+"/candidates/bulk", dto.BulkInviteDTO{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = h.do(t, http.MethodPost, "/tests/999/candidates/bulk", dto.BulkInviteDTO{Candidates: []dto.InviteCandidateDTO{{Name: "Ana", Email: "ana@example.com"}}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
