package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lshigami/codescreen/config"
	"github.com/lshigami/codescreen/internal/controller"
	"github.com/lshigami/codescreen/internal/dto"
	"github.com/lshigami/codescreen/internal/service"
	"github.com/lshigami/codescreen/internal/ws"
	"github.com/rs/zerolog/log"
)

const writeWait = 10 * time.Second

type AdminTestController struct {
	adminTestService service.AdminTestService
	hub              *ws.Hub
	upgrader         websocket.Upgrader
}

func NewAdminTestController(cfg *config.Config, adminTestService service.AdminTestService, hub *ws.Hub) *AdminTestController {
	return &AdminTestController{
		adminTestService: adminTestService,
		hub:              hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: controller.OriginAllowed(cfg.Server.AllowOrigins),
		},
	}
}

// RegisterRoutes mounts the agency surface under group. Callers add the API key guard.
func (c *AdminTestController) RegisterRoutes(group *gin.RouterGroup) {
	tests := group.Group("/tests")
	tests.POST("", c.CreateTest)
	tests.GET("", c.ListTests)
	tests.POST("/:test_id/candidates", c.InviteCandidate)
	tests.POST("/:test_id/candidates/bulk", c.BulkInviteCandidates)
	tests.GET("/:test_id/candidates", c.ListCandidates)
	tests.GET("/:test_id/stats", c.GetTestStats)
	tests.GET("/:test_id/live", c.Live)
}

// CreateTest godoc
// @Summary (Admin) Create a new test
// @Description Creates a test together with its questions. Choice questions need options and an answer index.
// @Tags Admin - Tests
// @Accept json
// @Produce json
// @Security AdminAPIKey
// @Param test_data body dto.TestCreateDTO true "Test creation data including all questions"
// @Success 201 {object} dto.TestDetailDTO "Test created successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid input data"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/tests [post]
func (c *AdminTestController) CreateTest(ctx *gin.Context) {
	var req dto.TestCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.BindError(ctx, "Admin CreateTest", err)
		return
	}

	testResp, err := c.adminTestService.CreateTest(ctx.Request.Context(), req)
	if err != nil {
		controller.RespondError(ctx, "Admin CreateTest", err)
		return
	}
	ctx.JSON(http.StatusCreated, testResp)
}

// ListTests godoc
// @Summary (Admin) List tests
// @Tags Admin - Tests
// @Produce json
// @Security AdminAPIKey
// @Success 200 {array} dto.TestSummaryDTO
// @Router /admin/tests [get]
func (c *AdminTestController) ListTests(ctx *gin.Context) {
	tests, err := c.adminTestService.ListTests(ctx.Request.Context())
	if err != nil {
		controller.RespondError(ctx, "Admin ListTests", err)
		return
	}
	ctx.JSON(http.StatusOK, tests)
}

// InviteCandidate godoc
// @Summary (Admin) Invite a candidate
// @Description Creates a pending session with a fresh test link.
// @Tags Admin - Candidates
// @Accept json
// @Produce json
// @Security AdminAPIKey
// @Param test_id path int true "Test ID"
// @Param candidate body dto.InviteCandidateDTO true "Candidate"
// @Success 201 {object} dto.CandidateDTO
// @Failure 404 {object} dto.ErrorResponse "Test not found"
// @Router /admin/tests/{test_id}/candidates [post]
func (c *AdminTestController) InviteCandidate(ctx *gin.Context) {
	testID, ok := controller.UintParam(ctx, "test_id")
	if !ok {
		return
	}
	var req dto.InviteCandidateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.BindError(ctx, "Admin InviteCandidate", err)
		return
	}

	candidate, err := c.adminTestService.InviteCandidate(ctx.Request.Context(), testID, req)
	if err != nil {
		controller.RespondError(ctx, "Admin InviteCandidate", err)
		return
	}
	ctx.JSON(http.StatusCreated, candidate)
}

// BulkInviteCandidates godoc
// @Summary (Admin) Invite many candidates
// @Description Invites every valid row. Invalid rows are reported per row and do not fail the batch.
// @Tags Admin - Candidates
// @Accept json
// @Produce json
// @Security AdminAPIKey
// @Param test_id path int true "Test ID"
// @Param candidates body dto.BulkInviteDTO true "Candidates"
// @Success 200 {object} dto.BulkInviteResultDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 404 {object} dto.ErrorResponse "Test not found"
// @Router /admin/tests/{test_id}/candidates/bulk [post]
func (c *AdminTestController) BulkInviteCandidates(ctx *gin.Context) {
	testID, ok := controller.UintParam(ctx, "test_id")
	if !ok {
		return
	}
	var req dto.BulkInviteDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.BindError(ctx, "Admin BulkInviteCandidates", err)
		return
	}

	result, err := c.adminTestService.BulkInviteCandidates(ctx.Request.Context(), testID, req)
	if err != nil {
		controller.RespondError(ctx, "Admin BulkInviteCandidates", err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// ListCandidates godoc
// @Summary (Admin) List candidates of a test
// @Tags Admin - Candidates
// @Produce json
// @Security AdminAPIKey
// @Param test_id path int true "Test ID"
// @Success 200 {array} dto.CandidateDTO
// @Failure 404 {object} dto.ErrorResponse "Test not found"
// @Router /admin/tests/{test_id}/candidates [get]
func (c *AdminTestController) ListCandidates(ctx *gin.Context) {
	testID, ok := controller.UintParam(ctx, "test_id")
	if !ok {
		return
	}
	candidates, err := c.adminTestService.ListCandidates(ctx.Request.Context(), testID)
	if err != nil {
		controller.RespondError(ctx, "Admin ListCandidates", err)
		return
	}
	ctx.JSON(http.StatusOK, candidates)
}

// GetTestStats godoc
// @Summary (Admin) Test statistics
// @Tags Admin - Tests
// @Produce json
// @Security AdminAPIKey
// @Param test_id path int true "Test ID"
// @Success 200 {object} dto.TestStatsDTO
// @Failure 404 {object} dto.ErrorResponse "Test not found"
// @Router /admin/tests/{test_id}/stats [get]
func (c *AdminTestController) GetTestStats(ctx *gin.Context) {
	testID, ok := controller.UintParam(ctx, "test_id")
	if !ok {
		return
	}
	stats, err := c.adminTestService.GetTestStats(ctx.Request.Context(), testID)
	if err != nil {
		controller.RespondError(ctx, "Admin GetTestStats", err)
		return
	}
	ctx.JSON(http.StatusOK, stats)
}

// Live godoc
// @Summary (Admin) Live proctoring feed
// @Description WebSocket stream of session events for one test. Browsers pass the key as
// @Description the api_key query parameter; the Origin must be one of the allowed origins.
// @Tags Admin - Tests
// @Security AdminAPIKey
// @Param test_id path int true "Test ID"
// @Param api_key query string false "Admin API key, for clients that cannot set headers"
// @Router /admin/tests/{test_id}/live [get]
func (c *AdminTestController) Live(ctx *gin.Context) {
	testID, ok := controller.UintParam(ctx, "test_id")
	if !ok {
		return
	}

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn().Err(err).Uint("testID", testID).Msg("Admin Live: websocket upgrade failed")
		return
	}
	sub := c.hub.Subscribe(testID)

	go func() {
		defer conn.Close()
		for msg := range sub.C {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug().Err(err).Str("subscriberID", sub.ID.String()).Msg("Admin Live: write failed")
				c.hub.Unsubscribe(sub)
				return
			}
		}
		conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	}()

	// the feed is one-way; reading only detects the client going away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	c.hub.Unsubscribe(sub)
}
