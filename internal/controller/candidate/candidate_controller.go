package candidate

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/codescreen/internal/controller"
	"github.com/lshigami/codescreen/internal/dto"
	"github.com/lshigami/codescreen/internal/service"
	"github.com/rs/zerolog/log"
)

type CandidateController struct {
	sessionService service.SessionService
}

func NewCandidateController(sessionService service.SessionService) *CandidateController {
	return &CandidateController{sessionService: sessionService}
}

// RegisterRoutes mounts the candidate surface under group, keyed by test link.
func (c *CandidateController) RegisterRoutes(group *gin.RouterGroup) {
	session := group.Group("/candidate/:test_link")
	session.GET("", c.GetSession)
	session.GET("/status", c.GetStatus)
	session.POST("/start", c.Start)
	session.GET("/responses/:question_id", c.GetResponse)
	session.POST("/responses", c.RecordResponse)
	session.POST("/submit", c.Submit)
	session.POST("/integrity", c.ReportIntegrity)
}

// GetSession godoc
// @Summary (Candidate) Get the session view
// @Description Test metadata and the question list without answer keys. Does not start the session.
// @Tags Candidate
// @Produce json
// @Param test_link path string true "Candidate test link"
// @Success 200 {object} dto.SessionViewDTO
// @Failure 403 {object} dto.ErrorResponse "Test already completed"
// @Failure 404 {object} dto.ErrorResponse "Invalid test link"
// @Router /candidate/{test_link} [get]
func (c *CandidateController) GetSession(ctx *gin.Context) {
	view, err := c.sessionService.GetSessionView(ctx.Request.Context(), ctx.Param("test_link"))
	if err != nil {
		controller.RespondError(ctx, "Candidate GetSession", err)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

// GetStatus godoc
// @Summary (Candidate) Get the session status
// @Tags Candidate
// @Produce json
// @Param test_link path string true "Candidate test link"
// @Success 200 {object} dto.SessionStatusDTO
// @Failure 404 {object} dto.ErrorResponse "Invalid test link"
// @Router /candidate/{test_link}/status [get]
func (c *CandidateController) GetStatus(ctx *gin.Context) {
	status, err := c.sessionService.GetStatus(ctx.Request.Context(), ctx.Param("test_link"))
	if err != nil {
		controller.RespondError(ctx, "Candidate GetStatus", err)
		return
	}
	ctx.JSON(http.StatusOK, status)
}

// Start godoc
// @Summary (Candidate) Start the test
// @Description Moves a pending session to in_progress. Repeated calls return the original start time.
// @Tags Candidate
// @Produce json
// @Param test_link path string true "Candidate test link"
// @Success 200 {object} dto.StartResponseDTO
// @Failure 403 {object} dto.ErrorResponse "Test already completed"
// @Failure 404 {object} dto.ErrorResponse "Invalid test link"
// @Router /candidate/{test_link}/start [post]
func (c *CandidateController) Start(ctx *gin.Context) {
	resp, err := c.sessionService.Start(ctx.Request.Context(), ctx.Param("test_link"))
	if err != nil {
		controller.RespondError(ctx, "Candidate Start", err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetResponse godoc
// @Summary (Candidate) Get a saved response
// @Tags Candidate
// @Produce json
// @Param test_link path string true "Candidate test link"
// @Param question_id path int true "Question ID"
// @Success 200 {object} dto.ResponseDTO
// @Failure 404 {object} dto.ErrorResponse "No response saved"
// @Router /candidate/{test_link}/responses/{question_id} [get]
func (c *CandidateController) GetResponse(ctx *gin.Context) {
	questionID, ok := controller.UintParam(ctx, "question_id")
	if !ok {
		return
	}
	resp, err := c.sessionService.GetResponse(ctx.Request.Context(), ctx.Param("test_link"), questionID)
	if err != nil {
		controller.RespondError(ctx, "Candidate GetResponse", err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// RecordResponse godoc
// @Summary (Candidate) Save a response
// @Description Upserts the answer for one question. A blank response clears prior credit.
// @Tags Candidate
// @Accept json
// @Produce json
// @Param test_link path string true "Candidate test link"
// @Param response body dto.RecordResponseDTO true "Question and answer"
// @Success 200 {object} dto.ResponseDTO "Existing response updated"
// @Success 201 {object} dto.ResponseDTO "Response created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 403 {object} dto.ErrorResponse "Test already completed"
// @Failure 404 {object} dto.ErrorResponse "Invalid link or question"
// @Failure 409 {object} dto.ErrorResponse "Test not started; answers are accepted only after POST /start"
// @Router /candidate/{test_link}/responses [post]
func (c *CandidateController) RecordResponse(ctx *gin.Context) {
	var req dto.RecordResponseDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.BindError(ctx, "Candidate RecordResponse", err)
		return
	}

	resp, created, err := c.sessionService.RecordResponse(ctx.Request.Context(), ctx.Param("test_link"), req)
	if err != nil {
		controller.RespondError(ctx, "Candidate RecordResponse", err)
		return
	}
	if created {
		ctx.JSON(http.StatusCreated, resp)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// Submit godoc
// @Summary (Candidate) Submit the test
// @Description Scores and completes the session. Only the first submission wins.
// @Tags Candidate
// @Accept json
// @Produce json
// @Param test_link path string true "Candidate test link"
// @Param submission body dto.SubmitRequestDTO false "Whether the submission was automatic"
// @Success 200 {object} dto.SubmitResultDTO
// @Failure 400 {object} dto.ErrorResponse "Unknown or malformed field"
// @Failure 403 {object} dto.ErrorResponse "Test already completed"
// @Failure 404 {object} dto.ErrorResponse "Invalid test link"
// @Router /candidate/{test_link}/submit [post]
func (c *CandidateController) Submit(ctx *gin.Context) {
	var req dto.SubmitRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		controller.BindError(ctx, "Candidate Submit", err)
		return
	}

	result, err := c.sessionService.Submit(ctx.Request.Context(), ctx.Param("test_link"), req.AutoSubmitted)
	if err != nil {
		controller.RespondError(ctx, "Candidate Submit", err)
		return
	}
	log.Info().Str("testLink", ctx.Param("test_link")).Int("score", result.Score).Bool("autoSubmitted", req.AutoSubmitted).Msg("Candidate Submit: test submitted")
	ctx.JSON(http.StatusOK, result)
}

// ReportIntegrity godoc
// @Summary (Candidate) Report an integrity violation
// @Description Logs and broadcasts a visibility or fullscreen violation. Does not change session state.
// @Tags Candidate
// @Accept json
// @Param test_link path string true "Candidate test link"
// @Param event body dto.IntegrityEventDTO true "Violation"
// @Success 202
// @Failure 403 {object} dto.ErrorResponse "Test already completed"
// @Router /candidate/{test_link}/integrity [post]
func (c *CandidateController) ReportIntegrity(ctx *gin.Context) {
	var req dto.IntegrityEventDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.BindError(ctx, "Candidate ReportIntegrity", err)
		return
	}
	if err := c.sessionService.ReportIntegrity(ctx.Request.Context(), ctx.Param("test_link"), req); err != nil {
		controller.RespondError(ctx, "Candidate ReportIntegrity", err)
		return
	}
	ctx.Status(http.StatusAccepted)
}
