// Package sessionclient is the candidate-side session driver a kiosk or lockdown
// shell embeds: durable autosave, integrity monitoring, the countdown and submit.
package sessionclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lshigami/codescreen/internal/dto"
)

// APIError is a non-2xx reply from the candidate API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("candidate api: %d %s", e.StatusCode, e.Message)
}

// IsAlreadyCompleted reports whether err says the session is over.
func IsAlreadyCompleted(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden
}

// retryable is true for transport failures and 5xx replies.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError || apiErr.StatusCode == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// API is a typed client for one candidate's test link.
type API struct {
	base     string
	testLink string
	client   *http.Client
}

// NewAPI targets baseURL (for example http://host:8080/api/v1). A nil client gets a 15s timeout.
func NewAPI(baseURL, testLink string, client *http.Client) *API {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &API{
		base:     strings.TrimRight(baseURL, "/") + "/candidate/" + url.PathEscape(testLink),
		testLink: testLink,
		client:   client,
	}
}

func (a *API) TestLink() string { return a.testLink }

func (a *API) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var errBody dto.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return &APIError{StatusCode: resp.StatusCode, Message: errBody.Message}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *API) Session(ctx context.Context) (*dto.SessionViewDTO, error) {
	var out dto.SessionViewDTO
	if err := a.do(ctx, http.MethodGet, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) Start(ctx context.Context) (*dto.StartResponseDTO, error) {
	var out dto.StartResponseDTO
	if err := a.do(ctx, http.MethodPost, "/start", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) Status(ctx context.Context) (*dto.SessionStatusDTO, error) {
	var out dto.SessionStatusDTO
	if err := a.do(ctx, http.MethodGet, "/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) Response(ctx context.Context, questionID uint) (*dto.ResponseDTO, error) {
	var out dto.ResponseDTO
	if err := a.do(ctx, http.MethodGet, "/responses/"+strconv.FormatUint(uint64(questionID), 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) SaveResponse(ctx context.Context, questionID uint, value string) (*dto.ResponseDTO, error) {
	var out dto.ResponseDTO
	req := dto.RecordResponseDTO{QuestionID: questionID, Response: value}
	if err := a.do(ctx, http.MethodPost, "/responses", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) Submit(ctx context.Context, autoSubmitted bool) (*dto.SubmitResultDTO, error) {
	var out dto.SubmitResultDTO
	if err := a.do(ctx, http.MethodPost, "/submit", dto.SubmitRequestDTO{AutoSubmitted: autoSubmitted}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) ReportIntegrity(ctx context.Context, kind string, count int) error {
	return a.do(ctx, http.MethodPost, "/integrity", dto.IntegrityEventDTO{Kind: kind, Count: count}, nil)
}
