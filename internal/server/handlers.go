package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jonathan/salary-insights/internal/aggregate"
	"github.com/jonathan/salary-insights/internal/assistant"
	"github.com/jonathan/salary-insights/internal/dataset"
	"github.com/jonathan/salary-insights/internal/llm"
	"github.com/jonathan/salary-insights/internal/metrics"
	"github.com/jonathan/salary-insights/internal/types"
)

// maxChatBody bounds the chat request body.
const maxChatBody = 64 << 10

// handleChat answers a question against the server-side snapshot.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		metrics.ChatRequests.WithLabelValues("bad_request").Inc()
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validate.Struct(req); err != nil {
		metrics.ChatRequests.WithLabelValues("bad_request").Inc()
		s.fail(w, validationError(err))
		return
	}

	if !s.assistant.Configured() {
		metrics.ChatRequests.WithLabelValues("error").Inc()
		s.fail(w, &llm.ConfigurationMissingError{Setting: "llm.api_key"})
		return
	}

	records, err := s.data.Records(r.Context())
	if err != nil {
		metrics.ChatRequests.WithLabelValues("data_unavailable").Inc()
		s.fail(w, err)
		return
	}
	records = req.Context.Filters.Apply(records)

	answer, err := s.assistant.Ask(r.Context(), req.Message, records)
	if err != nil {
		if reply, ok := assistant.FallbackReply(err); ok {
			zap.L().Warn("model gave no usable answer", zap.Error(err))
			metrics.ChatRequests.WithLabelValues("fallback").Inc()
			s.jsonResponse(w, http.StatusOK, types.ChatResponse{Response: reply})
			return
		}
		zap.L().Error("chat failed", zap.Error(err))
		metrics.ChatRequests.WithLabelValues("error").Inc()
		s.fail(w, err)
		return
	}

	metrics.ChatRequests.WithLabelValues("ok").Inc()
	s.jsonResponse(w, http.StatusOK, types.ChatResponse{
		Response:  answer.Text,
		Formatted: &answer.Formatted,
		Strategy:  &answer.Strategy,
		Truncated: answer.Truncated,
	})
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Allow", "POST, OPTIONS")
	s.errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// listQuery is the parsed query string of the dashboard views.
type listQuery struct {
	Filter   dataset.Filter
	Page     int `json:"page" validate:"gte=1"`
	PageSize int `json:"page_size" validate:"gte=1,lte=100"`
}

// parseListQuery reads search, family, level, country, page and page_size.
// The multi-select parameters may repeat or hold comma-separated values.
func (s *Server) parseListQuery(r *http.Request) (listQuery, error) {
	q := r.URL.Query()
	lq := listQuery{
		Filter: dataset.Filter{
			Search:    q.Get("search"),
			Families:  multiValue(q["family"]),
			Levels:    multiValue(q["level"]),
			Countries: multiValue(q["country"]),
		},
		Page:     1,
		PageSize: dataset.DefaultPageSize,
	}

	ints := []struct {
		name string
		dst  *int
	}{{"page", &lq.Page}, {"page_size", &lq.PageSize}}
	for _, p := range ints {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return lq, &ValidationError{Field: p.name, Message: p.name + " must be an integer"}
		}
		*p.dst = n
	}

	if err := s.validate.Struct(lq); err != nil {
		return lq, validationError(err)
	}
	return lq, nil
}

func multiValue(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// handleJobs returns one page of filtered records.
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	lq, err := s.parseListQuery(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	records, err := s.data.Records(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, dataset.Paginate(lq.Filter.Apply(records), lq.Page, lq.PageSize))
}

// handleAggregates returns the dashboard summaries for the filtered records.
func (s *Server) handleAggregates(w http.ResponseWriter, r *http.Request) {
	lq, err := s.parseListQuery(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	records, err := s.data.Records(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, aggregate.Build(lq.Filter.Apply(records)))
}

// handleFacets returns the filter choices over the whole dataset.
func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	records, err := s.data.Records(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, dataset.BuildFacets(records))
}

// handleReload refetches the dataset; the old snapshot survives a failure.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	records, err := s.data.Reload(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, types.ReloadResponse{
		Records:  len(records),
		LoadedAt: s.data.LoadedAt().UTC().Format(time.RFC3339),
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"dataset_loaded": s.data.Loaded(),
	})
}

type envStatus struct {
	EnvReport
	AssistantReady  bool   `json:"assistant_ready"`
	DatasetLoaded   bool   `json:"dataset_loaded"`
	DatasetLoadedAt string `json:"dataset_loaded_at,omitempty"`
}

// handleDebugEnv reports which credentials are present without revealing them.
func (s *Server) handleDebugEnv(w http.ResponseWriter, _ *http.Request) {
	env := envStatus{
		EnvReport:      s.env,
		AssistantReady: s.assistant.Configured(),
		DatasetLoaded:  s.data.Loaded(),
	}
	if at := s.data.LoadedAt(); !at.IsZero() {
		env.DatasetLoadedAt = at.UTC().Format(time.RFC3339)
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"message":     "Debug endpoint - environment check",
		"environment": env,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fail writes err with its mapped status.
func (s *Server) fail(w http.ResponseWriter, err error) {
	s.errorResponse(w, HTTPStatus(err), publicMessage(err))
}

// validationError converts the first validator failure into a ValidationError.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		ve := verrs[0]
		field := ve.Field()
		switch ve.Tag() {
		case "required":
			return &ValidationError{Field: field, Message: field + " is required"}
		case "max", "lte":
			return &ValidationError{Field: field, Message: fmt.Sprintf("%s must be at most %s", field, ve.Param())}
		case "gte":
			return &ValidationError{Field: field, Message: fmt.Sprintf("%s must be at least %s", field, ve.Param())}
		default:
			return &ValidationError{Field: field, Message: fmt.Sprintf("%s is invalid (%s)", field, ve.Tag())}
		}
	}
	return &ValidationError{Field: "request", Message: "invalid request"}
}
