package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/NathanBvumbwe/peza-ganyu/internal/types"
)

const keepAliveInterval = 15 * time.Second

// RecomputeResponse represents the response for POST /users/{id}/recompute
type RecomputeResponse struct {
	UserID  int64 `json:"user_id"`
	Matches int   `json:"matches"`
}

// MatchesResponse represents the response for GET /users/{id}/matches
type MatchesResponse struct {
	UserID  int64               `json:"user_id"`
	Matches []types.MatchRecord `json:"matches"`
}

// RunResponse represents the response for POST /pipeline/run
type RunResponse struct {
	Status string `json:"status"`
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Health.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRecompute recomputes one user's matches synchronously.
func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	topN, err := s.parseTopN(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	// A started recompute finishes even if the client goes away.
	n, err := s.deps.Recomputer.RecomputeForUser(context.WithoutCancel(r.Context()), userID, topN)
	if err != nil {
		s.logger.Error("recompute failed", zap.Int64("user_id", userID), zap.Error(err))
		s.errorResponse(w, HTTPStatus(err), "failed to recompute matches")
		return
	}

	s.jsonResponse(w, http.StatusOK, RecomputeResponse{UserID: userID, Matches: n})
}

// handleListMatches returns a user's stored matches.
func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	matches, err := s.deps.Matches.ListMatches(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to list matches", zap.Int64("user_id", userID), zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "failed to list matches")
		return
	}
	if matches == nil {
		matches = []types.MatchRecord{}
	}

	s.jsonResponse(w, http.StatusOK, MatchesResponse{UserID: userID, Matches: matches})
}

// handleRunPipeline starts a pipeline run in the background.
func (s *Server) handleRunPipeline(w http.ResponseWriter, _ *http.Request) {
	if !s.running.CompareAndSwap(false, true) {
		s.errorResponse(w, HTTPStatus(ErrRunInProgress), ErrRunInProgress.Error())
		return
	}

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		defer s.running.Store(false)
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error("pipeline run panicked", zap.Any("panic", p))
			}
		}()

		report, err := s.deps.Runner.Run(s.baseCtx)
		if err != nil {
			s.logger.Error("pipeline run failed", zap.Error(err))
			return
		}
		s.logger.Info("pipeline run finished",
			zap.String("run_id", report.RunID.String()),
			zap.Int("inserted", report.Ingest.Inserted),
			zap.Int("users", report.Match.Succeeded))
	}()

	s.jsonResponse(w, http.StatusAccepted, RunResponse{Status: "started"})
}

// handlePipelineEvents streams pipeline progress as Server-Sent Events
// until the client disconnects.
func (s *Server) handlePipelineEvents(w http.ResponseWriter, r *http.Request) {
	events, unsubscribe := s.deps.Progress.Subscribe()
	defer unsubscribe()

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := sse.WriteEvent("progress", ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := sse.WriteComment("keep-alive"); err != nil {
				return
			}
		}
	}
}

func parseUserID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, &ErrValidation{Field: "id", Message: "must be a positive integer"}
	}
	return id, nil
}

func (s *Server) parseTopN(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("top_n")
	if raw == "" {
		return s.topN, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, &ErrValidation{Field: "top_n", Message: "must be a positive integer"}
	}
	return n, nil
}
