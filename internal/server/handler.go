package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"resumescore/internal/builder"
	"resumescore/internal/errors"
	"resumescore/internal/history"
	"resumescore/internal/observability"
	"resumescore/internal/scoring"
	"resumescore/internal/types"
)

const (
	tracerName      = "resumescore.api"
	dashboardRecent = 5
	resumeFileField = "resume_file"
	jobDescField    = "job_description"
)

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer(tracerName).Start(r.Context(), "api.register")
	defer span.End()

	var req types.RegisterRequest
	if err := parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		s.writeAppError(w, r, err)
		return
	}

	u, err := s.accounts.Register(ctx, req.Username, req.Email, req.Password)
	s.om.Metrics().RecordBusinessEvent(ctx, observability.EventUserRegistered, err == nil)
	if err != nil {
		span.RecordError(err)
		s.writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, types.AuthResponse{User: userResponse(u)})
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer(tracerName).Start(r.Context(), "api.login")
	defer span.End()

	var req types.LoginRequest
	if err := parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		s.writeAppError(w, r, err)
		return
	}

	session, err := s.accounts.Login(ctx, req.Username, req.Password)
	s.om.Metrics().RecordBusinessEvent(ctx, observability.EventUserLoggedIn, err == nil)
	if err != nil {
		s.Logger.Info("Login failed", "username", req.Username, "client_ip", getClientIP(r))
		s.writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, types.AuthResponse{
		User:      userResponse(session.User),
		Token:     session.Token,
		ExpiresAt: &session.ExpiresAt,
	})
}

func (s *Server) scoreHandler(w http.ResponseWriter, r *http.Request) {
	var req types.ScoreRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.respondScore(w, r, req.ResumeText, req.JobDescription, "json")
}

func (s *Server) scoreUploadHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeAppError(w, r, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"expected a multipart form with a resume_file field", err))
		return
	}

	file, header, err := r.FormFile(resumeFileField)
	if err != nil {
		s.writeAppError(w, r, errors.NewValidationError(errors.ErrCodeInvalidInput,
			"resume_file is required", err))
		return
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeAppError(w, r, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read uploaded file", err))
		return
	}

	text, err := s.extractor.Text(header.Filename, data)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	s.respondScore(w, r, text, r.FormValue(jobDescField), "upload")
}

// respondScore scores the resume and, for a signed-in user, saves the run to history.
// A failed save is logged and the result is still returned.
func (s *Server) respondScore(w http.ResponseWriter, r *http.Request, resume, jobDescription, source string) {
	ctx, span := s.om.Tracer(tracerName).Start(r.Context(), "api.score")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.source", source),
		attribute.Int("request.resume_length", len(resume)),
		attribute.Int("request.job_length", len(jobDescription)),
	)

	start := time.Now()
	result, err := s.engine.Score(resume, jobDescription)
	mode, score := "", 0.0
	if err == nil {
		mode, score = string(result.Mode()), result.Base().Score
	}
	s.om.Metrics().RecordScoring(ctx, mode, score, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		s.writeAppError(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("score.mode", mode), attribute.Float64("score.value", score))

	resp := types.ScoreResponse{Result: result}
	if userID, ok := userIDFrom(ctx); ok && s.history != nil {
		if id, err := s.saveRun(ctx, userID, jobDescription, result); err != nil {
			span.RecordError(err)
			s.Logger.LogError(err, "Failed to save scoring run", "user_id", userID.String())
		} else {
			resp.HistoryID = &id
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) saveRun(ctx context.Context, userID uuid.UUID, jobDescription string, result scoring.Result) (uuid.UUID, error) {
	entry, err := history.NewEntry(userID, jobDescription, result)
	if err == nil {
		err = s.history.AddEntry(ctx, entry)
	}
	s.om.Metrics().RecordBusinessEvent(ctx, observability.EventHistorySaved, err == nil,
		attribute.String("mode", string(result.Mode())))
	if err != nil {
		return uuid.Nil, err
	}
	return entry.ID, nil
}

// chatHandler answers about the requested history entry, or the user's latest one.
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer(tracerName).Start(r.Context(), "api.chat")
	defer span.End()

	var req types.ChatRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	userID, _ := userIDFrom(ctx)

	var entry *history.Entry
	if req.HistoryID != nil {
		e, err := s.history.GetEntry(ctx, userID, *req.HistoryID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		entry = e
	} else {
		latest, err := s.history.ListEntries(ctx, userID, 1)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		if len(latest) > 0 {
			entry = &latest[0]
		}
	}

	var result scoring.Result
	if entry != nil {
		decoded, err := entry.Result()
		if err != nil {
			s.Logger.LogError(err, "Stored report is unreadable", "entry_id", entry.ID.String())
		} else {
			result = decoded
		}
	}

	reply := s.assistant.Reply(ctx, req.Message, result)
	span.SetAttributes(attribute.String("chat.source", string(reply.Source)))
	s.om.Metrics().RecordBusinessEvent(ctx, observability.EventChatAnswered, true,
		attribute.String("source", string(reply.Source)))

	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) listHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	entries, err := s.history.ListEntries(r.Context(), userID, 0)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyItems(entries))
}

func (s *Server) getHistoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	userID, _ := userIDFrom(r.Context())

	entry, err := s.history.GetEntry(r.Context(), userID, id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.HistoryDetail{HistoryItem: historyItem(*entry), Report: entry.Report})
}

func (s *Server) deleteHistoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	userID, _ := userIDFrom(r.Context())

	err = s.history.DeleteEntry(r.Context(), userID, id)
	s.om.Metrics().RecordBusinessEvent(r.Context(), observability.EventHistoryDeleted, err == nil)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := userIDFrom(ctx)

	recent, err := s.history.ListEntries(ctx, userID, dashboardRecent)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	stats, err := s.history.Stats(ctx, userID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, types.DashboardResponse{
		Recent:      historyItems(recent),
		TotalScans:  stats.TotalScans,
		LatestScore: stats.LatestScore,
	})
}

func (s *Server) builderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer(tracerName).Start(r.Context(), "api.builder")
	defer span.End()

	var draft types.ResumeDraft
	if err := parseJSONRequest(r, &draft); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	pdf, err := s.builder.RenderBytes(draft)
	s.om.Metrics().RecordBusinessEvent(ctx, observability.EventResumeBuilt, err == nil)
	if err != nil {
		span.RecordError(err)
		s.writeAppError(w, r, err)
		return
	}

	username := ""
	if claims := claimsFrom(ctx); claims != nil {
		username = claims.Username
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", builder.Filename(username)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, errors.NewValidationError(errors.ErrCodeInvalidInput, "id must be a UUID", err)
	}
	return id, nil
}

func userResponse(u *history.User) types.UserResponse {
	return types.UserResponse{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}

func historyItem(e history.Entry) types.HistoryItem {
	return types.HistoryItem{ID: e.ID, JobTitle: e.JobTitle, Score: e.Score, Mode: e.Mode, CreatedAt: e.CreatedAt}
}

func historyItems(entries []history.Entry) []types.HistoryItem {
	items := make([]types.HistoryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, historyItem(e))
	}
	return items
}
