package comment

import (
	"NYCU-SDC/survey-backend/internal"
	"NYCU-SDC/survey-backend/internal/user"
	"context"
	"net/http"
	"time"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Store interface {
	Create(ctx context.Context, surveyID, userID uuid.UUID, content string) (WithAuthor, error)
	ListBySurveyID(ctx context.Context, surveyID uuid.UUID) ([]WithAuthor, error)
}

type CreateRequest struct {
	SurveyID uuid.UUID `json:"surveyId"`
	Content  string    `json:"content" validate:"required"`
}

type Response struct {
	ID        string               `json:"id"`
	SurveyID  string               `json:"surveyId"`
	Content   string               `json:"content"`
	CreatedAt string               `json:"createdAt"`
	Author    user.ProfileResponse `json:"author"`
}

func ToResponse(c WithAuthor) Response {
	return Response{
		ID:        c.ID.String(),
		SurveyID:  c.SurveyID.String(),
		Content:   c.Content,
		CreatedAt: c.CreatedAt.Time.Format(time.RFC3339),
		Author:    user.NewProfileResponse(c.UserID, c.AuthorName, c.AuthorAvatarUrl, c.AuthorExternalHandle),
	}
}

type Handler struct {
	logger        *zap.Logger
	tracer        trace.Tracer
	validator     *validator.Validate
	problemWriter *problem.HttpWriter
	store         Store
}

func NewHandler(logger *zap.Logger, validator *validator.Validate, problemWriter *problem.HttpWriter, store Store) *Handler {
	return &Handler{
		logger:        logger,
		tracer:        otel.Tracer("comment/handler"),
		validator:     validator,
		problemWriter: problemWriter,
		store:         store,
	}
}

// CreateHandler serves POST /api/surveys/{id}/comments and POST /api/comments
func (h *Handler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "CreateHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	currentUser, ok := user.GetFromContext(traceCtx)
	if !ok {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrNoUserInContext, logger)
		return
	}

	var req CreateRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	surveyID := req.SurveyID
	if idStr := r.PathValue("id"); idStr != "" {
		id, err := handlerutil.ParseUUID(idStr)
		if err != nil {
			h.problemWriter.WriteError(traceCtx, w, err, logger)
			return
		}
		surveyID = id
	}
	if surveyID == uuid.Nil {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrInvalidSurveyID, logger)
		return
	}

	created, err := h.store.Create(traceCtx, surveyID, currentUser.ID, req.Content)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusCreated, ToResponse(created))
}

func (h *Handler) ListHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "ListHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	surveyID, err := handlerutil.ParseUUID(r.PathValue("id"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	comments, err := h.store.ListBySurveyID(traceCtx, surveyID)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	resp := make([]Response, len(comments))
	for i, c := range comments {
		resp[i] = ToResponse(c)
	}
	handlerutil.WriteJSONResponse(w, http.StatusOK, resp)
}
