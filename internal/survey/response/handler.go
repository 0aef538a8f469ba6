package response

import (
	"NYCU-SDC/survey-backend/internal"
	"NYCU-SDC/survey-backend/internal/survey"
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
	Submit(ctx context.Context, in SubmitInput) (Response, error)
	GetMine(ctx context.Context, surveyID, userID uuid.UUID) (WithAttributes, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]ListByUserIDRow, error)
}

type AttributeAnswerRequest struct {
	AttributeID uuid.UUID `json:"attributeId" validate:"required"`
	ChoiceID    uuid.UUID `json:"choiceId" validate:"required"`
}

type SubmitRequest struct {
	SurveyID   uuid.UUID                `json:"surveyId"`
	ChoiceID   uuid.UUID                `json:"choiceId" validate:"required"`
	Attributes []AttributeAnswerRequest `json:"attributes" validate:"dive"`
}

type AttributeAnswerResponse struct {
	AttributeID string `json:"attributeId"`
	ChoiceID    string `json:"choiceId"`
}

type SubmitResponse struct {
	ID         string                    `json:"id"`
	SurveyID   string                    `json:"surveyId"`
	ChoiceID   string                    `json:"choiceId"`
	CreatedAt  string                    `json:"createdAt"`
	Attributes []AttributeAnswerResponse `json:"attributes"`
}

type MyResponseSummary struct {
	ID             string `json:"id"`
	SurveyID       string `json:"surveyId"`
	SurveyTitle    string `json:"surveyTitle"`
	ChoiceID       string `json:"choiceId"`
	ChoiceText     string `json:"choiceText"`
	ChoiceImageURL string `json:"choiceImageUrl,omitempty"`
	VotingClosed   bool   `json:"votingClosed"`
	CreatedAt      string `json:"createdAt"`
}

type Handler struct {
	logger *zap.Logger
	tracer trace.Tracer

	validator     *validator.Validate
	problemWriter *problem.HttpWriter

	store Store
	now   func() time.Time
}

func NewHandler(logger *zap.Logger, validator *validator.Validate, problemWriter *problem.HttpWriter, store Store) *Handler {
	return &Handler{
		logger:        logger,
		tracer:        otel.Tracer("response/handler"),
		validator:     validator,
		problemWriter: problemWriter,
		store:         store,
		now:           time.Now,
	}
}

// SubmitHandler serves both POST /api/surveys/{id}/responses and POST /api/surveys/response;
// the path id wins over the body's surveyId when both are present
func (h *Handler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "SubmitHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	currentUser, ok := user.GetFromContext(traceCtx)
	if !ok {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrNoUserInContext, logger)
		return
	}

	var req SubmitRequest
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

	answers := make([]AttributeAnswer, len(req.Attributes))
	for i, a := range req.Attributes {
		answers[i] = AttributeAnswer{SettingID: a.AttributeID, ChoiceID: a.ChoiceID}
	}

	created, err := h.store.Submit(traceCtx, SubmitInput{
		SurveyID:   surveyID,
		UserID:     currentUser.ID,
		ChoiceID:   req.ChoiceID,
		Attributes: answers,
	})
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	attributes := make([]AttributeAnswerResponse, len(answers))
	for i, a := range answers {
		attributes[i] = AttributeAnswerResponse{AttributeID: a.SettingID.String(), ChoiceID: a.ChoiceID.String()}
	}

	handlerutil.WriteJSONResponse(w, http.StatusCreated, SubmitResponse{
		ID:         created.ID.String(),
		SurveyID:   created.SurveyID.String(),
		ChoiceID:   created.ChoiceID.String(),
		CreatedAt:  created.CreatedAt.Time.Format(time.RFC3339),
		Attributes: attributes,
	})
}

func (h *Handler) GetMineHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "GetMineHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	surveyID, err := handlerutil.ParseUUID(r.PathValue("id"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	currentUser, ok := user.GetFromContext(traceCtx)
	if !ok {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrNoUserInContext, logger)
		return
	}

	mine, err := h.store.GetMine(traceCtx, surveyID, currentUser.ID)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	attributes := make([]AttributeAnswerResponse, len(mine.Attributes))
	for i, a := range mine.Attributes {
		attributes[i] = AttributeAnswerResponse{AttributeID: a.AttributeSettingID.String(), ChoiceID: a.AttributeChoiceID.String()}
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, SubmitResponse{
		ID:         mine.Response.ID.String(),
		SurveyID:   mine.Response.SurveyID.String(),
		ChoiceID:   mine.Response.ChoiceID.String(),
		CreatedAt:  mine.Response.CreatedAt.Time.Format(time.RFC3339),
		Attributes: attributes,
	})
}

func (h *Handler) ListMineHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "ListMineHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	currentUser, ok := user.GetFromContext(traceCtx)
	if !ok {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrNoUserInContext, logger)
		return
	}

	rows, err := h.store.ListByUserID(traceCtx, currentUser.ID)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	now := h.now()
	summaries := make([]MyResponseSummary, len(rows))
	for i, row := range rows {
		summaries[i] = MyResponseSummary{
			ID:             row.ID.String(),
			SurveyID:       row.SurveyID.String(),
			SurveyTitle:    row.SurveyTitle,
			ChoiceID:       row.ChoiceID.String(),
			ChoiceText:     row.ChoiceText.String,
			ChoiceImageURL: row.ChoiceImageUrl.String,
			VotingClosed:   survey.IsVotingClosed(row.SurveyVotingEnd.Time, now),
			CreatedAt:      row.CreatedAt.Time.Format(time.RFC3339),
		}
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, summaries)
}
