package user

import (
	"NYCU-SDC/survey-backend/internal"
	"context"
	"net/http"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
}

// ProfileResponse is the public view of a user, attached to surveys and comments
type ProfileResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	AvatarURL      string `json:"avatarUrl"`
	ExternalHandle string `json:"externalHandle,omitempty"`
}

func NewProfileResponse(id uuid.UUID, name, avatarUrl, externalHandle pgtype.Text) ProfileResponse {
	return ProfileResponse{
		ID:             id.String(),
		Name:           name.String,
		AvatarURL:      avatarUrl.String,
		ExternalHandle: externalHandle.String,
	}
}

type Handler struct {
	logger        *zap.Logger
	validator     *validator.Validate
	problemWriter *problem.HttpWriter
	store         Store
	tracer        trace.Tracer
}

func NewHandler(logger *zap.Logger, validator *validator.Validate, problemWriter *problem.HttpWriter, store Store) *Handler {
	return &Handler{
		logger:        logger,
		validator:     validator,
		problemWriter: problemWriter,
		store:         store,
		tracer:        otel.Tracer("user/handler"),
	}
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "GetMe")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	currentUser, ok := GetFromContext(traceCtx)
	if !ok {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrNoUserInContext, logger)
		return
	}

	u, err := h.store.GetByID(traceCtx, currentUser.ID)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, NewProfileResponse(u.ID, u.Name, u.AvatarUrl, u.ExternalHandle))
}
