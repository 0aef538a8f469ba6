package result

import (
	"NYCU-SDC/survey-backend/internal"
	"NYCU-SDC/survey-backend/internal/survey"
	"NYCU-SDC/survey-backend/internal/survey/response"
	"context"
	"time"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type SurveyStore interface {
	GetDefinition(ctx context.Context, id uuid.UUID) (survey.Definition, error)
}

type ResponseStore interface {
	ListBySurveyID(ctx context.Context, surveyID uuid.UUID) ([]response.WithAttributes, error)
}

type Service struct {
	logger    *zap.Logger
	surveys   SurveyStore
	responses ResponseStore
	now       func() time.Time
	tracer    trace.Tracer
}

func NewService(logger *zap.Logger, surveys SurveyStore, responses ResponseStore) *Service {
	return &Service{
		logger:    logger,
		surveys:   surveys,
		responses: responses,
		now:       time.Now,
		tracer:    otel.Tracer("result/service"),
	}
}

// CanView reports whether a viewer may see results: the owner and respondents always can,
// everyone else only once voting has closed
func CanView(def survey.Definition, responses []response.WithAttributes, viewerID uuid.UUID, now time.Time) bool {
	if survey.IsVotingClosed(def.VotingEnd(), now) {
		return true
	}
	if viewerID == uuid.Nil {
		return false
	}
	if def.Survey.OwnerID == viewerID {
		return true
	}
	for _, r := range responses {
		if r.Response.UserID == viewerID {
			return true
		}
	}
	return false
}

// Get computes the results of a survey for a viewer (uuid.Nil when anonymous). With attributeID set,
// only that setting is cross-tabulated.
func (s *Service) Get(ctx context.Context, surveyID, viewerID uuid.UUID, attributeID *uuid.UUID) (survey.Definition, Result, error) {
	traceCtx, span := s.tracer.Start(ctx, "Get")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	def, err := s.surveys.GetDefinition(traceCtx, surveyID)
	if err != nil {
		span.RecordError(err)
		return survey.Definition{}, Result{}, err
	}

	responses, err := s.responses.ListBySurveyID(traceCtx, surveyID)
	if err != nil {
		span.RecordError(err)
		return survey.Definition{}, Result{}, err
	}

	if !CanView(def, responses, viewerID, s.now()) {
		logger.Debug("Results hidden from viewer",
			zap.String("survey_id", surveyID.String()),
			zap.String("viewer_id", viewerID.String()),
		)
		return survey.Definition{}, Result{}, internal.ErrResultsNotAvailable
	}

	if attributeID != nil {
		selected, ok := findAttribute(def.Attributes, *attributeID)
		if !ok {
			return survey.Definition{}, Result{}, internal.ErrAttributeNotFound
		}
		def.Attributes = []survey.AttributeDefinition{selected}
	}

	return def, Compute(def, responses), nil
}

// Export renders the full results as an XLSX workbook; only the owner may export
func (s *Service) Export(ctx context.Context, surveyID, viewerID uuid.UUID) (survey.Definition, []byte, error) {
	traceCtx, span := s.tracer.Start(ctx, "Export")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	def, err := s.surveys.GetDefinition(traceCtx, surveyID)
	if err != nil {
		span.RecordError(err)
		return survey.Definition{}, nil, err
	}

	if def.Survey.OwnerID != viewerID {
		return survey.Definition{}, nil, internal.ErrPermissionDenied
	}

	responses, err := s.responses.ListBySurveyID(traceCtx, surveyID)
	if err != nil {
		span.RecordError(err)
		return survey.Definition{}, nil, err
	}

	data, err := Workbook(def.Survey.Title, Compute(def, responses))
	if err != nil {
		logger.Error("Failed to build results workbook", zap.String("survey_id", surveyID.String()), zap.Error(err))
		span.RecordError(err)
		return survey.Definition{}, nil, err
	}

	return def, data, nil
}

func findAttribute(attributes []survey.AttributeDefinition, id uuid.UUID) (survey.AttributeDefinition, bool) {
	for _, a := range attributes {
		if a.Setting.ID == id {
			return a, true
		}
	}
	return survey.AttributeDefinition{}, false
}
