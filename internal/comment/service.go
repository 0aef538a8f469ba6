package comment

import (
	"NYCU-SDC/survey-backend/internal"
	"NYCU-SDC/survey-backend/internal/database"
	"context"
	"strings"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const surveyForeignKey = "comments_survey_id_fkey"

type Querier interface {
	Create(ctx context.Context, arg CreateParams) (CreateRow, error)
	ListBySurveyID(ctx context.Context, surveyID uuid.UUID) ([]ListBySurveyIDRow, error)
}

type SurveyChecker interface {
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
}

// WithAuthor is a comment joined with its author's public profile
type WithAuthor ListBySurveyIDRow

type Service struct {
	logger  *zap.Logger
	queries Querier
	surveys SurveyChecker
	tracer  trace.Tracer
}

func NewService(logger *zap.Logger, db DBTX, surveys SurveyChecker) *Service {
	return &Service{
		logger:  logger,
		queries: New(db),
		surveys: surveys,
		tracer:  otel.Tracer("comment/service"),
	}
}

func (s *Service) Create(ctx context.Context, surveyID, userID uuid.UUID, content string) (WithAuthor, error) {
	traceCtx, span := s.tracer.Start(ctx, "Create")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	// stored as typed; clients escape on render
	content = strings.TrimSpace(content)
	if content == "" {
		return WithAuthor{}, internal.ErrCommentContentRequired
	}

	created, err := s.queries.Create(traceCtx, CreateParams{
		SurveyID: surveyID,
		UserID:   userID,
		Content:  content,
	})
	if err != nil {
		if database.IsForeignKeyViolation(err) && database.ConstraintName(err) == surveyForeignKey {
			return WithAuthor{}, internal.ErrSurveyNotFound
		}
		err = databaseutil.WrapDBErrorWithKeyValue(err, "comments", "survey_id", surveyID.String(), logger, "create comment")
		span.RecordError(err)
		return WithAuthor{}, err
	}

	logger.Info("Created comment",
		zap.String("comment_id", created.ID.String()),
		zap.String("survey_id", surveyID.String()),
		zap.String("user_id", userID.String()),
	)

	return WithAuthor(created), nil
}

// ListBySurveyID returns the comments of a survey, newest first
func (s *Service) ListBySurveyID(ctx context.Context, surveyID uuid.UUID) ([]WithAuthor, error) {
	traceCtx, span := s.tracer.Start(ctx, "ListBySurveyID")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	exists, err := s.surveys.ExistsByID(traceCtx, surveyID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !exists {
		return nil, internal.ErrSurveyNotFound
	}

	rows, err := s.queries.ListBySurveyID(traceCtx, surveyID)
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "comments", "survey_id", surveyID.String(), logger, "list comments by survey id")
		span.RecordError(err)
		return nil, err
	}

	comments := make([]WithAuthor, len(rows))
	for i, row := range rows {
		comments[i] = WithAuthor(row)
	}
	return comments, nil
}
