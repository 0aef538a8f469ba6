package response

import (
	"NYCU-SDC/survey-backend/internal"
	"NYCU-SDC/survey-backend/internal/database"
	"NYCU-SDC/survey-backend/internal/survey"
	"context"
	"errors"
	"fmt"
	"time"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// OneResponsePerUserConstraint is the store-level guard against duplicate responses
const OneResponsePerUserConstraint = "responses_survey_id_user_id_key"

type Querier interface {
	Create(ctx context.Context, arg CreateParams) (Response, error)
	CreateAttribute(ctx context.Context, arg CreateAttributeParams) error
	Exists(ctx context.Context, arg ExistsParams) (bool, error)
	GetBySurveyIDAndUserID(ctx context.Context, arg GetBySurveyIDAndUserIDParams) (Response, error)
	ListAttributesByResponseID(ctx context.Context, responseID uuid.UUID) ([]RespondentAttribute, error)
	ListBySurveyID(ctx context.Context, surveyID uuid.UUID) ([]Response, error)
	ListAttributesBySurveyID(ctx context.Context, surveyID uuid.UUID) ([]RespondentAttribute, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]ListByUserIDRow, error)
}

type Transactor interface {
	InTx(ctx context.Context, fn func(q Querier) error) error
}

type Pool interface {
	DBTX
	database.TxBeginner
}

type SurveyStore interface {
	GetDefinition(ctx context.Context, id uuid.UUID) (survey.Definition, error)
}

type poolTransactor struct {
	db database.TxBeginner
}

func (t poolTransactor) InTx(ctx context.Context, fn func(q Querier) error) error {
	return database.InTx(ctx, t.db, func(tx pgx.Tx) error {
		return fn(New(tx))
	})
}

// AttributeAnswer is one respondent's pick for one attribute setting
type AttributeAnswer struct {
	SettingID uuid.UUID
	ChoiceID  uuid.UUID
}

type SubmitInput struct {
	SurveyID   uuid.UUID
	UserID     uuid.UUID
	ChoiceID   uuid.UUID
	Attributes []AttributeAnswer
}

// WithAttributes is a response together with its attribute answers
type WithAttributes struct {
	Response   Response
	Attributes []RespondentAttribute
}

type Service struct {
	logger     *zap.Logger
	queries    Querier
	transactor Transactor
	surveys    SurveyStore
	now        func() time.Time
	tracer     trace.Tracer
}

func NewService(logger *zap.Logger, db Pool, surveys SurveyStore) *Service {
	return &Service{
		logger:     logger,
		queries:    New(db),
		transactor: poolTransactor{db: db},
		surveys:    surveys,
		now:        time.Now,
		tracer:     otel.Tracer("response/service"),
	}
}

// ValidateAttributes checks the answers against the survey's settings: every setting answered exactly once,
// no unknown settings, and every chosen attribute choice belonging to its setting.
// The answers are returned in setting order.
func ValidateAttributes(settings []survey.AttributeDefinition, answers []AttributeAnswer) ([]AttributeAnswer, error) {
	choicesBySetting := make(map[uuid.UUID]map[uuid.UUID]bool, len(settings))
	for _, setting := range settings {
		choices := make(map[uuid.UUID]bool, len(setting.Choices))
		for _, c := range setting.Choices {
			choices[c.ID] = true
		}
		choicesBySetting[setting.Setting.ID] = choices
	}

	picked := make(map[uuid.UUID]uuid.UUID, len(answers))
	for _, answer := range answers {
		choices, ok := choicesBySetting[answer.SettingID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown attribute setting %s", internal.ErrInvalidAttributeAnswer, answer.SettingID)
		}
		if _, dup := picked[answer.SettingID]; dup {
			return nil, fmt.Errorf("%w: attribute setting %s answered twice", internal.ErrInvalidAttributeAnswer, answer.SettingID)
		}
		if !choices[answer.ChoiceID] {
			return nil, fmt.Errorf("%w: choice %s is not part of attribute setting %s", internal.ErrInvalidAttributeAnswer, answer.ChoiceID, answer.SettingID)
		}
		picked[answer.SettingID] = answer.ChoiceID
	}

	var missing internal.ErrIncompleteAttributes
	ordered := make([]AttributeAnswer, 0, len(settings))
	for _, setting := range settings {
		choiceID, ok := picked[setting.Setting.ID]
		if !ok {
			missing.MissingSettings = append(missing.MissingSettings, struct {
				Title string
				ID    uuid.UUID
			}{Title: setting.Setting.Title, ID: setting.Setting.ID})
			continue
		}
		ordered = append(ordered, AttributeAnswer{SettingID: setting.Setting.ID, ChoiceID: choiceID})
	}
	if len(missing.MissingSettings) > 0 {
		return nil, missing
	}

	return ordered, nil
}

// Submit records a user's single response to a survey. The unique constraint on (survey_id, user_id)
// decides concurrent duplicates; the existence read beforehand only keeps the common case cheap.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Response, error) {
	traceCtx, span := s.tracer.Start(ctx, "Submit")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	def, err := s.surveys.GetDefinition(traceCtx, in.SurveyID)
	if err != nil {
		span.RecordError(err)
		return Response{}, err
	}

	// a respondent resubmitting gets a conflict whether or not voting has closed since
	exists, err := s.queries.Exists(traceCtx, ExistsParams{SurveyID: in.SurveyID, UserID: in.UserID})
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "check if response exists")
		span.RecordError(err)
		return Response{}, err
	}
	if exists {
		logger.Info("Rejected duplicate response",
			zap.String("survey_id", in.SurveyID.String()),
			zap.String("user_id", in.UserID.String()),
		)
		return Response{}, internal.ErrAlreadyResponded
	}

	if survey.IsVotingClosed(def.VotingEnd(), s.now()) {
		return Response{}, internal.ErrVotingClosed
	}

	if !def.HasChoice(in.ChoiceID) {
		return Response{}, fmt.Errorf("%w: %s", internal.ErrChoiceNotInSurvey, in.ChoiceID)
	}

	answers, err := ValidateAttributes(def.Attributes, in.Attributes)
	if err != nil {
		span.RecordError(err)
		return Response{}, err
	}

	var created Response
	err = s.transactor.InTx(traceCtx, func(q Querier) error {
		created, err = q.Create(traceCtx, CreateParams{
			SurveyID: in.SurveyID,
			UserID:   in.UserID,
			ChoiceID: in.ChoiceID,
		})
		if err != nil {
			return err
		}

		for _, answer := range answers {
			err = q.CreateAttribute(traceCtx, CreateAttributeParams{
				ResponseID:         created.ID,
				SurveyID:           in.SurveyID,
				AttributeSettingID: answer.SettingID,
				AttributeChoiceID:  answer.ChoiceID,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if database.IsUniqueViolation(err) && database.ConstraintName(err) == OneResponsePerUserConstraint {
			logger.Info("Lost duplicate response race",
				zap.String("survey_id", in.SurveyID.String()),
				zap.String("user_id", in.UserID.String()),
			)
			return Response{}, internal.ErrAlreadyResponded
		}
		err = databaseutil.WrapDBError(err, logger, "create response")
		span.RecordError(err)
		return Response{}, err
	}

	logger.Info("Recorded response",
		zap.String("response_id", created.ID.String()),
		zap.String("survey_id", in.SurveyID.String()),
		zap.String("user_id", in.UserID.String()),
	)

	return created, nil
}

func (s *Service) Exists(ctx context.Context, surveyID, userID uuid.UUID) (bool, error) {
	traceCtx, span := s.tracer.Start(ctx, "Exists")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	exists, err := s.queries.Exists(traceCtx, ExistsParams{SurveyID: surveyID, UserID: userID})
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "check if response exists")
		span.RecordError(err)
		return false, err
	}
	return exists, nil
}

func (s *Service) GetMine(ctx context.Context, surveyID, userID uuid.UUID) (WithAttributes, error) {
	traceCtx, span := s.tracer.Start(ctx, "GetMine")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	resp, err := s.queries.GetBySurveyIDAndUserID(traceCtx, GetBySurveyIDAndUserIDParams{SurveyID: surveyID, UserID: userID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WithAttributes{}, internal.ErrResponseNotFound
		}
		err = databaseutil.WrapDBErrorWithKeyValue(err, "responses", "survey_id", surveyID.String(), logger, "get response by survey and user")
		span.RecordError(err)
		return WithAttributes{}, err
	}

	attributes, err := s.queries.ListAttributesByResponseID(traceCtx, resp.ID)
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "respondent_attributes", "response_id", resp.ID.String(), logger, "list respondent attributes")
		span.RecordError(err)
		return WithAttributes{}, err
	}

	return WithAttributes{Response: resp, Attributes: attributes}, nil
}

// ListBySurveyID returns every response of a survey with its attribute answers attached
func (s *Service) ListBySurveyID(ctx context.Context, surveyID uuid.UUID) ([]WithAttributes, error) {
	traceCtx, span := s.tracer.Start(ctx, "ListBySurveyID")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	responses, err := s.queries.ListBySurveyID(traceCtx, surveyID)
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "responses", "survey_id", surveyID.String(), logger, "list responses by survey id")
		span.RecordError(err)
		return nil, err
	}

	attributes, err := s.queries.ListAttributesBySurveyID(traceCtx, surveyID)
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "respondent_attributes", "survey_id", surveyID.String(), logger, "list respondent attributes by survey id")
		span.RecordError(err)
		return nil, err
	}

	byResponse := make(map[uuid.UUID][]RespondentAttribute, len(responses))
	for _, a := range attributes {
		byResponse[a.ResponseID] = append(byResponse[a.ResponseID], a)
	}

	result := make([]WithAttributes, len(responses))
	for i, r := range responses {
		result[i] = WithAttributes{Response: r, Attributes: byResponse[r.ID]}
	}
	return result, nil
}

func (s *Service) ListByUserID(ctx context.Context, userID uuid.UUID) ([]ListByUserIDRow, error) {
	traceCtx, span := s.tracer.Start(ctx, "ListByUserID")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	rows, err := s.queries.ListByUserID(traceCtx, userID)
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "responses", "user_id", userID.String(), logger, "list responses by user id")
		span.RecordError(err)
		return nil, err
	}
	return rows, nil
}
