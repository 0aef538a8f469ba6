package survey

import (
	"NYCU-SDC/survey-backend/internal"
	"NYCU-SDC/survey-backend/internal/database"
	"NYCU-SDC/survey-backend/internal/file"
	"NYCU-SDC/survey-backend/internal/storage"
	"NYCU-SDC/survey-backend/internal/thumbnail"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	ViewResults = "results"
	ViewForm    = "form"
)

type Querier interface {
	Create(ctx context.Context, arg CreateParams) (Survey, error)
	CreateChoice(ctx context.Context, arg CreateChoiceParams) (Choice, error)
	CreateAttributeSetting(ctx context.Context, arg CreateAttributeSettingParams) (AttributeSetting, error)
	CreateAttributeChoice(ctx context.Context, arg CreateAttributeChoiceParams) (AttributeChoice, error)
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (GetByIDRow, error)
	ListChoicesBySurveyID(ctx context.Context, surveyID uuid.UUID) ([]Choice, error)
	ListAttributeSettingsBySurveyID(ctx context.Context, surveyID uuid.UUID) ([]AttributeSetting, error)
	ListAttributeChoicesBySurveyID(ctx context.Context, surveyID uuid.UUID) ([]AttributeChoice, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]ListByOwnerRow, error)
}

// Transactor runs fn against a Querier bound to a single transaction
type Transactor interface {
	InTx(ctx context.Context, fn func(q Querier) error) error
}

// Pool is what NewService needs from the database: plain queries plus transactions
type Pool interface {
	DBTX
	database.TxBeginner
}

type BlobStore interface {
	Upload(ctx context.Context, data []byte, filename, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

type poolTransactor struct {
	db database.TxBeginner
}

func (t poolTransactor) InTx(ctx context.Context, fn func(q Querier) error) error {
	return database.InTx(ctx, t.db, func(tx pgx.Tx) error {
		return fn(New(tx))
	})
}

type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ChoiceInput struct {
	Text  string
	Image *ImageUpload
}

type CustomAttributeInput struct {
	Title   string
	Choices []string
}

type AttributeInput struct {
	UseAge      bool
	UseGender   bool
	UseLocation bool
	Custom      []CustomAttributeInput
}

type CreateInput struct {
	Title      string
	ChoiceType ChoiceType
	Choices    []ChoiceInput
	Attributes AttributeInput
	VotingEnd  *time.Time
}

type AttributeDefinition struct {
	Setting AttributeSetting
	Choices []AttributeChoice
}

// Definition is a survey with everything needed to render it, ordered by position
type Definition struct {
	Survey     GetByIDRow
	Choices    []Choice
	Attributes []AttributeDefinition
}

func (d Definition) VotingEnd() time.Time {
	return d.Survey.VotingEnd.Time
}

func (d Definition) HasChoice(id uuid.UUID) bool {
	for _, c := range d.Choices {
		if c.ID == id {
			return true
		}
	}
	return false
}

type ViewerState struct {
	HasResponded bool
	IsOwner      bool
	VotingClosed bool
	View         string
}

// IsVotingClosed reports whether the deadline has been reached at now
func IsVotingClosed(votingEnd, now time.Time) bool {
	return !now.Before(votingEnd)
}

// NewViewerState decides whether a viewer sees the response form or the results.
// viewerID is uuid.Nil for anonymous viewers.
func NewViewerState(ownerID uuid.UUID, votingEnd time.Time, viewerID uuid.UUID, hasResponded bool, now time.Time) ViewerState {
	state := ViewerState{
		HasResponded: hasResponded,
		IsOwner:      viewerID != uuid.Nil && viewerID == ownerID,
		VotingClosed: IsVotingClosed(votingEnd, now),
		View:         ViewForm,
	}
	if state.VotingClosed || state.HasResponded || state.IsOwner {
		state.View = ViewResults
	}
	return state
}

type Service struct {
	logger              *zap.Logger
	queries             Querier
	transactor          Transactor
	blobs               BlobStore
	fileValidator       *file.Validator
	baseURL             string
	defaultVotingPeriod time.Duration
	maxImageSize        int64
	now                 func() time.Time
	tracer              trace.Tracer
}

func NewService(logger *zap.Logger, db Pool, blobs BlobStore, baseURL string, defaultVotingPeriod time.Duration, maxImageSize int64) *Service {
	return &Service{
		logger:              logger,
		queries:             New(db),
		transactor:          poolTransactor{db: db},
		blobs:               blobs,
		fileValidator:       file.NewValidator(),
		baseURL:             baseURL,
		defaultVotingPeriod: defaultVotingPeriod,
		maxImageSize:        maxImageSize,
		now:                 time.Now,
		tracer:              otel.Tracer("survey/service"),
	}
}

// Create validates the input, uploads choice images and then writes the survey with all of its
// choices and attributes in one transaction. Uploaded blobs are removed again if the write fails.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (Survey, error) {
	traceCtx, span := s.tracer.Start(ctx, "Create")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	now := s.now()
	votingEnd, err := s.validate(&in, now)
	if err != nil {
		span.RecordError(err)
		return Survey{}, err
	}

	images, err := s.validateImages(in)
	if err != nil {
		span.RecordError(err)
		return Survey{}, err
	}

	imageURLs, err := s.uploadImages(traceCtx, logger, ownerID, now, images)
	if err != nil {
		span.RecordError(err)
		return Survey{}, err
	}

	plan := attributePlan(in.Attributes)

	var created Survey
	err = s.transactor.InTx(traceCtx, func(q Querier) error {
		created, err = q.Create(traceCtx, CreateParams{
			Title:        in.Title,
			ChoiceType:   in.ChoiceType,
			OwnerID:      ownerID,
			ThumbnailUrl: pgtype.Text{String: thumbnail.URL(s.baseURL, in.Title), Valid: true},
			VotingEnd:    pgtype.Timestamptz{Time: votingEnd, Valid: true},
		})
		if err != nil {
			return err
		}

		for i, choice := range in.Choices {
			_, err = q.CreateChoice(traceCtx, CreateChoiceParams{
				SurveyID: created.ID,
				Text:     pgtype.Text{String: choice.Text, Valid: choice.Text != ""},
				ImageUrl: pgtype.Text{String: imageURLs[i], Valid: imageURLs[i] != ""},
				Position: int32(i),
			})
			if err != nil {
				return err
			}
		}

		for i, attr := range plan {
			setting, err := q.CreateAttributeSetting(traceCtx, CreateAttributeSettingParams{
				SurveyID: created.ID,
				Type:     attr.Type,
				Title:    attr.Title,
				Position: int32(i),
			})
			if err != nil {
				return err
			}

			for j, text := range attr.Choices {
				_, err = q.CreateAttributeChoice(traceCtx, CreateAttributeChoiceParams{
					AttributeSettingID: setting.ID,
					Text:               text,
					Position:           int32(j),
				})
				if err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		s.deleteUploads(traceCtx, logger, imageURLs)
		err = databaseutil.WrapDBError(err, logger, "create survey")
		span.RecordError(err)
		return Survey{}, err
	}

	logger.Info("Created survey",
		zap.String("survey_id", created.ID.String()),
		zap.String("owner_id", ownerID.String()),
		zap.Int("choices", len(in.Choices)),
		zap.Int("attributes", len(plan)),
	)

	return created, nil
}

// validate normalizes the input in place and returns the effective voting deadline
func (s *Service) validate(in *CreateInput, now time.Time) (time.Time, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return time.Time{}, internal.ErrSurveyTitleRequired
	}

	switch in.ChoiceType {
	case ChoiceTypeTextOnly, ChoiceTypeTextWithImage, ChoiceTypeImageOnly:
	default:
		return time.Time{}, internal.ErrInvalidChoiceType
	}

	if len(in.Choices) == 0 {
		return time.Time{}, internal.ErrSurveyChoicesRequired
	}

	for i := range in.Choices {
		choice := &in.Choices[i]
		choice.Text = strings.TrimSpace(choice.Text)
		if in.ChoiceType == ChoiceTypeTextOnly {
			choice.Image = nil
		}

		switch {
		case choice.Text == "" && choice.Image == nil:
			return time.Time{}, fmt.Errorf("%w: choice %d", internal.ErrChoiceContentRequired, i)
		case in.ChoiceType == ChoiceTypeImageOnly && choice.Image == nil:
			return time.Time{}, fmt.Errorf("%w: choice %d", internal.ErrChoiceImageMissing, i)
		}
	}

	for i := range in.Attributes.Custom {
		custom := &in.Attributes.Custom[i]
		custom.Title = strings.TrimSpace(custom.Title)
		if custom.Title == "" || len(custom.Choices) == 0 {
			return time.Time{}, fmt.Errorf("%w: custom attribute %d", internal.ErrInvalidCustomAttr, i)
		}
		for j := range custom.Choices {
			custom.Choices[j] = strings.TrimSpace(custom.Choices[j])
			if custom.Choices[j] == "" {
				return time.Time{}, fmt.Errorf("%w: custom attribute %d", internal.ErrInvalidCustomAttr, i)
			}
		}
	}

	if in.VotingEnd == nil {
		return now.Add(s.defaultVotingPeriod), nil
	}
	if !in.VotingEnd.After(now) {
		return time.Time{}, internal.ErrInvalidVotingEnd
	}
	return *in.VotingEnd, nil
}

// validateImages checks every attached image before anything is uploaded; the result is indexed like in.Choices
func (s *Service) validateImages(in CreateInput) ([]*ImageUpload, error) {
	images := make([]*ImageUpload, len(in.Choices))
	for i, choice := range in.Choices {
		if choice.Image == nil {
			continue
		}

		data, err := s.fileValidator.ValidateStream(
			bytes.NewReader(choice.Image.Data),
			choice.Image.ContentType,
			file.WithImageFormats(),
			file.WithMaxSize(s.maxImageSize),
		)
		if err != nil {
			return nil, fmt.Errorf("choice %d: %w", i, err)
		}

		images[i] = &ImageUpload{
			Filename:    choice.Image.Filename,
			ContentType: choice.Image.ContentType,
			Data:        data,
		}
	}
	return images, nil
}

func (s *Service) uploadImages(ctx context.Context, logger *zap.Logger, ownerID uuid.UUID, now time.Time, images []*ImageUpload) ([]string, error) {
	urls := make([]string, len(images))
	for i, image := range images {
		if image == nil {
			continue
		}

		url, err := s.blobs.Upload(ctx, image.Data, storage.ObjectName(ownerID, now, image.Filename), image.ContentType)
		if err != nil {
			logger.Error("Failed to upload choice image", zap.Int("choice_index", i), zap.Error(err))
			s.deleteUploads(ctx, logger, urls)
			return nil, fmt.Errorf("%w: %w", internal.ErrImageUploadFailed, err)
		}
		urls[i] = url
	}
	return urls, nil
}

func (s *Service) deleteUploads(ctx context.Context, logger *zap.Logger, urls []string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, url); err != nil {
			logger.Warn("Failed to delete orphaned choice image", zap.String("url", url), zap.Error(err))
		}
	}
}

func (s *Service) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	traceCtx, span := s.tracer.Start(ctx, "ExistsByID")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	exists, err := s.queries.ExistsByID(traceCtx, id)
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "surveys", "id", id.String(), logger, "check survey existence")
		span.RecordError(err)
		return false, err
	}
	return exists, nil
}

func (s *Service) GetDefinition(ctx context.Context, id uuid.UUID) (Definition, error) {
	traceCtx, span := s.tracer.Start(ctx, "GetDefinition")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	row, err := s.queries.GetByID(traceCtx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Definition{}, internal.ErrSurveyNotFound
		}
		err = databaseutil.WrapDBErrorWithKeyValue(err, "surveys", "id", id.String(), logger, "get survey by id")
		span.RecordError(err)
		return Definition{}, err
	}

	choices, err := s.queries.ListChoicesBySurveyID(traceCtx, id)
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "choices", "survey_id", id.String(), logger, "list survey choices")
		span.RecordError(err)
		return Definition{}, err
	}

	settings, err := s.queries.ListAttributeSettingsBySurveyID(traceCtx, id)
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "attribute_settings", "survey_id", id.String(), logger, "list survey attribute settings")
		span.RecordError(err)
		return Definition{}, err
	}

	attributeChoices, err := s.queries.ListAttributeChoicesBySurveyID(traceCtx, id)
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "attribute_choices", "survey_id", id.String(), logger, "list survey attribute choices")
		span.RecordError(err)
		return Definition{}, err
	}

	bySetting := make(map[uuid.UUID][]AttributeChoice, len(settings))
	for _, c := range attributeChoices {
		bySetting[c.AttributeSettingID] = append(bySetting[c.AttributeSettingID], c)
	}

	attributes := make([]AttributeDefinition, len(settings))
	for i, setting := range settings {
		attributes[i] = AttributeDefinition{
			Setting: setting,
			Choices: bySetting[setting.ID],
		}
	}

	return Definition{
		Survey:     row,
		Choices:    choices,
		Attributes: attributes,
	}, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]ListByOwnerRow, error) {
	traceCtx, span := s.tracer.Start(ctx, "ListByOwner")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	rows, err := s.queries.ListByOwner(traceCtx, ownerID)
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "surveys", "owner_id", ownerID.String(), logger, "list surveys by owner")
		span.RecordError(err)
		return nil, err
	}
	return rows, nil
}
