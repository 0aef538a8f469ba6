package survey

import (
	"NYCU-SDC/survey-backend/internal"
	"NYCU-SDC/survey-backend/internal/file"
	"NYCU-SDC/survey-backend/internal/storage"
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

var pngImage = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}

// memoryQuerier keeps rows in maps so a created survey can be read back
type memoryQuerier struct {
	surveys          map[uuid.UUID]Survey
	choices          []Choice
	settings         []AttributeSetting
	attributeChoices []AttributeChoice
	failOn           string
}

func newMemoryQuerier() *memoryQuerier {
	return &memoryQuerier{surveys: map[uuid.UUID]Survey{}}
}

var errInjected = errors.New("injected failure")

func (m *memoryQuerier) Create(_ context.Context, arg CreateParams) (Survey, error) {
	if m.failOn == "Create" {
		return Survey{}, errInjected
	}
	s := Survey{
		ID:           uuid.New(),
		Title:        arg.Title,
		ChoiceType:   arg.ChoiceType,
		OwnerID:      arg.OwnerID,
		ThumbnailUrl: arg.ThumbnailUrl,
		VotingEnd:    arg.VotingEnd,
		CreatedAt:    pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	m.surveys[s.ID] = s
	return s, nil
}

func (m *memoryQuerier) CreateChoice(_ context.Context, arg CreateChoiceParams) (Choice, error) {
	if m.failOn == "CreateChoice" {
		return Choice{}, errInjected
	}
	c := Choice{ID: uuid.New(), SurveyID: arg.SurveyID, Text: arg.Text, ImageUrl: arg.ImageUrl, Position: arg.Position}
	m.choices = append(m.choices, c)
	return c, nil
}

func (m *memoryQuerier) CreateAttributeSetting(_ context.Context, arg CreateAttributeSettingParams) (AttributeSetting, error) {
	if m.failOn == "CreateAttributeSetting" {
		return AttributeSetting{}, errInjected
	}
	s := AttributeSetting{ID: uuid.New(), SurveyID: arg.SurveyID, Type: arg.Type, Title: arg.Title, Position: arg.Position}
	m.settings = append(m.settings, s)
	return s, nil
}

func (m *memoryQuerier) CreateAttributeChoice(_ context.Context, arg CreateAttributeChoiceParams) (AttributeChoice, error) {
	c := AttributeChoice{ID: uuid.New(), AttributeSettingID: arg.AttributeSettingID, Text: arg.Text, Position: arg.Position}
	m.attributeChoices = append(m.attributeChoices, c)
	return c, nil
}

func (m *memoryQuerier) ExistsByID(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := m.surveys[id]
	return ok, nil
}

func (m *memoryQuerier) GetByID(_ context.Context, id uuid.UUID) (GetByIDRow, error) {
	s, ok := m.surveys[id]
	if !ok {
		return GetByIDRow{}, pgx.ErrNoRows
	}
	return GetByIDRow{
		ID:           s.ID,
		Title:        s.Title,
		ChoiceType:   s.ChoiceType,
		OwnerID:      s.OwnerID,
		ThumbnailUrl: s.ThumbnailUrl,
		VotingEnd:    s.VotingEnd,
		CreatedAt:    s.CreatedAt,
		OwnerName:    pgtype.Text{String: "owner", Valid: true},
	}, nil
}

func (m *memoryQuerier) ListChoicesBySurveyID(_ context.Context, surveyID uuid.UUID) ([]Choice, error) {
	var out []Choice
	for _, c := range m.choices {
		if c.SurveyID == surveyID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memoryQuerier) ListAttributeSettingsBySurveyID(_ context.Context, surveyID uuid.UUID) ([]AttributeSetting, error) {
	var out []AttributeSetting
	for _, s := range m.settings {
		if s.SurveyID == surveyID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memoryQuerier) ListAttributeChoicesBySurveyID(_ context.Context, surveyID uuid.UUID) ([]AttributeChoice, error) {
	settingPosition := map[uuid.UUID]int32{}
	for _, s := range m.settings {
		if s.SurveyID == surveyID {
			settingPosition[s.ID] = s.Position
		}
	}

	var out []AttributeChoice
	for _, c := range m.attributeChoices {
		if _, ok := settingPosition[c.AttributeSettingID]; ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := settingPosition[out[i].AttributeSettingID], settingPosition[out[j].AttributeSettingID]
		if pi != pj {
			return pi < pj
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (m *memoryQuerier) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]ListByOwnerRow, error) {
	var out []ListByOwnerRow
	for _, s := range m.surveys {
		if s.OwnerID == ownerID {
			out = append(out, ListByOwnerRow{ID: s.ID, Title: s.Title, ChoiceType: s.ChoiceType, CreatedAt: s.CreatedAt})
		}
	}
	return out, nil
}

// memoryTransactor discards every write made by fn when it fails
type memoryTransactor struct {
	queries *memoryQuerier
}

func (t memoryTransactor) InTx(ctx context.Context, fn func(q Querier) error) error {
	snapshot := *t.queries
	snapshot.surveys = map[uuid.UUID]Survey{}
	for k, v := range t.queries.surveys {
		snapshot.surveys[k] = v
	}

	if err := fn(t.queries); err != nil {
		*t.queries = snapshot
		return err
	}
	return nil
}

type mockBlobStore struct {
	mock.Mock
}

func (m *mockBlobStore) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	args := m.Called(ctx, data, filename, contentType)
	return args.String(0), args.Error(1)
}

func (m *mockBlobStore) Delete(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *memoryQuerier, *mockBlobStore) {
	t.Helper()
	queries := newMemoryQuerier()
	blobs := &mockBlobStore{}
	return &Service{
		logger:              zap.NewNop(),
		queries:             queries,
		transactor:          memoryTransactor{queries: queries},
		blobs:               blobs,
		fileValidator:       file.NewValidator(),
		baseURL:             "https://survey.example",
		defaultVotingPeriod: 24 * time.Hour,
		maxImageSize:        1 << 20,
		now:                 func() time.Time { return fixedNow },
		tracer:              noop.NewTracerProvider().Tracer("test"),
	}, queries, blobs
}

func TestService_Create_RoundTripKeepsOrder(t *testing.T) {
	s, _, _ := newTestService(t)
	owner := uuid.New()

	in := CreateInput{
		Title:      "Favorite color",
		ChoiceType: ChoiceTypeTextOnly,
		Choices:    []ChoiceInput{{Text: "Red"}, {Text: "Blue"}, {Text: "Green"}},
		Attributes: AttributeInput{
			UseAge:      true,
			UseLocation: true,
			Custom: []CustomAttributeInput{
				{Title: "Pet", Choices: []string{"Cat", "Dog"}},
				{Title: "Season", Choices: []string{"Spring", "Summer", "Autumn", "Winter"}},
			},
		},
	}

	created, err := s.Create(context.Background(), owner, in)
	require.NoError(t, err)
	require.Equal(t, "https://survey.example/api/thumbnail?title=Favorite+color", created.ThumbnailUrl.String)
	require.Equal(t, fixedNow.Add(24*time.Hour), created.VotingEnd.Time)

	def, err := s.GetDefinition(context.Background(), created.ID)
	require.NoError(t, err)

	texts := make([]string, len(def.Choices))
	for i, c := range def.Choices {
		texts[i] = c.Text.String
		require.False(t, c.ImageUrl.Valid)
	}
	require.Equal(t, []string{"Red", "Blue", "Green"}, texts)

	require.Len(t, def.Attributes, 4)
	expected := []struct {
		attrType AttributeType
		title    string
		choices  []string
	}{
		{AttributeTypeAge, AgePreset.Title, AgePreset.Choices},
		{AttributeTypeLocation, LocationPreset.Title, LocationPreset.Choices},
		{AttributeTypeCustom, "Pet", []string{"Cat", "Dog"}},
		{AttributeTypeCustom, "Season", []string{"Spring", "Summer", "Autumn", "Winter"}},
	}
	for i, attr := range def.Attributes {
		require.Equal(t, expected[i].attrType, attr.Setting.Type)
		require.Equal(t, expected[i].title, attr.Setting.Title)
		require.Equal(t, int32(i), attr.Setting.Position)

		got := make([]string, len(attr.Choices))
		for j, c := range attr.Choices {
			got[j] = c.Text
			require.Equal(t, int32(j), c.Position)
		}
		require.Equal(t, expected[i].choices, got)
	}
	require.Len(t, def.Attributes[1].Choices, 47)
}

func TestService_Create_UploadsImages(t *testing.T) {
	s, queries, blobs := newTestService(t)
	owner := uuid.New()

	blobs.On("Upload", mock.Anything, pngImage, mock.MatchedBy(func(name string) bool {
		return strings.HasPrefix(name, owner.String()+"_") && strings.HasSuffix(name, "_cat.png")
	}), "image/png").Return("https://cdn.example/cat.png", nil).Once()

	_, err := s.Create(context.Background(), owner, CreateInput{
		Title:      "Cute",
		ChoiceType: ChoiceTypeTextWithImage,
		Choices: []ChoiceInput{
			{Text: "Cat", Image: &ImageUpload{Filename: "cat.png", ContentType: "image/png", Data: pngImage}},
			{Text: "Dog"},
		},
	})
	require.NoError(t, err)

	require.Len(t, queries.choices, 2)
	require.Equal(t, "https://cdn.example/cat.png", queries.choices[0].ImageUrl.String)
	require.False(t, queries.choices[1].ImageUrl.Valid)
	blobs.AssertExpectations(t)
}

func TestService_Create_SameImageNamesDoNotOverwrite(t *testing.T) {
	s, queries, _ := newTestService(t)
	dir := t.TempDir()
	local, err := storage.NewLocalStorage(zap.NewNop(), dir, "https://survey.example")
	require.NoError(t, err)
	s.blobs = local

	red := append(append([]byte{}, pngImage...), 'R')
	blue := append(append([]byte{}, pngImage...), 'B')

	_, err = s.Create(context.Background(), uuid.New(), CreateInput{
		Title:      "Pasted images",
		ChoiceType: ChoiceTypeImageOnly,
		Choices: []ChoiceInput{
			{Image: &ImageUpload{Filename: "image.png", ContentType: "image/png", Data: red}},
			{Image: &ImageUpload{Filename: "image.png", ContentType: "image/png", Data: blue}},
		},
	})
	require.NoError(t, err)

	require.Len(t, queries.choices, 2)
	first, second := queries.choices[0].ImageUrl.String, queries.choices[1].ImageUrl.String
	require.NotEqual(t, first, second)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	for url, want := range map[string][]byte{first: red, second: blue} {
		stored, err := os.ReadFile(filepath.Join(dir, path.Base(url)))
		require.NoError(t, err)
		require.Equal(t, want, stored)
	}
}

func TestService_Create_DeletesUploadsWhenTransactionFails(t *testing.T) {
	s, queries, blobs := newTestService(t)
	queries.failOn = "CreateAttributeSetting"

	blobs.On("Upload", mock.Anything, pngImage, mock.Anything, "image/png").Return("https://cdn.example/a.png", nil).Once()
	blobs.On("Delete", mock.Anything, "https://cdn.example/a.png").Return(nil).Once()

	_, err := s.Create(context.Background(), uuid.New(), CreateInput{
		Title:      "Images",
		ChoiceType: ChoiceTypeImageOnly,
		Choices:    []ChoiceInput{{Image: &ImageUpload{Filename: "a.png", ContentType: "image/png", Data: pngImage}}},
		Attributes: AttributeInput{UseGender: true},
	})
	require.Error(t, err)

	require.Empty(t, queries.surveys)
	require.Empty(t, queries.choices)
	blobs.AssertExpectations(t)
}

func TestService_Create_UploadFailureRemovesEarlierUploads(t *testing.T) {
	s, queries, blobs := newTestService(t)

	blobs.On("Upload", mock.Anything, pngImage, mock.MatchedBy(func(name string) bool {
		return strings.HasSuffix(name, "_first.png")
	}), "image/png").Return("https://cdn.example/first.png", nil).Once()
	blobs.On("Upload", mock.Anything, pngImage, mock.MatchedBy(func(name string) bool {
		return strings.HasSuffix(name, "_second.png")
	}), "image/png").Return("", errors.New("bucket unavailable")).Once()
	blobs.On("Delete", mock.Anything, "https://cdn.example/first.png").Return(errors.New("already gone")).Once()

	_, err := s.Create(context.Background(), uuid.New(), CreateInput{
		Title:      "Images",
		ChoiceType: ChoiceTypeImageOnly,
		Choices: []ChoiceInput{
			{Image: &ImageUpload{Filename: "first.png", ContentType: "image/png", Data: pngImage}},
			{Image: &ImageUpload{Filename: "second.png", ContentType: "image/png", Data: pngImage}},
		},
	})
	require.ErrorIs(t, err, internal.ErrImageUploadFailed)
	require.Empty(t, queries.surveys)
	blobs.AssertExpectations(t)
}

func TestService_Create_Validation(t *testing.T) {
	past := fixedNow.Add(-time.Minute)
	future := fixedNow.Add(time.Hour)

	testCases := []struct {
		name        string
		input       CreateInput
		expectedErr error
	}{
		{
			name:        "blank title",
			input:       CreateInput{Title: "   ", ChoiceType: ChoiceTypeTextOnly, Choices: []ChoiceInput{{Text: "A"}}},
			expectedErr: internal.ErrSurveyTitleRequired,
		},
		{
			name:        "unknown choice type",
			input:       CreateInput{Title: "T", ChoiceType: "video", Choices: []ChoiceInput{{Text: "A"}}},
			expectedErr: internal.ErrInvalidChoiceType,
		},
		{
			name:        "no choices",
			input:       CreateInput{Title: "T", ChoiceType: ChoiceTypeTextOnly},
			expectedErr: internal.ErrSurveyChoicesRequired,
		},
		{
			name:        "empty choice",
			input:       CreateInput{Title: "T", ChoiceType: ChoiceTypeTextWithImage, Choices: []ChoiceInput{{Text: "A"}, {Text: " "}}},
			expectedErr: internal.ErrChoiceContentRequired,
		},
		{
			name:        "image only without image",
			input:       CreateInput{Title: "T", ChoiceType: ChoiceTypeImageOnly, Choices: []ChoiceInput{{Text: "A"}}},
			expectedErr: internal.ErrChoiceImageMissing,
		},
		{
			name: "custom attribute without title",
			input: CreateInput{Title: "T", ChoiceType: ChoiceTypeTextOnly, Choices: []ChoiceInput{{Text: "A"}},
				Attributes: AttributeInput{Custom: []CustomAttributeInput{{Title: "", Choices: []string{"x"}}}}},
			expectedErr: internal.ErrInvalidCustomAttr,
		},
		{
			name: "custom attribute without choices",
			input: CreateInput{Title: "T", ChoiceType: ChoiceTypeTextOnly, Choices: []ChoiceInput{{Text: "A"}},
				Attributes: AttributeInput{Custom: []CustomAttributeInput{{Title: "Pet"}}}},
			expectedErr: internal.ErrInvalidCustomAttr,
		},
		{
			name:        "voting end in the past",
			input:       CreateInput{Title: "T", ChoiceType: ChoiceTypeTextOnly, Choices: []ChoiceInput{{Text: "A"}}, VotingEnd: &past},
			expectedErr: internal.ErrInvalidVotingEnd,
		},
		{
			name:  "explicit future voting end",
			input: CreateInput{Title: "T", ChoiceType: ChoiceTypeTextOnly, Choices: []ChoiceInput{{Text: "A"}}, VotingEnd: &future},
		},
		{
			name: "invalid image bytes",
			input: CreateInput{Title: "T", ChoiceType: ChoiceTypeImageOnly,
				Choices: []ChoiceInput{{Image: &ImageUpload{Filename: "a.png", ContentType: "image/png", Data: []byte("not an image")}}}},
			expectedErr: internal.ErrInvalidImageFormat,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, queries, blobs := newTestService(t)

			created, err := s.Create(context.Background(), uuid.New(), tc.input)
			if tc.expectedErr != nil {
				require.ErrorIs(t, err, tc.expectedErr)
				require.Empty(t, queries.surveys)
				blobs.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			require.Equal(t, future, created.VotingEnd.Time)
		})
	}
}

func TestService_Create_TextOnlyDropsImages(t *testing.T) {
	s, queries, blobs := newTestService(t)

	_, err := s.Create(context.Background(), uuid.New(), CreateInput{
		Title:      "Text",
		ChoiceType: ChoiceTypeTextOnly,
		Choices:    []ChoiceInput{{Text: "A", Image: &ImageUpload{Filename: "a.png", ContentType: "image/png", Data: pngImage}}},
	})
	require.NoError(t, err)
	require.False(t, queries.choices[0].ImageUrl.Valid)
	blobs.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_GetDefinition_NotFound(t *testing.T) {
	s, _, _ := newTestService(t)

	_, err := s.GetDefinition(context.Background(), uuid.New())
	require.ErrorIs(t, err, internal.ErrSurveyNotFound)
}

func TestService_ListByOwner(t *testing.T) {
	s, _, _ := newTestService(t)
	owner := uuid.New()

	var ownedIDs []uuid.UUID
	for _, title := range []string{"Lunch", "Dinner"} {
		created, err := s.Create(context.Background(), owner, CreateInput{
			Title:      title,
			ChoiceType: ChoiceTypeTextOnly,
			Choices:    []ChoiceInput{{Text: "Ramen"}, {Text: "Curry"}},
		})
		require.NoError(t, err)
		ownedIDs = append(ownedIDs, created.ID)
	}
	other, err := s.Create(context.Background(), uuid.New(), CreateInput{
		Title:      "Breakfast",
		ChoiceType: ChoiceTypeTextOnly,
		Choices:    []ChoiceInput{{Text: "Toast"}},
	})
	require.NoError(t, err)

	rows, err := s.ListByOwner(context.Background(), owner)
	require.NoError(t, err)

	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	require.ElementsMatch(t, ownedIDs, ids)

	exists, err := s.ExistsByID(context.Background(), other.ID)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = s.ExistsByID(context.Background(), uuid.New())
	require.NoError(t, err)
	require.False(t, exists)
}

func TestNewViewerState(t *testing.T) {
	owner := uuid.New()
	viewer := uuid.New()
	open := fixedNow.Add(time.Hour)

	testCases := []struct {
		name         string
		viewerID     uuid.UUID
		votingEnd    time.Time
		hasResponded bool
		expected     ViewerState
	}{
		{
			name:      "anonymous while open",
			viewerID:  uuid.Nil,
			votingEnd: open,
			expected:  ViewerState{View: ViewForm},
		},
		{
			name:      "owner while open",
			viewerID:  owner,
			votingEnd: open,
			expected:  ViewerState{IsOwner: true, View: ViewResults},
		},
		{
			name:         "respondent while open",
			viewerID:     viewer,
			votingEnd:    open,
			hasResponded: true,
			expected:     ViewerState{HasResponded: true, View: ViewResults},
		},
		{
			name:      "deadline reached exactly",
			viewerID:  viewer,
			votingEnd: fixedNow,
			expected:  ViewerState{VotingClosed: true, View: ViewResults},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			state := NewViewerState(owner, tc.votingEnd, tc.viewerID, tc.hasResponded, fixedNow)
			require.Equal(t, tc.expected, state)
		})
	}
}
