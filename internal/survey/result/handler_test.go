package result

import (
	"NYCU-SDC/survey-backend/internal"
	"NYCU-SDC/survey-backend/internal/survey"
	"NYCU-SDC/survey-backend/internal/survey/response"
	"NYCU-SDC/survey-backend/internal/user"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, surveyID, viewerID uuid.UUID, attributeID *uuid.UUID) (survey.Definition, Result, error) {
	args := m.Called(ctx, surveyID, viewerID, attributeID)
	return args.Get(0).(survey.Definition), args.Get(1).(Result), args.Error(2)
}

func (m *mockStore) Export(ctx context.Context, surveyID, viewerID uuid.UUID) (survey.Definition, []byte, error) {
	args := m.Called(ctx, surveyID, viewerID)
	return args.Get(0).(survey.Definition), args.Get(1).([]byte), args.Error(2)
}

func newTestHandler(t *testing.T) (*Handler, *mockStore) {
	t.Helper()
	store := &mockStore{}
	h := NewHandler(zap.NewNop(), internal.NewProblemWriter(), store)
	h.tracer = noop.NewTracerProvider().Tracer("test")
	return h, store
}

func TestHandler_GetHandler(t *testing.T) {
	c := newColorSurvey()
	result := Compute(c.def, []response.WithAttributes{vote(c.red, c.teen), vote(c.red, c.adult), vote(c.blue, c.adult)})
	me := &user.User{ID: uuid.New()}

	testCases := []struct {
		name           string
		viewer         *user.User
		query          string
		setupMock      func(store *mockStore)
		expectedStatus int
	}{
		{
			name:   "signed in viewer",
			viewer: me,
			setupMock: func(store *mockStore) {
				store.On("Get", mock.Anything, c.def.Survey.ID, me.ID, (*uuid.UUID)(nil)).Return(c.def, result, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:  "anonymous viewer before close",
			query: "",
			setupMock: func(store *mockStore) {
				store.On("Get", mock.Anything, c.def.Survey.ID, uuid.Nil, (*uuid.UUID)(nil)).Return(survey.Definition{}, Result{}, internal.ErrResultsNotAvailable)
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:  "single attribute",
			query: "?attribute=" + c.age.String(),
			setupMock: func(store *mockStore) {
				store.On("Get", mock.Anything, c.def.Survey.ID, uuid.Nil, &c.age).Return(c.def, result, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "malformed attribute",
			query:          "?attribute=nope",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "unknown survey",
			query: "",
			setupMock: func(store *mockStore) {
				store.On("Get", mock.Anything, c.def.Survey.ID, uuid.Nil, (*uuid.UUID)(nil)).Return(survey.Definition{}, Result{}, internal.ErrSurveyNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h, store := newTestHandler(t)
			if tc.setupMock != nil {
				tc.setupMock(store)
			}

			req := httptest.NewRequest(http.MethodGet, "/api/surveys/"+c.def.Survey.ID.String()+"/results"+tc.query, nil)
			req.SetPathValue("id", c.def.Survey.ID.String())
			if tc.viewer != nil {
				req = req.WithContext(user.WithUser(req.Context(), tc.viewer))
			}
			rr := httptest.NewRecorder()

			h.GetHandler(rr, req)

			require.Equal(t, tc.expectedStatus, rr.Code, rr.Body.String())
			store.AssertExpectations(t)

			if rr.Code != http.StatusOK {
				return
			}
			var resp Response
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			require.Equal(t, 3, resp.Total)
			require.Equal(t, "Red", resp.Overall[0].Label)
			require.Equal(t, 66.7, resp.Overall[0].Percentage)
			require.Len(t, resp.CrossTabs, 1)
			require.Equal(t, "AGE", resp.CrossTabs[0].Type)
		})
	}
}

func TestHandler_ExportHandler(t *testing.T) {
	h, store := newTestHandler(t)
	me := &user.User{ID: uuid.New()}
	surveyID := uuid.New()
	data := []byte("PK\x03\x04workbook")

	store.On("Export", mock.Anything, surveyID, me.ID).Return(survey.Definition{}, data, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/surveys/"+surveyID.String()+"/results/export", nil)
	req.SetPathValue("id", surveyID.String())
	req = req.WithContext(user.WithUser(req.Context(), me))
	rr := httptest.NewRecorder()

	h.ExportHandler(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, xlsxContentType, rr.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename=survey-`+surveyID.String()+`-results.xlsx`, rr.Header().Get("Content-Disposition"))
	require.Equal(t, data, rr.Body.Bytes())
}

func TestHandler_ExportHandler_Errors(t *testing.T) {
	surveyID := uuid.New()

	testCases := []struct {
		name           string
		viewer         *user.User
		err            error
		expectedStatus int
	}{
		{name: "no session", expectedStatus: http.StatusUnauthorized},
		{name: "not the owner", viewer: &user.User{ID: uuid.New()}, err: internal.ErrPermissionDenied, expectedStatus: http.StatusForbidden},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h, store := newTestHandler(t)
			if tc.viewer != nil {
				store.On("Export", mock.Anything, surveyID, tc.viewer.ID).Return(survey.Definition{}, []byte(nil), tc.err)
			}

			req := httptest.NewRequest(http.MethodGet, "/api/surveys/"+surveyID.String()+"/results/export", nil)
			req.SetPathValue("id", surveyID.String())
			if tc.viewer != nil {
				req = req.WithContext(user.WithUser(req.Context(), tc.viewer))
			}
			rr := httptest.NewRecorder()

			h.ExportHandler(rr, req)

			require.Equal(t, tc.expectedStatus, rr.Code)
			store.AssertExpectations(t)
		})
	}
}
