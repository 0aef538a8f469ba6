package result

import (
	"NYCU-SDC/survey-backend/internal"
	"NYCU-SDC/survey-backend/internal/survey"
	"NYCU-SDC/survey-backend/internal/user"
	"context"
	"mime"
	"net/http"
	"strconv"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Store interface {
	Get(ctx context.Context, surveyID, viewerID uuid.UUID, attributeID *uuid.UUID) (survey.Definition, Result, error)
	Export(ctx context.Context, surveyID, viewerID uuid.UUID) (survey.Definition, []byte, error)
}

type RowResponse struct {
	ChoiceID   string  `json:"choiceId"`
	Label      string  `json:"label"`
	ImageURL   string  `json:"imageUrl,omitempty"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type CellResponse struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type SegmentResponse struct {
	AttributeChoiceID string         `json:"attributeChoiceId"`
	Label             string         `json:"label"`
	Total             int            `json:"total"`
	Cells             []CellResponse `json:"cells"`
}

type ChartGroupResponse struct {
	AttributeChoiceID string        `json:"attributeChoiceId"`
	Label             string        `json:"label"`
	Bars              []RowResponse `json:"bars"`
}

type CrossTabResponse struct {
	AttributeID string               `json:"attributeId"`
	Title       string               `json:"title"`
	Type        string               `json:"type"`
	Choices     []RowResponse        `json:"choices"`
	Segments    []SegmentResponse    `json:"segments"`
	ChartGroups []ChartGroupResponse `json:"chartGroups"`
}

type Response struct {
	SurveyID  string             `json:"surveyId"`
	Title     string             `json:"title"`
	Total     int                `json:"total"`
	Overall   []RowResponse      `json:"overall"`
	CrossTabs []CrossTabResponse `json:"crossTabs"`
}

func toRowResponses(rows []Row) []RowResponse {
	out := make([]RowResponse, len(rows))
	for i, r := range rows {
		out[i] = RowResponse{
			ChoiceID:   r.ChoiceID.String(),
			Label:      r.Label,
			ImageURL:   r.ImageURL,
			Count:      r.Count,
			Percentage: r.Percentage,
		}
	}
	return out
}

func ToResponse(def survey.Definition, result Result) Response {
	crossTabs := make([]CrossTabResponse, len(result.CrossTabs))
	for i, tab := range result.CrossTabs {
		segments := make([]SegmentResponse, len(tab.Segments))
		for j, seg := range tab.Segments {
			cells := make([]CellResponse, len(seg.Cells))
			for k, c := range seg.Cells {
				cells[k] = CellResponse{Count: c.Count, Percentage: c.Percentage}
			}
			segments[j] = SegmentResponse{
				AttributeChoiceID: seg.AttributeChoiceID.String(),
				Label:             seg.Label,
				Total:             seg.Total,
				Cells:             cells,
			}
		}

		groups := make([]ChartGroupResponse, len(tab.ChartGroups))
		for j, g := range tab.ChartGroups {
			bars := make([]RowResponse, len(g.Bars))
			for k, b := range g.Bars {
				bars[k] = RowResponse{
					ChoiceID:   b.ChoiceID.String(),
					Label:      b.Label,
					Count:      b.Count,
					Percentage: b.Percentage,
				}
			}
			groups[j] = ChartGroupResponse{
				AttributeChoiceID: g.AttributeChoiceID.String(),
				Label:             g.Label,
				Bars:              bars,
			}
		}

		crossTabs[i] = CrossTabResponse{
			AttributeID: tab.SettingID.String(),
			Title:       tab.Title,
			Type:        survey.AttributeTypeToUppercase(tab.Type),
			Choices:     toRowResponses(tab.Choices),
			Segments:    segments,
			ChartGroups: groups,
		}
	}

	return Response{
		SurveyID:  def.Survey.ID.String(),
		Title:     def.Survey.Title,
		Total:     result.Total,
		Overall:   toRowResponses(result.Overall),
		CrossTabs: crossTabs,
	}
}

type Handler struct {
	logger        *zap.Logger
	tracer        trace.Tracer
	problemWriter *problem.HttpWriter
	store         Store
}

func NewHandler(logger *zap.Logger, problemWriter *problem.HttpWriter, store Store) *Handler {
	return &Handler{
		logger:        logger,
		tracer:        otel.Tracer("result/handler"),
		problemWriter: problemWriter,
		store:         store,
	}
}

// GetHandler works for anonymous callers too; visibility is decided by the service
func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "GetHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	surveyID, err := handlerutil.ParseUUID(r.PathValue("id"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var attributeID *uuid.UUID
	if raw := r.URL.Query().Get("attribute"); raw != "" {
		id, err := handlerutil.ParseUUID(raw)
		if err != nil {
			h.problemWriter.WriteError(traceCtx, w, err, logger)
			return
		}
		attributeID = &id
	}

	viewerID := uuid.Nil
	if currentUser, ok := user.GetFromContext(traceCtx); ok {
		viewerID = currentUser.ID
	}

	def, result, err := h.store.Get(traceCtx, surveyID, viewerID, attributeID)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, ToResponse(def, result))
}

func (h *Handler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "ExportHandler")
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

	_, data, err := h.store.Export(traceCtx, surveyID, currentUser.ID)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": "survey-" + surveyID.String() + "-results.xlsx",
	}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Warn("Failed to write results workbook", zap.Error(err))
	}
}
