package survey

import (
	"NYCU-SDC/survey-backend/internal"
	"NYCU-SDC/survey-backend/internal/user"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
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

const (
	maxMultipartMemory int64 = 32 << 20
	maxRequestBytes    int64 = 64 << 20
)

type Store interface {
	Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (Survey, error)
	GetDefinition(ctx context.Context, id uuid.UUID) (Definition, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]ListByOwnerRow, error)
}

type ResponseChecker interface {
	Exists(ctx context.Context, surveyID, userID uuid.UUID) (bool, error)
}

type choiceField struct {
	Text string          `json:"text"`
	File json.RawMessage `json:"file"`
}

type customAttributeField struct {
	Title   string `json:"title"`
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

type attributesField struct {
	UseAge           bool                   `json:"useAge"`
	UseGender        bool                   `json:"useGender"`
	UseLocation      bool                   `json:"useLocation"`
	CustomAttributes []customAttributeField `json:"customAttributes"`
}

type CreateResponse struct {
	SurveyID     string `json:"surveyId"`
	ShareURL     string `json:"shareUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

type ChoiceResponse struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl,omitempty"`
	Order    int32  `json:"order"`
}

type AttributeChoiceResponse struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Order int32  `json:"order"`
}

type AttributeResponse struct {
	ID      string                    `json:"id"`
	Type    string                    `json:"type"`
	Title   string                    `json:"title"`
	Order   int32                     `json:"order"`
	Choices []AttributeChoiceResponse `json:"choices"`
}

type ViewerResponse struct {
	HasResponded bool   `json:"hasResponded"`
	IsOwner      bool   `json:"isOwner"`
	VotingClosed bool   `json:"votingClosed"`
	View         string `json:"view"`
}

type Response struct {
	ID            string               `json:"id"`
	Title         string               `json:"title"`
	ChoiceType    string               `json:"choiceType"`
	ThumbnailURL  string               `json:"thumbnailUrl"`
	ShareURL      string               `json:"shareUrl"`
	VotingEnd     string               `json:"votingEnd"`
	CreatedAt     string               `json:"createdAt"`
	ResponseCount int64                `json:"responseCount"`
	Owner         user.ProfileResponse `json:"owner"`
	Choices       []ChoiceResponse     `json:"choices"`
	Attributes    []AttributeResponse  `json:"attributes"`
	Viewer        ViewerResponse       `json:"viewer"`
}

type SummaryResponse struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	ChoiceType    string `json:"choiceType"`
	ThumbnailURL  string `json:"thumbnailUrl"`
	VotingEnd     string `json:"votingEnd"`
	CreatedAt     string `json:"createdAt"`
	ResponseCount int64  `json:"responseCount"`
}

// ChoiceTypeToUppercase converts the database enum to the API format
func ChoiceTypeToUppercase(c ChoiceType) string {
	switch c {
	case ChoiceTypeTextOnly:
		return "TEXT_ONLY"
	case ChoiceTypeTextWithImage:
		return "TEXT_WITH_IMAGE"
	case ChoiceTypeImageOnly:
		return "IMAGE_ONLY"
	default:
		return string(c)
	}
}

// AttributeTypeToUppercase converts the database enum to the API format
func AttributeTypeToUppercase(a AttributeType) string {
	return strings.ToUpper(string(a))
}

// ShareURL is the public page of a survey
func ShareURL(baseURL string, id uuid.UUID) string {
	return strings.TrimRight(baseURL, "/") + "/survey/" + id.String()
}

func ToResponse(def Definition, viewer ViewerState, baseURL string) Response {
	row := def.Survey

	choices := make([]ChoiceResponse, len(def.Choices))
	for i, c := range def.Choices {
		choices[i] = ChoiceResponse{
			ID:       c.ID.String(),
			Text:     c.Text.String,
			ImageURL: c.ImageUrl.String,
			Order:    c.Position,
		}
	}

	attributes := make([]AttributeResponse, len(def.Attributes))
	for i, a := range def.Attributes {
		attrChoices := make([]AttributeChoiceResponse, len(a.Choices))
		for j, c := range a.Choices {
			attrChoices[j] = AttributeChoiceResponse{
				ID:    c.ID.String(),
				Text:  c.Text,
				Order: c.Position,
			}
		}
		attributes[i] = AttributeResponse{
			ID:      a.Setting.ID.String(),
			Type:    AttributeTypeToUppercase(a.Setting.Type),
			Title:   a.Setting.Title,
			Order:   a.Setting.Position,
			Choices: attrChoices,
		}
	}

	return Response{
		ID:            row.ID.String(),
		Title:         row.Title,
		ChoiceType:    ChoiceTypeToUppercase(row.ChoiceType),
		ThumbnailURL:  row.ThumbnailUrl.String,
		ShareURL:      ShareURL(baseURL, row.ID),
		VotingEnd:     row.VotingEnd.Time.Format(time.RFC3339),
		CreatedAt:     row.CreatedAt.Time.Format(time.RFC3339),
		ResponseCount: row.ResponseCount,
		Owner:         user.NewProfileResponse(row.OwnerID, row.OwnerName, row.OwnerAvatarUrl, row.OwnerExternalHandle),
		Choices:       choices,
		Attributes:    attributes,
		Viewer: ViewerResponse{
			HasResponded: viewer.HasResponded,
			IsOwner:      viewer.IsOwner,
			VotingClosed: viewer.VotingClosed,
			View:         viewer.View,
		},
	}
}

type Handler struct {
	logger *zap.Logger
	tracer trace.Tracer

	validator     *validator.Validate
	problemWriter *problem.HttpWriter

	store     Store
	responses ResponseChecker
	baseURL   string
	now       func() time.Time
}

func NewHandler(
	logger *zap.Logger,
	validator *validator.Validate,
	problemWriter *problem.HttpWriter,
	store Store,
	responses ResponseChecker,
	baseURL string,
) *Handler {
	return &Handler{
		logger:        logger,
		tracer:        otel.Tracer("survey/handler"),
		validator:     validator,
		problemWriter: problemWriter,
		store:         store,
		responses:     responses,
		baseURL:       baseURL,
		now:           time.Now,
	}
}

func (h *Handler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "CreateHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	currentUser, ok := user.GetFromContext(traceCtx)
	if !ok {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrNoUserInContext, logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrInvalidMultipart, logger)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logger.Warn("Failed to remove multipart temp files", zap.Error(err))
		}
	}()

	in, err := h.parseCreateForm(r)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	created, err := h.store.Create(traceCtx, currentUser.ID, in)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusCreated, CreateResponse{
		SurveyID:     created.ID.String(),
		ShareURL:     ShareURL(h.baseURL, created.ID),
		ThumbnailURL: created.ThumbnailUrl.String,
	})
}

func (h *Handler) parseCreateForm(r *http.Request) (CreateInput, error) {
	choiceType := r.FormValue("choiceType")
	if err := h.validator.Var(choiceType, "required,choice_type"); err != nil {
		return CreateInput{}, internal.ErrInvalidChoiceType
	}

	in := CreateInput{
		Title:      r.FormValue("title"),
		ChoiceType: ChoiceType(strings.ToLower(choiceType)),
	}

	var choices []choiceField
	if raw := r.FormValue("choices"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &choices); err != nil {
			return CreateInput{}, fmt.Errorf("%w: choices: %v", internal.ErrInvalidRequestBody, err)
		}
	}

	in.Choices = make([]ChoiceInput, len(choices))
	for i, c := range choices {
		in.Choices[i] = ChoiceInput{Text: c.Text}
		if !wantsFile(c.File) {
			continue
		}

		image, err := readImagePart(r, fmt.Sprintf("file_%d", i))
		if err != nil {
			return CreateInput{}, fmt.Errorf("%w: choice %d", internal.ErrChoiceImageMissing, i)
		}
		in.Choices[i].Image = image
	}

	if raw := r.FormValue("attributes"); raw != "" {
		var attrs attributesField
		if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
			return CreateInput{}, fmt.Errorf("%w: attributes: %v", internal.ErrInvalidRequestBody, err)
		}

		in.Attributes = AttributeInput{
			UseAge:      attrs.UseAge,
			UseGender:   attrs.UseGender,
			UseLocation: attrs.UseLocation,
			Custom:      make([]CustomAttributeInput, len(attrs.CustomAttributes)),
		}
		for i, custom := range attrs.CustomAttributes {
			texts := make([]string, len(custom.Choices))
			for j, c := range custom.Choices {
				texts[j] = c.Text
			}
			in.Attributes.Custom[i] = CustomAttributeInput{Title: custom.Title, Choices: texts}
		}
	}

	if raw := r.FormValue("votingEnd"); raw != "" {
		votingEnd, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return CreateInput{}, internal.ErrInvalidVotingEnd
		}
		in.VotingEnd = &votingEnd
	}

	return in, nil
}

// wantsFile treats any non-empty, non-null, non-false "file" value as a request to attach an image
func wantsFile(raw json.RawMessage) bool {
	v := string(bytes.TrimSpace(raw))
	return v != "" && v != "null" && v != "false"
}

func readImagePart(r *http.Request, field string) (*ImageUpload, error) {
	part, header, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = part.Close()
	}()

	data, err := io.ReadAll(part)
	if err != nil {
		return nil, err
	}

	return &ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "GetHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("id"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	def, err := h.store.GetDefinition(traceCtx, id)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	viewerID := uuid.Nil
	hasResponded := false
	if currentUser, ok := user.GetFromContext(traceCtx); ok {
		viewerID = currentUser.ID
		hasResponded, err = h.responses.Exists(traceCtx, id, currentUser.ID)
		if err != nil {
			h.problemWriter.WriteError(traceCtx, w, err, logger)
			return
		}
	}

	viewer := NewViewerState(def.Survey.OwnerID, def.VotingEnd(), viewerID, hasResponded, h.now())
	handlerutil.WriteJSONResponse(w, http.StatusOK, ToResponse(def, viewer, h.baseURL))
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

	rows, err := h.store.ListByOwner(traceCtx, currentUser.ID)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	responses := make([]SummaryResponse, len(rows))
	for i, row := range rows {
		responses[i] = SummaryResponse{
			ID:            row.ID.String(),
			Title:         row.Title,
			ChoiceType:    ChoiceTypeToUppercase(row.ChoiceType),
			ThumbnailURL:  row.ThumbnailUrl.String,
			VotingEnd:     row.VotingEnd.Time.Format(time.RFC3339),
			CreatedAt:     row.CreatedAt.Time.Format(time.RFC3339),
			ResponseCount: row.ResponseCount,
		}
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, responses)
}
