package internal

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/google/uuid"
)

// ErrIncompleteAttributes lists the attribute settings a response left unanswered
type ErrIncompleteAttributes struct {
	MissingSettings []struct {
		Title string
		ID    uuid.UUID
	}
}

func (e ErrIncompleteAttributes) Error() string {
	missing := make([]string, len(e.MissingSettings))
	for i, setting := range e.MissingSettings {
		missing[i] = fmt.Sprintf("Title: %s, ID: %s", setting.Title, setting.ID.String())
	}

	return "response does not answer every attribute, missing: " + strings.Join(missing, "; ")
}

func (e ErrIncompleteAttributes) Is(target error) bool {
	_, ok := target.(ErrIncompleteAttributes)
	return ok
}

var (
	// Auth Errors
	ErrInvalidRefreshToken  = errors.New("invalid refresh token")
	ErrProviderNotFound     = errors.New("provider not found")
	ErrNewStateFailed       = errors.New("failed to create new jwt state")
	ErrOAuthError           = errors.New("failed to finish OAuth flow, OAuth error received")
	ErrInvalidExchangeToken = errors.New("invalid exchange token")
	ErrInvalidCallbackInfo  = errors.New("invalid callback info")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrUnauthorizedError    = errors.New("unauthorized error")
	ErrInternalServerError  = errors.New("internal server error")
	ErrForbiddenError       = errors.New("forbidden error")
	ErrNotFound             = errors.New("not found")

	// JWT Authentication Errors
	ErrMissingAuthHeader       = errors.New("missing access token")
	ErrInvalidAuthHeaderFormat = errors.New("invalid access token")
	ErrInvalidJWTToken         = errors.New("invalid JWT token")
	ErrInvalidAuthUser         = errors.New("invalid authenticated user")

	// User Errors
	ErrUserNotFound    = errors.New("user not found")
	ErrNoUserInContext = errors.New("no user found in request context")

	ErrInvalidRequestBody = errors.New("invalid request body")
	ErrValidationFailed   = errors.New("validation failed")

	// Survey Errors
	ErrSurveyNotFound        = errors.New("survey not found")
	ErrInvalidSurveyID       = errors.New("invalid survey id")
	ErrInvalidChoiceType     = errors.New("invalid choice type")
	ErrSurveyTitleRequired   = errors.New("survey title is required")
	ErrSurveyChoicesRequired = errors.New("survey needs at least one choice")
	ErrChoiceContentRequired = errors.New("choice needs text or an image")
	ErrChoiceImageMissing    = errors.New("choice is marked as having an image but no file was sent")
	ErrInvalidCustomAttr     = errors.New("custom attribute needs a title and at least one choice")
	ErrInvalidVotingEnd      = errors.New("voting end must be a future RFC 3339 timestamp")
	ErrImageUploadFailed     = errors.New("failed to upload choice image")
	ErrResultsNotAvailable   = errors.New("results are not available until you respond or voting closes")
	ErrAttributeNotFound     = errors.New("attribute setting not found on survey")

	// Response Errors
	ErrResponseNotFound       = errors.New("response not found")
	ErrAlreadyResponded       = errors.New("user already responded to this survey")
	ErrVotingClosed           = errors.New("voting for this survey has closed")
	ErrChoiceNotInSurvey      = errors.New("choice does not belong to the survey")
	ErrInvalidAttributeAnswer = errors.New("attribute answer does not match the survey attributes")

	// Comment Errors
	ErrCommentContentRequired = errors.New("comment content is required")

	// Thumbnail Errors
	ErrThumbnailTitleRequired = errors.New("thumbnail title is required")
	ErrThumbnailRenderFailed  = errors.New("failed to render thumbnail")

	// File Errors
	ErrFileNotFound       = errors.New("file not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum size")
	ErrInvalidFileID      = errors.New("invalid file ID")
	ErrInvalidMultipart   = errors.New("failed to parse multipart form")
	ErrFailedToSaveFile   = errors.New("failed to save file")
	ErrFailedToDeleteFile = errors.New("failed to delete file")
	ErrInvalidFileType    = errors.New("file type is not allowed")
	ErrInvalidImageFormat = errors.New("image format is invalid")
)

func NewProblemWriter() *problem.HttpWriter {
	return problem.NewWithMapping(ErrorHandler)
}

func newConflictProblem(detail string) problem.Problem {
	return problem.Problem{
		Type:   "https://developer.mozilla.org/en-US/docs/Web/HTTP/Status/409",
		Title:  "Conflict",
		Status: http.StatusConflict,
		Detail: detail,
	}
}

func ErrorHandler(err error) problem.Problem {
	switch {
	case errors.Is(err, ErrInvalidRefreshToken):
		return problem.NewNotFoundProblem("refresh token not found")
	case errors.Is(err, ErrProviderNotFound):
		return problem.NewNotFoundProblem("provider not found")
	case errors.Is(err, ErrInvalidExchangeToken):
		return problem.NewValidateProblem("invalid exchange token")
	case errors.Is(err, ErrInvalidCallbackInfo):
		return problem.NewValidateProblem("invalid callback info")
	case errors.Is(err, ErrOAuthError):
		return problem.NewBadRequestProblem(err.Error())
	case errors.Is(err, ErrPermissionDenied):
		return problem.NewForbiddenProblem("permission denied")
	case errors.Is(err, ErrUnauthorizedError):
		return problem.NewUnauthorizedProblem("unauthorized error")
	case errors.Is(err, ErrInternalServerError):
		return problem.NewInternalServerProblem("internal server error")
	case errors.Is(err, ErrForbiddenError):
		return problem.NewForbiddenProblem("forbidden error")
	case errors.Is(err, ErrNotFound):
		return problem.NewNotFoundProblem("not found")
	// JWT Authentication Errors
	case errors.Is(err, ErrMissingAuthHeader):
		return problem.NewUnauthorizedProblem("missing access token")
	case errors.Is(err, ErrInvalidAuthHeaderFormat):
		return problem.NewUnauthorizedProblem("invalid access token")
	case errors.Is(err, ErrInvalidJWTToken):
		return problem.NewUnauthorizedProblem("invalid JWT token")
	case errors.Is(err, ErrInvalidAuthUser):
		return problem.NewUnauthorizedProblem("invalid authenticated user")
	// User Errors
	case errors.Is(err, ErrUserNotFound):
		return problem.NewNotFoundProblem("user not found")
	case errors.Is(err, ErrNoUserInContext):
		return problem.NewUnauthorizedProblem("no user found in request context")

	case errors.Is(err, ErrInvalidRequestBody):
		return problem.NewBadRequestProblem("invalid request body")
	case errors.Is(err, ErrValidationFailed):
		return problem.NewValidateProblem("validation failed")

	// Survey Errors
	case errors.Is(err, ErrSurveyNotFound):
		return problem.NewNotFoundProblem("survey not found")
	case errors.Is(err, ErrInvalidSurveyID):
		return problem.NewBadRequestProblem("invalid survey id")
	case errors.Is(err, ErrInvalidChoiceType):
		return problem.NewValidateProblem("choice type must be one of TEXT_ONLY, TEXT_WITH_IMAGE, IMAGE_ONLY")
	case errors.Is(err, ErrSurveyTitleRequired):
		return problem.NewValidateProblem("survey title is required")
	case errors.Is(err, ErrSurveyChoicesRequired):
		return problem.NewValidateProblem("survey needs at least one choice")
	case errors.Is(err, ErrChoiceContentRequired):
		return problem.NewValidateProblem(err.Error())
	case errors.Is(err, ErrChoiceImageMissing):
		return problem.NewValidateProblem(err.Error())
	case errors.Is(err, ErrInvalidCustomAttr):
		return problem.NewValidateProblem(err.Error())
	case errors.Is(err, ErrInvalidVotingEnd):
		return problem.NewValidateProblem("voting end must be a future RFC 3339 timestamp")
	case errors.Is(err, ErrImageUploadFailed):
		return problem.NewInternalServerProblem("failed to upload choice image")
	case errors.Is(err, ErrResultsNotAvailable):
		return problem.NewForbiddenProblem("results are not available until you respond or voting closes")
	case errors.Is(err, ErrAttributeNotFound):
		return problem.NewNotFoundProblem("attribute setting not found on survey")

	// Response Errors
	case errors.Is(err, ErrResponseNotFound):
		return problem.NewNotFoundProblem("response not found")
	case errors.Is(err, ErrAlreadyResponded):
		return newConflictProblem("user already responded to this survey")
	case errors.Is(err, ErrVotingClosed):
		return problem.NewValidateProblem("voting for this survey has closed")
	case errors.Is(err, ErrChoiceNotInSurvey):
		return problem.NewValidateProblem("choice does not belong to the survey")
	case errors.Is(err, ErrInvalidAttributeAnswer):
		return problem.NewValidateProblem(err.Error())
	case errors.Is(err, ErrIncompleteAttributes{}):
		return problem.NewValidateProblem(err.Error())

	// Comment Errors
	case errors.Is(err, ErrCommentContentRequired):
		return problem.NewValidateProblem("comment content is required")

	// Thumbnail Errors
	case errors.Is(err, ErrThumbnailTitleRequired):
		return problem.NewBadRequestProblem("title query parameter is required")
	case errors.Is(err, ErrThumbnailRenderFailed):
		return problem.NewInternalServerProblem("failed to render thumbnail")

	// File Errors
	case errors.Is(err, ErrFileNotFound):
		return problem.NewNotFoundProblem("file not found")
	case errors.Is(err, ErrFileTooLarge):
		return problem.NewValidateProblem("file exceeds maximum size")
	case errors.Is(err, ErrInvalidFileID):
		return problem.NewBadRequestProblem("invalid file ID")
	case errors.Is(err, ErrInvalidMultipart):
		return problem.NewBadRequestProblem("failed to parse multipart form")
	case errors.Is(err, ErrFailedToSaveFile):
		return problem.NewInternalServerProblem("failed to save file")
	case errors.Is(err, ErrFailedToDeleteFile):
		return problem.NewInternalServerProblem("failed to delete file")
	case errors.Is(err, ErrInvalidFileType):
		return problem.NewValidateProblem("file type is not allowed")
	case errors.Is(err, ErrInvalidImageFormat):
		return problem.NewValidateProblem("image format is invalid")
	}
	return problem.Problem{}
}
