package http

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/url-registry/internal/entity"
)

const statusError = "error"

// reservedShortCodes are single-segment static routes that take precedence over the resolve route.
var reservedShortCodes = map[string]struct{}{
	"ping":    {},
	"metrics": {},
	"shorten": {},
}

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails on an empty tag or a nil func.
	_ = validate.RegisterValidation("shortcode", func(fl validator.FieldLevel) bool {
		code := fl.Field().String()
		if _, ok := reservedShortCodes[code]; ok {
			return false
		}
		return code != "" && !strings.Contains(code, "/")
	})

	return validate
}

type shortenRequest struct {
	OriginalURL   string `json:"originalUrl" validate:"required"`
	CustomAlias   string `json:"customAlias,omitempty" validate:"omitempty,shortcode"`
	ExpiresInDays *int   `json:"expiresInDays,omitempty" validate:"omitempty,min=-36500,max=36500"`
}

func (req shortenRequest) toInput() entity.ShortenInput {
	in := entity.ShortenInput{
		OriginalURL: req.OriginalURL,
		CustomAlias: req.CustomAlias,
	}
	if req.ExpiresInDays != nil {
		in.ExpiresInDays = *req.ExpiresInDays
	}
	return in
}

type shortenResponse struct {
	OriginalURL string `json:"originalUrl"`
	ShortURL    string `json:"shortUrl"`
}

func toShortenResponse(url *entity.URL) shortenResponse {
	return shortenResponse{
		OriginalURL: url.OriginalURL,
		ShortURL:    url.ShortURL,
	}
}

type analyticsResponse struct {
	OriginalURL string     `json:"originalUrl"`
	ShortURL    string     `json:"shortUrl"`
	Clicks      int64      `json:"clicks"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

func toAnalyticsResponse(url *entity.URL) analyticsResponse {
	return analyticsResponse{
		OriginalURL: url.OriginalURL,
		ShortURL:    url.ShortURL,
		Clicks:      url.Clicks,
		CreatedAt:   url.CreatedAt,
		ExpiresAt:   url.ExpiresAt,
	}
}

type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
}

var (
	emptyRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "empty request body",
	}

	invalidRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "invalid request body",
	}

	aliasExistsResponse = errorResponse{
		Status:  statusError,
		Message: "custom alias already exists",
	}

	urlNotFoundResponse = errorResponse{
		Status:  statusError,
		Message: "url not found",
	}

	urlExpiredResponse = errorResponse{
		Status:  statusError,
		Message: "url has expired",
	}

	invalidExpirationResponse = errorResponse{
		Status:  statusError,
		Message: "expiration out of range",
	}

	shortenErrorResponse = errorResponse{
		Status:  statusError,
		Message: "error creating short url",
	}

	resolveErrorResponse = errorResponse{
		Status:  statusError,
		Message: "error redirecting to the original url",
	}

	analyticsErrorResponse = errorResponse{
		Status:  statusError,
		Message: "error fetching analytics",
	}
)

func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "url":
		return "invalid url"
	case "shortcode":
		return "must not contain '/' or be a reserved path"
	case "min", "max":
		return "must be between -36500 and 36500"
	default:
		return "invalid value"
	}
}

func validationErrorResponse(err error) errorResponse {
	var validationErrs []validationError

	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		for _, e := range errs {
			validationErrs = append(validationErrs, validationError{
				Field:   e.Field(),
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return errorResponse{
		Status:  statusError,
		Message: "validation error",
		Errors:  validationErrs,
	}
}
