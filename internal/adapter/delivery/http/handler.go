package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/url-registry/docs"
	"github.com/vadimbarashkov/url-registry/internal/entity"
)

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "pong")
}

func handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(docs.SwaggerYAML)
}

// baseURL returns the scheme and host the client used to reach the service.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}

	return scheme + "://" + r.Host
}

type urlUseCase interface {
	Shorten(ctx context.Context, baseURL string, in entity.ShortenInput) (*entity.URL, error)
	Resolve(ctx context.Context, baseURL, shortCode string) (*entity.URL, error)
	GetAnalytics(ctx context.Context, baseURL, shortCode string) (*entity.URL, error)
}

type urlHandler struct {
	useCase  urlUseCase
	validate *validator.Validate
}

func newURLHandler(useCase urlUseCase, validate *validator.Validate) *urlHandler {
	return &urlHandler{
		useCase:  useCase,
		validate: validate,
	}
}

func (h *urlHandler) shorten(w http.ResponseWriter, r *http.Request) {
	var req shortenRequest

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, emptyRequestBodyResponse)
			return
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidRequestBodyResponse)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, validationErrorResponse(err))
		return
	}

	url, err := h.useCase.Shorten(r.Context(), baseURL(r), req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrAliasExists):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, aliasExistsResponse)
			return
		case errors.Is(err, entity.ErrInvalidExpiration):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, invalidExpirationResponse)
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, shortenErrorResponse)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toShortenResponse(url))
}

func (h *urlHandler) resolve(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	url, err := h.useCase.Resolve(r.Context(), baseURL(r), shortCode)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrURLNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, urlNotFoundResponse)
		case errors.Is(err, entity.ErrURLExpired):
			render.Status(r, http.StatusGone)
			render.JSON(w, r, urlExpiredResponse)
		default:
			httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resolveErrorResponse)
		}
		return
	}

	http.Redirect(w, r, url.OriginalURL, http.StatusFound)
}

func (h *urlHandler) getAnalytics(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	url, err := h.useCase.GetAnalytics(r.Context(), baseURL(r), shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrURLNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, urlNotFoundResponse)
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, analyticsErrorResponse)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toAnalyticsResponse(url))
}
