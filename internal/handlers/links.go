package handlers

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/eaziurl/internal/events"
	"github.com/serroba/eaziurl/internal/messaging"
	"github.com/serroba/eaziurl/internal/shortener"
	"go.uber.org/zap"
)

// Shortener is the part of shortener.Service the HTTP surface depends on.
type Shortener interface {
	Encode(ctx context.Context, req shortener.EncodeRequest) (*shortener.Encoded, error)
	Resolve(ctx context.Context, code shortener.Code) (string, error)
	ListLinks(ctx context.Context, principal shortener.PrincipalID) iter.Seq2[shortener.Link, error]
	RealURL(code shortener.Code) string
}

// LinkHandler handles encode, redirect and listing requests.
type LinkHandler struct {
	service       Shortener
	publishEncode messaging.Publish[events.LinkEncodedEvent]
	logger        *zap.Logger
}

// NewLinkHandler creates a new link handler.
func NewLinkHandler(
	service Shortener,
	publishEncode messaging.Publish[events.LinkEncodedEvent],
	logger *zap.Logger,
) *LinkHandler {
	return &LinkHandler{
		service:       service,
		publishEncode: publishEncode,
		logger:        logger,
	}
}

type principalKey struct{}

// ContextWithPrincipal adds the authenticated principal to ctx.
func ContextWithPrincipal(ctx context.Context, principal shortener.PrincipalID) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFromContext returns the authenticated principal, or the anonymous one.
func PrincipalFromContext(ctx context.Context) shortener.PrincipalID {
	if v, ok := ctx.Value(principalKey{}).(shortener.PrincipalID); ok {
		return v
	}

	return ""
}

func (h *LinkHandler) Encode(ctx context.Context, req *EncodeRequest) (*EncodeResponse, error) {
	principal := PrincipalFromContext(ctx)

	out, err := h.service.Encode(ctx, shortener.EncodeRequest{
		LongURL:   req.Body.URL,
		Title:     req.Body.Title,
		Principal: principal,
	})
	if err != nil {
		return nil, h.failure(err, "failed to encode url")
	}

	event := &events.LinkEncodedEvent{
		Code:        string(out.Code),
		OriginalURL: out.LongURL,
		Principal:   string(principal),
		Title:       out.Title,
		Created:     out.Created,
		EncodedAt:   time.Now().UTC(),
	}

	if err := h.publishEncode(ctx, event); err != nil {
		h.logger.Error("failed to publish encode event",
			zap.String("code", event.Code),
			zap.Error(err),
		)
	}

	resp := &EncodeResponse{}
	resp.Headers.Location = out.RealURL
	resp.Body.Code = string(out.Code)
	resp.Body.RealURL = out.RealURL
	resp.Body.DisplayURL = out.DisplayURL
	resp.Body.OriginalURL = out.LongURL
	resp.Body.Title = out.Title

	return resp, nil
}

func (h *LinkHandler) Redirect(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	longURL, err := h.service.Resolve(ctx, shortener.Code(req.Code))
	if err != nil {
		return nil, h.failure(err, "failed to resolve url")
	}

	resp := &RedirectResponse{Status: http.StatusFound}
	resp.Headers.Location = longURL

	return resp, nil
}

func (h *LinkHandler) ListLinks(ctx context.Context, _ *struct{}) (*ListLinksResponse, error) {
	principal := PrincipalFromContext(ctx)
	if principal.Anonymous() {
		return nil, huma.Error401Unauthorized("principal required")
	}

	resp := &ListLinksResponse{Body: []LinkItem{}}

	for link, err := range h.service.ListLinks(ctx, principal) {
		if err != nil {
			return nil, h.failure(err, "failed to list links")
		}

		resp.Body = append(resp.Body, LinkItem{
			OriginalURL: link.Mapping.LongURL,
			Code:        string(link.Mapping.Code),
			Title:       link.Title,
			CreatedAt:   link.Mapping.CreatedAt,
			RealURL:     h.service.RealURL(link.Mapping.Code),
		})
	}

	return resp, nil
}

// failure maps service errors onto HTTP errors.
func (h *LinkHandler) failure(err error, msg string) error {
	switch {
	case errors.Is(err, shortener.ErrInvalidURL), errors.Is(err, shortener.ErrInvalidTitle):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, shortener.ErrNotFound):
		return huma.Error404NotFound("short url not found")
	default:
		h.logger.Error(msg, zap.Error(err))

		return huma.Error500InternalServerError(msg)
	}
}
