package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/eaziurl/internal/events"
	"github.com/serroba/eaziurl/internal/handlers"
	"github.com/serroba/eaziurl/internal/messaging"
	"github.com/serroba/eaziurl/internal/middleware"
	"github.com/serroba/eaziurl/internal/shortener"
	"github.com/serroba/eaziurl/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testBaseURL = "http://localhost:8888"
	testURL     = "https://example.com/very/long/path"
)

var errBackend = errors.New("backend down")

// recorder collects published events.
type recorder struct {
	events []events.LinkEncodedEvent
	err    error
}

func (r *recorder) publish(_ context.Context, event *events.LinkEncodedEvent) error {
	r.events = append(r.events, *event)

	return r.err
}

// brokenService fails every call with a backend error.
type brokenService struct{}

func (brokenService) Encode(context.Context, shortener.EncodeRequest) (*shortener.Encoded, error) {
	return nil, errBackend
}

func (brokenService) Resolve(context.Context, shortener.Code) (string, error) {
	return "", errBackend
}

func (brokenService) ListLinks(context.Context, shortener.PrincipalID) iter.Seq2[shortener.Link, error] {
	return func(yield func(shortener.Link, error) bool) {
		yield(shortener.Link{}, errBackend)
	}
}

func (brokenService) RealURL(code shortener.Code) string {
	return testBaseURL + "/" + string(code)
}

func newService(t *testing.T) *shortener.Service {
	t.Helper()

	generate, err := shortener.NewKeyGenerator(shortener.DefaultCodeLength)
	require.NoError(t, err)

	return shortener.NewService(store.NewMemoryStore(), store.NopCache{}, generate, shortener.Config{
		BaseURL:     testBaseURL,
		DisplayBase: "eaziurl.fz/",
	}, zap.NewNop())
}

func newTestHandler(t *testing.T) (*handlers.LinkHandler, *recorder) {
	t.Helper()

	rec := &recorder{}

	return handlers.NewLinkHandler(newService(t), rec.publish, zap.NewNop()), rec
}

func encodeRequest(url, title string) *handlers.EncodeRequest {
	req := &handlers.EncodeRequest{}
	req.Body.URL = url
	req.Body.Title = title

	return req
}

func statusOf(t *testing.T, err error) int {
	t.Helper()

	var se huma.StatusError
	require.ErrorAs(t, err, &se)

	return se.GetStatus()
}

func TestEncode(t *testing.T) {
	t.Run("encodes url and publishes event", func(t *testing.T) {
		handler, rec := newTestHandler(t)
		ctx := handlers.ContextWithPrincipal(context.Background(), "alice")

		resp, err := handler.Encode(ctx, encodeRequest(testURL, "Docs"))

		require.NoError(t, err)
		assert.Len(t, resp.Body.Code, shortener.DefaultCodeLength)
		assert.Equal(t, testBaseURL+"/"+resp.Body.Code, resp.Body.RealURL)
		assert.Equal(t, "eaziurl.fz/"+resp.Body.Code, resp.Body.DisplayURL)
		assert.Equal(t, testURL, resp.Body.OriginalURL)
		assert.Equal(t, "Docs", resp.Body.Title)
		assert.Equal(t, resp.Body.RealURL, resp.Headers.Location)

		require.Len(t, rec.events, 1)
		assert.Equal(t, resp.Body.Code, rec.events[0].Code)
		assert.Equal(t, "alice", rec.events[0].Principal)
		assert.True(t, rec.events[0].Created)
		assert.False(t, rec.events[0].EncodedAt.IsZero())
	})

	t.Run("returns the same code on repeat", func(t *testing.T) {
		handler, rec := newTestHandler(t)

		first, err := handler.Encode(context.Background(), encodeRequest(testURL, ""))
		require.NoError(t, err)

		second, err := handler.Encode(context.Background(), encodeRequest(testURL, ""))
		require.NoError(t, err)

		assert.Equal(t, first.Body.Code, second.Body.Code)
		require.Len(t, rec.events, 2)
		assert.False(t, rec.events[1].Created)
	})

	t.Run("echoes the stored title on repeat without one", func(t *testing.T) {
		handler, rec := newTestHandler(t)
		ctx := handlers.ContextWithPrincipal(context.Background(), "alice")

		_, err := handler.Encode(ctx, encodeRequest(testURL, "Docs"))
		require.NoError(t, err)

		resp, err := handler.Encode(ctx, encodeRequest(testURL, ""))
		require.NoError(t, err)

		assert.Equal(t, "Docs", resp.Body.Title)
		require.Len(t, rec.events, 2)
		assert.Equal(t, "Docs", rec.events[1].Title)
	})

	t.Run("rejects invalid urls with 422", func(t *testing.T) {
		handler, rec := newTestHandler(t)

		resp, err := handler.Encode(context.Background(), encodeRequest("ftp://example.com", ""))

		assert.Nil(t, resp)
		assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))
		assert.Empty(t, rec.events)
	})

	t.Run("hides backend failures behind 500", func(t *testing.T) {
		handler := handlers.NewLinkHandler(brokenService{}, messaging.Discard[events.LinkEncodedEvent](), zap.NewNop())

		_, err := handler.Encode(context.Background(), encodeRequest(testURL, ""))

		assert.Equal(t, http.StatusInternalServerError, statusOf(t, err))
		assert.NotContains(t, err.Error(), errBackend.Error())
	})

	t.Run("succeeds when publish fails", func(t *testing.T) {
		rec := &recorder{err: errors.New("publish error")}
		handler := handlers.NewLinkHandler(newService(t), rec.publish, zap.NewNop())

		resp, err := handler.Encode(context.Background(), encodeRequest(testURL, ""))

		require.NoError(t, err)
		assert.NotEmpty(t, resp.Body.Code)
	})
}

func TestRedirect(t *testing.T) {
	t.Run("redirects with 302", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		created, err := handler.Encode(context.Background(), encodeRequest(testURL, ""))
		require.NoError(t, err)

		resp, err := handler.Redirect(context.Background(), &handlers.RedirectRequest{Code: created.Body.Code})

		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, resp.Status)
		assert.Equal(t, testURL, resp.Headers.Location)
	})

	t.Run("returns 404 for unknown code", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		resp, err := handler.Redirect(context.Background(), &handlers.RedirectRequest{Code: "nope00"})

		assert.Nil(t, resp)
		assert.Equal(t, http.StatusNotFound, statusOf(t, err))
	})

	t.Run("returns 500 on backend failure", func(t *testing.T) {
		handler := handlers.NewLinkHandler(brokenService{}, messaging.Discard[events.LinkEncodedEvent](), zap.NewNop())

		_, err := handler.Redirect(context.Background(), &handlers.RedirectRequest{Code: "abc123"})

		assert.Equal(t, http.StatusInternalServerError, statusOf(t, err))
	})
}

func TestListLinks(t *testing.T) {
	t.Run("requires a principal", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		_, err := handler.ListLinks(context.Background(), nil)

		assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	})

	t.Run("lists only the caller's links", func(t *testing.T) {
		handler, _ := newTestHandler(t)
		alice := handlers.ContextWithPrincipal(context.Background(), "alice")
		bob := handlers.ContextWithPrincipal(context.Background(), "bob")

		a, err := handler.Encode(alice, encodeRequest("https://example.com/a", "A"))
		require.NoError(t, err)

		_, err = handler.Encode(alice, encodeRequest("https://example.com/b", "B"))
		require.NoError(t, err)

		_, err = handler.Encode(bob, encodeRequest("https://example.com/a", "Bob's A"))
		require.NoError(t, err)

		resp, err := handler.ListLinks(alice, nil)

		require.NoError(t, err)
		require.Len(t, resp.Body, 2)
		assert.Equal(t, a.Body.Code, resp.Body[0].Code)
		assert.Equal(t, "A", resp.Body[0].Title)
		assert.Equal(t, a.Body.RealURL, resp.Body[0].RealURL)
		assert.Equal(t, "B", resp.Body[1].Title)

		resp, err = handler.ListLinks(bob, nil)

		require.NoError(t, err)
		require.Len(t, resp.Body, 1)
		assert.Equal(t, "Bob's A", resp.Body[0].Title)
	})

	t.Run("returns empty list for new principal", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		resp, err := handler.ListLinks(handlers.ContextWithPrincipal(context.Background(), "carol"), nil)

		require.NoError(t, err)
		assert.NotNil(t, resp.Body)
		assert.Empty(t, resp.Body)
	})

	t.Run("returns 500 on backend failure", func(t *testing.T) {
		handler := handlers.NewLinkHandler(brokenService{}, messaging.Discard[events.LinkEncodedEvent](), zap.NewNop())

		_, err := handler.ListLinks(handlers.ContextWithPrincipal(context.Background(), "alice"), nil)

		assert.Equal(t, http.StatusInternalServerError, statusOf(t, err))
	})
}

func TestRoutes(t *testing.T) {
	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))
	api.UseMiddleware(middleware.Principal(""))

	handler, _ := newTestHandler(t)
	handlers.RegisterRoutes(api, handler)

	post := func(body, principal string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/encode", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		if principal != "" {
			req.Header.Set(middleware.DefaultPrincipalHeader, principal)
		}

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		return w
	}

	w := post(`{"url":"`+testURL+`","title":"Docs"}`, "alice")
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Code    string `json:"code"`
		RealURL string `json:"realUrl"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, created.RealURL, w.Header().Get("Location"))

	t.Run("redirects", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/"+created.Code, nil))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, testURL, w.Header().Get("Location"))
	})

	t.Run("unknown code is 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope00", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	for _, path := range []string{"/%FF", "/abc%FF12", "/abc-12", "/" + strings.Repeat("a", 40)} {
		t.Run("malformed code "+path+" is 404", func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}

	t.Run("lists links for the header principal", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/links", nil)
		req.Header.Set(middleware.DefaultPrincipalHeader, "alice")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), created.Code)
		assert.Contains(t, w.Body.String(), `"title":"Docs"`)
	})

	t.Run("anonymous listing is 401", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/links", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("oversized body fields are 422", func(t *testing.T) {
		w := post(`{"url":"`+testURL+`","title":"`+strings.Repeat("t", 300)+`"}`, "")

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}
