package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/auth"
	"github.com/starford/folio/internal/blogservice"
)

// failJSON maps a service error to a JSON error response.
func (s *Server) failJSON(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	s.logger.Error("api request failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	writeJSON(w, http.StatusBadGateway, errorBody("content source unavailable"))
}

// listPosts handles GET /api/posts.
//
//	@Summary		List published posts, newest first
//	@Tags			posts
//	@Produce		json
//	@Param			page		query		int		false	"1-based page"
//	@Param			category	query		string	false	"Category slug"
//	@Success		200			{object}	PostListResponse
//	@Failure		404			{object}	errResponse
//	@Router			/posts [get]
func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	page := pageParam(r)
	category := strings.TrimSpace(r.URL.Query().Get("category"))

	var (
		l   blogservice.Listing
		err error
	)
	if category != "" {
		l, err = s.svc.Category(r.Context(), category, page)
	} else {
		l, err = s.svc.Index(r.Context(), page)
	}
	if err != nil {
		s.failJSON(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PostListResponse{ListResult: l.ListResult, Categories: l.Categories})
}

// getPost handles GET /api/posts/{slug}.
//
//	@Summary		Get a post with its rendered body
//	@Tags			posts
//	@Produce		json
//	@Param			slug	path		string	true	"Post slug"
//	@Success		200		{object}	PostDetailResponse
//	@Failure		404		{object}	errResponse
//	@Router			/posts/{slug} [get]
func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Post(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.failJSON(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PostDetailResponse{
		Post:     d.Post,
		TOC:      d.TOC,
		Adjacent: d.Adjacent,
		HTML:     string(d.HTML),
	})
}

// listCategories handles GET /api/categories.
//
//	@Summary		List categories with post counts
//	@Tags			posts
//	@Produce		json
//	@Success		200	{array}	posts.Category
//	@Router			/categories [get]
func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Categories(r.Context())
	if err != nil {
		s.failJSON(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

// listSlugs handles GET /api/slugs.
//
//	@Summary		List every published slug
//	@Tags			posts
//	@Produce		json
//	@Success		200	{object}	map[string][]string
//	@Router			/slugs [get]
func (s *Server) listSlugs(w http.ResponseWriter, r *http.Request) {
	slugs, err := s.svc.Slugs(r.Context())
	if err != nil {
		s.failJSON(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slugs": slugs})
}

// revalidate handles POST /api/revalidate.
//
//	@Summary		Drop cached renders under a path
//	@Tags			cache
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RevalidateRequest	true	"Secret and optional path"
//	@Success		200		{object}	RevalidateResponse
//	@Failure		400		{object}	errResponse
//	@Failure		401		{object}	errResponse
//	@Router			/revalidate [post]
func (s *Server) revalidate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req RevalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if s.cfg.RevalidateSecret == "" ||
		subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.cfg.RevalidateSecret)) != 1 {
		writeJSON(w, http.StatusUnauthorized, errorBody("invalid secret"))
		return
	}

	path := strings.TrimSpace(req.Path)
	if path == "" {
		path = s.svc.IndexPath()
	}
	if !strings.HasPrefix(path, "/") {
		writeJSON(w, http.StatusBadRequest, errorBody("path must start with /"))
		return
	}

	removed := 0
	if s.cache != nil {
		n, err := s.cache.Invalidate(r.Context(), path)
		if err != nil {
			s.logger.Error("revalidate failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}
		removed = n
	}
	if s.broker != nil {
		s.broker.PublishRevalidated(path, removed, "api")
	}
	s.logger.Info("revalidated", slog.String("path", path), slog.Int("removed", removed))

	writeJSON(w, http.StatusOK, RevalidateResponse{
		Success:     true,
		Revalidated: path,
		Removed:     removed,
		Now:         s.now().UTC().Format(time.RFC3339),
	})
}

// apiLogin handles POST /api/auth/login.
//
//	@Summary		Sign in and receive a session cookie
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LoginRequest	true	"Credentials"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		401		{object}	errResponse
//	@Router			/auth/login [post]
func (s *Server) apiLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	p, err := s.authn.Authenticate(r.Context(), auth.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		var verrs validation.Errors
		switch {
		case errors.As(err, &verrs):
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "validation failed", Details: verrs})
		case errors.Is(err, apperr.ErrInvalidCredentials):
			writeJSON(w, http.StatusUnauthorized, errorBody("invalid email or password"))
		default:
			s.logger.Error("login failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	token, exp := s.sessions.Issue(p)
	s.setSessionCookie(w, token, exp)
	writeJSON(w, http.StatusOK, SessionResponse{User: p, ExpiresAt: exp.UTC().Format(time.RFC3339)})
}

// apiLogout handles POST /api/auth/logout.
//
//	@Summary		Clear the session cookie
//	@Tags			auth
//	@Success		204
//	@Router			/auth/logout [post]
func (s *Server) apiLogout(w http.ResponseWriter, _ *http.Request) {
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// apiSession handles GET /api/auth/session.
//
//	@Summary		Describe the current session
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	SessionResponse
//	@Failure		401	{object}	errResponse
//	@Router			/auth/session [get]
func (s *Server) apiSession(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{User: p})
}
