package web

import (
	"github.com/starford/folio/internal/document"
	"github.com/starford/folio/internal/posts"
)

// PostListResponse is returned by GET /api/posts.
type PostListResponse struct {
	posts.ListResult
	Categories []posts.Category `json:"categories"`
}

// PostDetailResponse is returned by GET /api/posts/{slug}.
type PostDetailResponse struct {
	Post     posts.Post         `json:"post"`
	TOC      []document.TocItem `json:"toc"`
	Adjacent posts.Adjacent     `json:"adjacent"`
	HTML     string             `json:"html"`
}

// RevalidateRequest is the body of POST /api/revalidate.
type RevalidateRequest struct {
	Secret string `json:"secret"`
	Path   string `json:"path,omitempty"`
}

// RevalidateResponse reports a successful revalidation.
type RevalidateResponse struct {
	Success     bool   `json:"success"`
	Revalidated string `json:"revalidated"`
	Removed     int    `json:"removed"`
	Now         string `json:"now"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse describes the current session.
type SessionResponse struct {
	User      any    `json:"user"`
	ExpiresAt string `json:"expires_at,omitempty"`
}
