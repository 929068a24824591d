package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"console/internal/model"
	"console/internal/session"
)

type visitKey struct{}

// visit is the per-request view of one browser: its session store, the page
// it is on, and the identity the guard let through.
type visit struct {
	store *session.Store
	nav   *navigator
	user  *model.Session
}

func visitFrom(ctx context.Context) *visit {
	v, _ := ctx.Value(visitKey{}).(*visit)
	return v
}

// navigator records the page the API client wants the user sent to.
type navigator struct {
	location string
	target   string
}

func (n *navigator) Location() string { return n.location }

func (n *navigator) Navigate(path string) { n.target = path }

func cleanPath(p string) string {
	if len(p) > 1 {
		return strings.TrimRight(p, "/")
	}
	return p
}

func (s *Server) visitor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := ""
		if c, err := r.Cookie(s.cfg.Cookie.Name); err == nil {
			if id, err := uuid.Parse(c.Value); err == nil {
				sid = id.String()
			}
		}
		if sid == "" {
			sid = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.Cookie.Name,
				Value:    sid,
				Path:     "/",
				MaxAge:   int(s.cfg.Cookie.MaxAge.Seconds()),
				HttpOnly: true,
				Secure:   s.cfg.Cookie.Secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		v := &visit{
			store: session.NewStore(s.storage, sid, s.cfg.Storage.RefreshWindow, s.log),
			nav:   &navigator{location: cleanPath(r.URL.Path)},
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), visitKey{}, v)))
	})
}

const (
	flashSuccess = "success"
	flashError   = "error"
)

type flash struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

func (v *visit) setFlash(ctx context.Context, kind, text string) {
	raw, _ := json.Marshal(flash{Kind: kind, Text: text})
	v.store.SetFlash(ctx, string(raw))
}

func (v *visit) popFlash(ctx context.Context) *flash {
	raw := v.store.PopFlash(ctx)
	if raw == "" {
		return nil
	}
	var f flash
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return nil
	}
	return &f
}
