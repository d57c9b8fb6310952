// Package server implements the JSON API of the hurl service.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/foobargirl/hurl/internal/api"
	"github.com/foobargirl/hurl/internal/hurls"
	"github.com/foobargirl/hurl/internal/logging"
	"github.com/foobargirl/hurl/internal/probe"
	"github.com/foobargirl/hurl/internal/render"
	"github.com/foobargirl/hurl/internal/session"
	"github.com/foobargirl/hurl/internal/user"
)

const (
	sessionCookie = "sid"
	cookieMaxAge  = 365 * 24 * 60 * 60
)

// Server wires the probe engine, stores, and session manager behind
// the HTTP surface.
type Server struct {
	Executor *probe.Executor
	Hurls    *hurls.Store
	Users    *user.Store
	Sessions *session.Manager
	Logger   *zap.Logger
}

// Handler returns the HTTP handler for the service.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/hurls", s.handleProbe)
	mux.HandleFunc("GET /api/hurls", s.handleListHurls)
	mux.HandleFunc("GET /api/hurls/{id}", s.handleGetHurl)
	mux.HandleFunc("POST /api/signin", s.handleSignIn)
	mux.HandleFunc("POST /api/signup", s.handleSignUp)
	mux.HandleFunc("POST /api/signout", s.handleSignOut)
	return mux
}

// handleProbe runs the primary use case: build, execute, render, save.
func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid form data"})
		return
	}

	spec, err := probe.Build(r.Form)
	if err != nil {
		var verr *probe.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: verr.Error()})
			return
		}
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid request"})
		return
	}

	result, err := s.Executor.Execute(r.Context(), spec)
	if err != nil {
		// A failed probe is a rendered outcome, not a failed call.
		writeJSON(w, http.StatusOK, api.ErrorResponse{Error: fmt.Sprintf("error: %s", err)})
		return
	}

	owner, err := s.resolveOwner(r)
	if err != nil {
		s.storeError(w, err)
		return
	}

	id, err := s.Hurls.Save(r.Form, owner)
	if err != nil {
		s.storeError(w, err)
		return
	}

	s.Logger.Info("probe saved",
		logging.Method(spec.Method), logging.URL(spec.URL),
		logging.Status(result.Status), logging.HurlID(id))

	writeJSON(w, http.StatusOK, api.ProbeResponse{
		Header:  render.Headers(result.RawHeaders),
		Body:    render.Body(result.ContentType, result.Body),
		Request: render.RequestTrace(result.Wire, spec.FormBody()),
		HurlID:  id,
	})
}

func (s *Server) handleGetHurl(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	rec, err := s.Hurls.Load(id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "hurl not found"})
		return
	}

	writeJSON(w, http.StatusOK, api.HurlResponse{ID: rec.ID, Params: rec.Params})
}

func (s *Server) handleListHurls(w http.ResponseWriter, r *http.Request) {
	email, err := s.resolveSession(r)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if email == "" {
		writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Error: "sign in required"})
		return
	}

	ref, err := s.Users.Find(email)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if ref == nil {
		writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Error: "sign in required"})
		return
	}

	ids, err := ref.Hurls()
	if err != nil {
		s.storeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}

	writeJSON(w, http.StatusOK, api.ListHurlsResponse{Hurls: ids})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid form data"})
		return
	}
	email := r.Form.Get("email")
	password := r.Form.Get("password")

	ref, err := s.Users.Authenticate(email, password)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if ref == nil {
		writeJSON(w, http.StatusOK, api.ErrorResponse{Error: "incorrect email or password"})
		return
	}

	if err := s.startSession(w, email); err != nil {
		s.storeError(w, err)
		return
	}
	s.Logger.Info("signed in", logging.Email(email))
	writeJSON(w, http.StatusOK, api.SignResponse{Success: true})
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid form data"})
		return
	}
	email := r.Form.Get("email")
	password := r.Form.Get("password")

	_, err := s.Users.Create(email, password)
	if err != nil {
		var verr *user.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusOK, api.ErrorResponse{Error: verr.Error()})
			return
		}
		s.storeError(w, err)
		return
	}

	if err := s.startSession(w, email); err != nil {
		s.storeError(w, err)
		return
	}
	s.Logger.Info("signed up", logging.Email(email))
	writeJSON(w, http.StatusOK, api.SignResponse{Success: true})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if err := s.Sessions.Destroy(cookie.Value); err != nil {
			s.storeError(w, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, api.SignResponse{Success: true})
}

// resolveSession returns the signed-in account email, or "" when the
// request carries no usable session. Identity is threaded explicitly
// from here; nothing else reads the cookie.
func (s *Server) resolveSession(r *http.Request) (string, error) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", nil
	}

	attrs, err := s.Sessions.Lookup(cookie.Value)
	if err != nil {
		return "", err
	}
	if attrs == nil {
		return "", nil
	}
	return attrs["email"], nil
}

// resolveOwner maps the request's session, if any, to an account the
// saved hurl should be recorded against.
func (s *Server) resolveOwner(r *http.Request) (hurls.Owner, error) {
	email, err := s.resolveSession(r)
	if err != nil {
		return nil, err
	}
	if email == "" {
		return nil, nil
	}

	ref, err := s.Users.Find(email)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, nil
	}
	return ref, nil
}

func (s *Server) startSession(w http.ResponseWriter, email string) error {
	id, err := s.Sessions.Create(map[string]string{"email": email})
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(cookieMaxAge * time.Second),
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
	})
	return nil
}

// storeError handles the one fatal class: the key-value store being
// unavailable.
func (s *Server) storeError(w http.ResponseWriter, err error) {
	s.Logger.Error("store failure", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: "storage error"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
