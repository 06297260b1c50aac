package server

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"

	"github.com/TobiSchelling/claimcheck/internal/claims"
	"github.com/TobiSchelling/claimcheck/internal/database"
)

const dashboardLimit = 100

var dashboardFilters = []string{
	database.FilterAll,
	database.FilterFake,
	database.FilterReal,
	database.FilterUnverified,
	database.FilterFlagged,
}

type indexForm struct {
	Text      string
	Link      string
	MediaType string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderIndex(w, r, http.StatusOK, "", indexForm{})
}

func (s *Server) renderIndex(w http.ResponseWriter, r *http.Request, status int, formErr string, form indexForm) {
	f, err := parseFilter(r)
	if err != nil {
		f = database.ClaimFilter{}
	}
	if f.Status == "" {
		f.Status = database.FilterAll
	}
	f.Limit = dashboardLimit

	list, err := s.svc.List(f)
	if err != nil {
		log.Printf("Error listing claims: %v", err)
		s.renderError(w, http.StatusInternalServerError, "Could not load claims")
		return
	}
	stats, err := s.svc.Stats()
	if err != nil {
		log.Printf("Error loading stats: %v", err)
		s.renderError(w, http.StatusInternalServerError, "Could not load stats")
		return
	}

	s.render(w, status, "index.html", map[string]any{
		"Claims":    list,
		"Stats":     stats,
		"Filter":    f.Status,
		"Filters":   dashboardFilters,
		"Query":     f.Query,
		"FormError": formErr,
		"Form":      form,
		"MaxUpload": humanize.IBytes(uint64(s.maxUpload)),
	})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	claim, err := s.svc.Get(mux.Vars(r)["id"])
	if errors.Is(err, claims.ErrNotFound) {
		s.renderError(w, http.StatusNotFound, "Claim not found")
		return
	}
	if err != nil {
		log.Printf("Error loading claim: %v", err)
		s.renderError(w, http.StatusInternalServerError, "Could not load claim")
		return
	}

	s.render(w, http.StatusOK, "claim.html", map[string]any{
		"Claim": claim,
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sub, cleanup, err := s.parseSubmission(w, r)
	if cleanup != nil {
		defer cleanup()
	}
	form := indexForm{Text: sub.Text, Link: sub.Link, MediaType: sub.MediaType}
	if err == nil {
		var claim *database.Claim
		claim, err = s.svc.Submit(r.Context(), sub)
		if err == nil {
			http.Redirect(w, r, "/claims/"+claim.ID, http.StatusSeeOther)
			return
		}
	}

	status, msg := formMessage(err)
	if status == http.StatusInternalServerError {
		log.Printf("Error submitting claim: %v", err)
	}
	s.renderIndex(w, r, status, msg, form)
}

func (s *Server) handleFlag(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	notes := strings.TrimSpace(r.FormValue("notes"))
	flaggedBy := strings.TrimSpace(r.FormValue("flaggedBy"))

	if _, err := s.svc.Flag(id, notes, flaggedBy); err != nil {
		s.flagFailed(w, err)
		return
	}
	http.Redirect(w, r, "/claims/"+id, http.StatusSeeOther)
}

func (s *Server) handleUnflag(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.svc.Unflag(id); err != nil {
		s.flagFailed(w, err)
		return
	}
	http.Redirect(w, r, "/claims/"+id, http.StatusSeeOther)
}

func (s *Server) flagFailed(w http.ResponseWriter, err error) {
	if errors.Is(err, claims.ErrNotFound) {
		s.renderError(w, http.StatusNotFound, "Claim not found")
		return
	}
	log.Printf("Error updating flag: %v", err)
	s.renderError(w, http.StatusInternalServerError, "Could not update flag")
}

func (s *Server) renderError(w http.ResponseWriter, status int, msg string) {
	s.render(w, status, "error.html", map[string]any{
		"Status":  status,
		"Message": msg,
	})
}

func formMessage(err error) (int, string) {
	var bad badRequestError
	switch {
	case errors.Is(err, claims.ErrNoContent):
		return http.StatusBadRequest, msgNoContent
	case errors.Is(err, claims.ErrUnsupportedMedia):
		return http.StatusBadRequest, msgBadMedia
	case errors.Is(err, claims.ErrMediaTooLarge):
		return http.StatusBadRequest, msgMediaTooBig
	case errors.As(err, &bad):
		return http.StatusBadRequest, string(bad)
	default:
		return http.StatusInternalServerError, msgInternal
	}
}
