package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/TobiSchelling/claimcheck/internal/claims"
	"github.com/TobiSchelling/claimcheck/internal/database"
)

const (
	msgNoContent   = "At least one of text, link, or media must be provided"
	msgNotFound    = "Claim not found"
	msgInternal    = "Internal server error"
	msgBadMedia    = "Only image and video files are allowed"
	msgMediaTooBig = "Media file is too large"
)

// Multipart overhead allowed on top of the media limit.
const formOverhead = 1 << 20

func (s *Server) apiCreateClaim(w http.ResponseWriter, r *http.Request) {
	sub, cleanup, err := s.parseSubmission(w, r)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	claim, err := s.svc.Submit(r.Context(), sub)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "claim": claim})
}

func (s *Server) apiListClaims(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	list, err := s.svc.List(f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "claims": list})
}

func (s *Server) apiGetClaim(w http.ResponseWriter, r *http.Request) {
	claim, err := s.svc.Get(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "claim": claim})
}

func (s *Server) apiFlagClaim(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Notes     string `json:"notes"`
		FlaggedBy string `json:"flaggedBy"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
	}

	claim, err := s.svc.Flag(mux.Vars(r)["id"], body.Notes, body.FlaggedBy)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "claim": claim})
}

func (s *Server) apiUnflagClaim(w http.ResponseWriter, r *http.Request) {
	claim, err := s.svc.Unflag(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "claim": claim})
}

func (s *Server) apiStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})
}

func (s *Server) apiDetect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		writeError(w, http.StatusBadRequest, "Text is required")
		return
	}

	det, err := s.detector.Detect(r.Context(), body.Text)
	if err != nil {
		log.Printf("Detect error: %v", err)
		writeError(w, http.StatusInternalServerError, providerLabel(s.detector.ProviderName())+" API error")
		return
	}
	writeJSON(w, http.StatusOK, det)
}

// parseSubmission reads a claim from a JSON, urlencoded or multipart body.
// The returned cleanup releases temporary multipart files.
func (s *Server) parseSubmission(w http.ResponseWriter, r *http.Request) (claims.Submission, func(), error) {
	var sub claims.Submission

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Text      string `json:"text"`
			Link      string `json:"link"`
			MediaType string `json:"mediaType"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return sub, nil, errBadRequest("Invalid JSON body")
		}
		sub.Text, sub.Link, sub.MediaType = body.Text, body.Link, body.MediaType
		return sub, nil, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+formOverhead)
	err := r.ParseMultipartForm(formOverhead)
	switch {
	case errors.Is(err, http.ErrNotMultipart):
		if err := r.ParseForm(); err != nil {
			return sub, nil, formError(err)
		}
	case err != nil:
		return sub, nil, formError(err)
	}

	sub.Text = r.FormValue("text")
	sub.Link = r.FormValue("link")
	sub.MediaType = r.FormValue("mediaType")

	if r.MultipartForm == nil {
		return sub, nil, nil
	}
	form := r.MultipartForm
	cleanup := func() { form.RemoveAll() }

	file, header, err := r.FormFile("media")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return sub, cleanup, nil
	case err != nil:
		return sub, cleanup, formError(err)
	}
	if header.Size == 0 {
		file.Close()
		return sub, cleanup, nil
	}

	sub.Media = &claims.Media{
		Filename:    header.Filename,
		ContentType: partType(header),
		Body:        file,
	}
	return sub, func() {
		file.Close()
		cleanup()
	}, nil
}

func partType(h *multipart.FileHeader) string {
	if ct := h.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func formError(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return claims.ErrMediaTooLarge
	}
	return errBadRequest("Invalid form body")
}

func parseFilter(r *http.Request) (database.ClaimFilter, error) {
	q := r.URL.Query()
	f := database.ClaimFilter{
		Status: q.Get("filter"),
		Query:  q.Get("q"),
	}
	switch f.Status {
	case "", database.FilterAll, database.FilterReal, database.FilterFake,
		database.FilterUnverified, database.FilterFlagged:
	default:
		return f, errBadRequest(fmt.Sprintf("Invalid filter %q", f.Status))
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			return f, errBadRequest(fmt.Sprintf("Invalid limit %q", l))
		}
		f.Limit = n
	}
	return f, nil
}

type badRequestError string

func (e badRequestError) Error() string { return string(e) }

func errBadRequest(msg string) error { return badRequestError(msg) }

// writeServiceError maps service errors onto the API's error bodies.
func writeServiceError(w http.ResponseWriter, err error) {
	var bad badRequestError
	switch {
	case errors.Is(err, claims.ErrNoContent):
		writeError(w, http.StatusBadRequest, msgNoContent)
	case errors.Is(err, claims.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, claims.ErrUnsupportedMedia):
		writeError(w, http.StatusBadRequest, msgBadMedia)
	case errors.Is(err, claims.ErrMediaTooLarge):
		writeError(w, http.StatusBadRequest, msgMediaTooBig)
	case errors.As(err, &bad):
		writeError(w, http.StatusBadRequest, string(bad))
	default:
		log.Printf("Request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   msgInternal,
			"message": err.Error(),
		})
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func providerLabel(name string) string {
	switch name {
	case "openai":
		return "OpenAI"
	case "ollama":
		return "Ollama"
	default:
		return "LLM"
	}
}
