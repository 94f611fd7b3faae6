package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courselens/internal/panel"
)

type errorBody struct {
	Error string `json:"error"`
}

type settingsBody struct {
	APIKey string `json:"geminiApiKey"`
	Model  string `json:"geminiModel"`
}

type settingsView struct {
	Model     string `json:"geminiModel"`
	HasAPIKey bool   `json:"hasApiKey"`
}

type modelsBody struct {
	Models  []string `json:"models"`
	Message string   `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// handleAction runs a panel action. Failures that land in the error view are
// part of the returned state and answered with 200; only refusals to start
// get an error status.
func (s *Server) handleAction(action func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := action(r.Context())
		switch {
		case errors.Is(err, panel.ErrBusy):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, panel.ErrAPIKeyMissing):
			writeError(w, http.StatusPreconditionFailed, "Set a Gemini API key in settings first.")
		default:
			writeJSON(w, http.StatusOK, s.panel.State())
		}
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.panel.State())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.panel.Reset(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.panel.State())
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": s.panel.Cancel()})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st := s.panel.State()
	writeJSON(w, http.StatusOK, settingsView{Model: st.Model, HasAPIKey: st.HasAPIKey})
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var body settingsBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings payload")
		return
	}
	saved, err := s.panel.SaveSettings(r.Context(), body.APIKey, body.Model)
	if errors.Is(err, panel.ErrAPIKeyMissing) {
		writeError(w, http.StatusBadRequest, "API key must not be empty")
		return
	}
	if err != nil {
		s.logger.Error("Failed to save settings.", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, settingsView{Model: saved.Model, HasAPIKey: true})
}

func (s *Server) handleToggleSettings(w http.ResponseWriter, r *http.Request) {
	s.panel.ToggleSettings()
	writeJSON(w, http.StatusOK, s.panel.State())
}

// handleModels lists models for the key in the X-Goog-Api-Key header, or the
// stored key when the header is absent.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.Header.Get("X-Goog-Api-Key"))
	models, err := s.panel.CheckModels(r.Context(), key)
	if errors.Is(err, panel.ErrAPIKeyMissing) {
		writeError(w, http.StatusBadRequest, "Please enter API Key first.")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	body := modelsBody{Models: models}
	if len(models) == 0 {
		body.Models = []string{}
		body.Message = "No generateContent models found."
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	err := s.panel.Copy()
	if errors.Is(err, panel.ErrNoResult) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.panel.Export()
	if errors.Is(err, panel.ErrNoResult) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="summary.html"`)
	}
	_, _ = w.Write([]byte(doc))
}
