package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xi784/ha-blnet/internal/entity"
	"github.com/xi784/ha-blnet/internal/platform"
)

const (
	stateOn  = "on"
	stateOff = "off"
)

// APIResponse is the envelope of every response.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type commandRequest struct {
	State string `json:"state"`
}

type pollResponse struct {
	Updated int `json:"updated"`
}

func (s *Server) sendResponse(w http.ResponseWriter, resp APIResponse, httpCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, httpCode int) {
	s.sendResponse(w, APIResponse{Status: "error", Message: message}, httpCode)
}

func (s *Server) listEntitiesHandler(w http.ResponseWriter, r *http.Request) {
	s.sendResponse(w, APIResponse{Status: "ok", Data: s.host.Entities()}, http.StatusOK)
}

func (s *Server) entityHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.host.Get(id)
	if err != nil {
		s.sendError(w, fmt.Sprintf("Unknown entity: %s", id), http.StatusNotFound)
		return
	}
	s.sendResponse(w, APIResponse{Status: "ok", Data: snap}, http.StatusOK)
}

func (s *Server) commandHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	var on bool
	switch req.State {
	case stateOn:
		on = true
	case stateOff:
		on = false
	default:
		s.sendError(w, "State must be 'on' or 'off'", http.StatusBadRequest)
		return
	}

	snap, err := s.host.Command(id, on)
	switch {
	case errors.Is(err, platform.ErrUnknownEntity):
		s.sendError(w, fmt.Sprintf("Unknown entity: %s", id), http.StatusNotFound)
	case errors.Is(err, entity.ErrCommandFailed):
		// The optimistic state was still applied.
		s.sendResponse(w, APIResponse{Status: "error", Message: err.Error(), Data: snap}, http.StatusBadGateway)
	case err != nil:
		s.sendError(w, err.Error(), http.StatusInternalServerError)
	default:
		s.sendResponse(w, APIResponse{Status: "ok", Data: snap}, http.StatusOK)
	}
}

func (s *Server) pollHandler(w http.ResponseWriter, r *http.Request) {
	updated := s.host.PollAll()
	s.sendResponse(w, APIResponse{Status: "ok", Data: pollResponse{Updated: updated}}, http.StatusOK)
}
