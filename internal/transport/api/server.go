package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"lifechain.ai/internal/gateway"
	"lifechain.ai/internal/protocol"
)

// maxBodyBytes bounds /setcells bodies; 1024 cells need a few KiB.
const maxBodyBytes = 64 * 1024

type Server struct {
	gw      *gateway.Gateway
	log     *log.Logger
	metrics metrics
}

func NewServer(gw *gateway.Gateway, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{gw: gw, log: logger}
}

// allowedMethods are served on known command paths; anything else gets 405.
const allowedMethods = "GET, POST, OPTIONS"

// Handler serves the command paths for GET, POST and OPTIONS.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Access-Control-Allow-Origin", "*")
		cmd := gateway.ParseCommand(r.URL.Path)
		s.metrics.request(cmd)

		if cmd != gateway.CommandUnknown {
			switch r.Method {
			case http.MethodGet, http.MethodPost:
			case http.MethodOptions:
				writePreflight(rw)
				return
			default:
				rw.Header().Set("Allow", allowedMethods)
				writeJSON(rw, http.StatusMethodNotAllowed, protocol.ErrorResponse{
					Status: fmt.Sprintf("method %s not allowed for %s", r.Method, cmd),
					Code:   protocol.ErrMethodNotAllowed,
				})
				return
			}
		}

		switch cmd {
		case gateway.CommandData:
			s.handleData(rw, r)
		case gateway.CommandStep:
			s.handleStep(rw, r)
		case gateway.CommandSetCells:
			s.handleSetCells(rw, r)
		default:
			s.log.Printf("unknown cmd %s", r.URL.Path)
			writeJSON(rw, http.StatusNotFound, protocol.ErrorResponse{
				Status:         fmt.Sprintf("unknown command %s", r.URL.Path),
				Code:           protocol.ErrUnknownCommand,
				UnknownCommand: r.URL.Path,
			})
		}
	}
}

func writePreflight(rw http.ResponseWriter) {
	h := rw.Header()
	h.Set("Access-Control-Allow-Methods", "GET")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	h.Set("Access-Control-Max-Age", "3600")
	rw.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleData(rw http.ResponseWriter, r *http.Request) {
	st, err := s.gw.GetState(r.Context())
	if err != nil {
		s.metrics.externalFailures.Add(1)
		s.log.Printf("data: %v", err)
		writeJSON(rw, http.StatusBadGateway, errorBody(err))
		return
	}
	writeJSON(rw, http.StatusOK, st)
}

func (s *Server) handleStep(rw http.ResponseWriter, r *http.Request) {
	res, err := s.gw.Step(r.Context())
	if err != nil {
		s.metrics.externalFailures.Add(1)
		s.log.Printf("step: %v", err)
		writeJSON(rw, http.StatusOK, errorBody(err))
		return
	}
	if res.Refused() {
		s.metrics.gateRefusals.Add(1)
		writeJSON(rw, http.StatusOK, res.Refusal())
		return
	}
	s.metrics.submitted(res.Submit)
	writeJSON(rw, http.StatusOK, res.Submit)
}

func (s *Server) handleSetCells(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, maxBodyBytes))
	if err != nil {
		s.metrics.validationFailures.Add(1)
		writeJSON(rw, http.StatusOK, errorBody(&gateway.ValidationError{Field: "body", Reason: err.Error()}))
		return
	}
	resp, err := s.gw.SetCells(r.Context(), body)
	if err != nil {
		if gateway.IsValidation(err) {
			s.metrics.validationFailures.Add(1)
		} else {
			s.metrics.externalFailures.Add(1)
		}
		s.log.Printf("setcells: %v", err)
		writeJSON(rw, http.StatusOK, errorBody(err))
		return
	}
	s.metrics.submitted(&resp)
	writeJSON(rw, http.StatusOK, resp)
}

func errorBody(err error) protocol.ErrorResponse {
	code := protocol.ErrInternal
	var ve *gateway.ValidationError
	var ee *gateway.ExternalCallError
	switch {
	case errors.As(err, &ve):
		code = protocol.ErrBadRequest
	case errors.As(err, &ee):
		code = protocol.ErrExternalCall
	}
	return protocol.ErrorResponse{Status: err.Error(), Code: code}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
