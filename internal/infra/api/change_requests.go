package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"contract-plan-manager/internal/usecase"
)

const changeRequestNotFound = "Change request not found"

func (s *Server) changeRequestRoutes(r chi.Router) {
	r.Post("/", s.createChangeRequest)
	r.Get("/pending", s.listPendingChangeRequests)
	r.Get("/contract/{contractId}", s.listContractChangeRequests)
	r.Get("/{id}", s.getChangeRequest)
	r.Post("/{id}/process", s.processChangeRequest)
	r.Post("/{id}/cancel", s.cancelChangeRequest)
}

func (s *Server) listPendingChangeRequests(w http.ResponseWriter, r *http.Request) {
	rs, err := s.requests.ListPending(r.Context())
	if err != nil {
		writeError(w, r, s.log, err, changeRequestNotFound)
		return
	}
	ok(w, http.StatusOK, rs, "")
}

func (s *Server) listContractChangeRequests(w http.ResponseWriter, r *http.Request) {
	contractID, err := pathUUID(r, "contractId")
	if err != nil {
		s.badID(w, err)
		return
	}
	rs, err := s.requests.ListByContract(r.Context(), contractID)
	if err != nil {
		writeError(w, r, s.log, err, contractNotFound)
		return
	}
	ok(w, http.StatusOK, rs, "")
}

func (s *Server) getChangeRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.badID(w, err)
		return
	}
	req, err := s.requests.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, s.log, err, changeRequestNotFound)
		return
	}
	ok(w, http.StatusOK, req, "")
}

func (s *Server) createChangeRequest(w http.ResponseWriter, r *http.Request) {
	var body createChangeRequestRequest
	if msgs, err := decode(r, s.validate, &body); err != nil {
		s.badBody(w, msgs)
		return
	}
	req, err := s.requests.Create(r.Context(), usecase.CreatePlanChangeRequestInput{
		ContractID:    body.ContractID,
		ToPlanID:      body.ToPlanID,
		RequestedBy:   body.RequestedBy,
		EffectiveDate: body.EffectiveDate.Time,
	})
	if err != nil {
		writeError(w, r, s.log, err, "Contract or payment plan not found")
		return
	}
	w.Header().Set("Location", "/api/planchangerequests/"+req.ID)
	ok(w, http.StatusCreated, req, "Plan change request created successfully")
}

func (s *Server) processChangeRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.badID(w, err)
		return
	}
	var body processChangeRequestRequest
	if msgs, err := decode(r, s.validate, &body); err != nil {
		s.badBody(w, msgs)
		return
	}
	req, err := s.requests.Process(r.Context(), id, usecase.ProcessPlanChangeRequestInput{
		Approved:        body.Approved,
		ProcessedBy:     body.ProcessedBy,
		RejectionReason: body.RejectionReason,
	})
	if err != nil {
		writeError(w, r, s.log, err, changeRequestNotFound)
		return
	}
	msg := "Plan change request rejected"
	if body.Approved {
		msg = "Plan change request approved"
	}
	ok(w, http.StatusOK, req, msg)
}

func (s *Server) cancelChangeRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.badID(w, err)
		return
	}
	if err := s.requests.Cancel(r.Context(), id); err != nil {
		writeError(w, r, s.log, err, changeRequestNotFound)
		return
	}
	ok(w, http.StatusOK, true, "Plan change request cancelled successfully")
}
