package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"contract-plan-manager/internal/usecase"
)

const contractNotFound = "Contract not found"

func (s *Server) contractRoutes(r chi.Router) {
	r.Get("/", s.listContracts)
	r.Post("/", s.createContract)
	r.Get("/active", s.listActiveContracts)
	r.Get("/by-number/{number}", s.getContractByNumber)
	r.Get("/{id}", s.getContract)
	r.Put("/{id}", s.updateContract)
	r.Get("/{id}/history", s.contractHistory)
	r.Post("/{id}/suspend", s.suspendContract)
	r.Post("/{id}/reactivate", s.reactivateContract)
	r.Post("/{id}/terminate", s.terminateContract)
}

func (s *Server) listContracts(w http.ResponseWriter, r *http.Request) {
	cs, err := s.contracts.List(r.Context())
	if err != nil {
		writeError(w, r, s.log, err, contractNotFound)
		return
	}
	ok(w, http.StatusOK, cs, "")
}

func (s *Server) listActiveContracts(w http.ResponseWriter, r *http.Request) {
	cs, err := s.contracts.ListActive(r.Context())
	if err != nil {
		writeError(w, r, s.log, err, contractNotFound)
		return
	}
	ok(w, http.StatusOK, cs, "")
}

func (s *Server) getContract(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.badID(w, err)
		return
	}
	c, err := s.contracts.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, s.log, err, contractNotFound)
		return
	}
	ok(w, http.StatusOK, c, "")
}

func (s *Server) getContractByNumber(w http.ResponseWriter, r *http.Request) {
	c, err := s.contracts.GetByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, r, s.log, err, contractNotFound)
		return
	}
	ok(w, http.StatusOK, c, "")
}

func (s *Server) contractHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.badID(w, err)
		return
	}
	h, err := s.contracts.PlanHistory(r.Context(), id)
	if err != nil {
		writeError(w, r, s.log, err, contractNotFound)
		return
	}
	ok(w, http.StatusOK, h, "")
}

func (s *Server) createContract(w http.ResponseWriter, r *http.Request) {
	var req createContractRequest
	if msgs, err := decode(r, s.validate, &req); err != nil {
		s.badBody(w, msgs)
		return
	}
	c, err := s.contracts.Create(r.Context(), usecase.CreateContractInput{
		ContractNumber:       req.ContractNumber,
		CustomerName:         req.CustomerName,
		CustomerEmail:        req.CustomerEmail,
		StartDate:            req.StartDate.Time,
		InitialPaymentPlanID: req.InitialPaymentPlanID,
	})
	if err != nil {
		writeError(w, r, s.log, err, planNotFound)
		return
	}
	w.Header().Set("Location", "/api/contracts/"+c.ID)
	ok(w, http.StatusCreated, c, "Contract created successfully")
}

func (s *Server) updateContract(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.badID(w, err)
		return
	}
	var req updateContractRequest
	if msgs, err := decode(r, s.validate, &req); err != nil {
		s.badBody(w, msgs)
		return
	}
	c, err := s.contracts.UpdateCustomer(r.Context(), id, usecase.UpdateContractInput{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
	})
	if err != nil {
		writeError(w, r, s.log, err, contractNotFound)
		return
	}
	ok(w, http.StatusOK, c, "Contract updated successfully")
}

func (s *Server) suspendContract(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.badID(w, err)
		return
	}
	if err := s.contracts.Suspend(r.Context(), id); err != nil {
		writeError(w, r, s.log, err, contractNotFound)
		return
	}
	ok(w, http.StatusOK, true, "Contract suspended successfully")
}

func (s *Server) reactivateContract(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.badID(w, err)
		return
	}
	if err := s.contracts.Reactivate(r.Context(), id); err != nil {
		writeError(w, r, s.log, err, contractNotFound)
		return
	}
	ok(w, http.StatusOK, true, "Contract reactivated successfully")
}

// terminateContract takes the end date as a bare JSON string body.
func (s *Server) terminateContract(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.badID(w, err)
		return
	}
	var end Date
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<10)).Decode(&end); err != nil || end.IsZero() {
		msg := "End date is required"
		if err != nil {
			msg = err.Error()
		}
		s.badBody(w, []string{msg})
		return
	}
	if err := s.contracts.Terminate(r.Context(), id, end.Time); err != nil {
		writeError(w, r, s.log, err, contractNotFound)
		return
	}
	ok(w, http.StatusOK, true, "Contract terminated successfully")
}
