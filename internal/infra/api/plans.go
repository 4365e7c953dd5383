package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"contract-plan-manager/internal/domain/model"
	"contract-plan-manager/internal/usecase"
)

const planNotFound = "Payment plan not found"

func (s *Server) planRoutes(r chi.Router) {
	r.Get("/", s.listPlans)
	r.Post("/", s.createPlan)
	r.Get("/active", s.listActivePlans)
	r.Get("/{id}", s.getPlan)
	r.Put("/{id}", s.updatePlan)
	r.Post("/{id}/deactivate", s.deactivatePlan)
	r.Post("/{id}/reactivate", s.reactivatePlan)
}

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.plans.List(r.Context())
	if err != nil {
		writeError(w, r, s.log, err, planNotFound)
		return
	}
	ok(w, http.StatusOK, plans, "")
}

func (s *Server) listActivePlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.plans.ListActive(r.Context())
	if err != nil {
		writeError(w, r, s.log, err, planNotFound)
		return
	}
	ok(w, http.StatusOK, plans, "")
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.badID(w, err)
		return
	}
	plan, err := s.plans.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, s.log, err, planNotFound)
		return
	}
	ok(w, http.StatusOK, plan, "")
}

func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if msgs, err := decode(r, s.validate, &req); err != nil {
		s.badBody(w, msgs)
		return
	}
	plan, err := s.plans.Create(r.Context(), usecase.CreatePaymentPlanInput{
		Name:         req.Name,
		Description:  req.Description,
		MonthlyPrice: req.MonthlyPrice,
		BillingCycle: model.BillingCycle(req.BillingCycle),
		Tier:         model.PlanTier(req.Tier),
	})
	if err != nil {
		writeError(w, r, s.log, err, planNotFound)
		return
	}
	w.Header().Set("Location", "/api/paymentplans/"+plan.ID)
	ok(w, http.StatusCreated, plan, "Payment plan created successfully")
}

func (s *Server) updatePlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.badID(w, err)
		return
	}
	var req updatePlanRequest
	if msgs, err := decode(r, s.validate, &req); err != nil {
		s.badBody(w, msgs)
		return
	}
	plan, err := s.plans.Update(r.Context(), id, usecase.UpdatePaymentPlanInput{
		MonthlyPrice: req.MonthlyPrice,
		Description:  req.Description,
	})
	if err != nil {
		writeError(w, r, s.log, err, planNotFound)
		return
	}
	ok(w, http.StatusOK, plan, "Payment plan updated successfully")
}

func (s *Server) deactivatePlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.badID(w, err)
		return
	}
	if err := s.plans.Deactivate(r.Context(), id); err != nil {
		writeError(w, r, s.log, err, planNotFound)
		return
	}
	ok(w, http.StatusOK, true, "Payment plan deactivated successfully")
}

func (s *Server) reactivatePlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.badID(w, err)
		return
	}
	if err := s.plans.Reactivate(r.Context(), id); err != nil {
		writeError(w, r, s.log, err, planNotFound)
		return
	}
	ok(w, http.StatusOK, true, "Payment plan reactivated successfully")
}
