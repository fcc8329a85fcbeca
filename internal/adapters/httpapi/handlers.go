package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"herdcore/internal/core"
	"herdcore/pkg/domain"
)

type handlers struct {
	svc            *core.Service
	defaultHorizon int
}

type animalRequest struct {
	TagNumber        string                 `json:"tag_number"`
	Name             string                 `json:"name"`
	Stage            domain.Stage           `json:"stage"`
	Sex              domain.Sex             `json:"sex"`
	BirthDate        Date                   `json:"birth_date"`
	Weight           float64                `json:"weight"`
	Notes            string                 `json:"notes"`
	MotherID         *string                `json:"mother_id"`
	InseminationDate *Date                  `json:"insemination_date"`
	PregnancyStatus  domain.PregnancyStatus `json:"pregnancy_status"`
	LactationCount   int                    `json:"lactation_count"`
	LastCalvingDate  *Date                  `json:"last_calving_date"`
	DryPeriodStart   *Date                  `json:"dry_period_start"`
}

func (req animalRequest) animal() domain.Animal {
	return domain.Animal{
		TagNumber:        req.TagNumber,
		Name:             req.Name,
		Stage:            req.Stage,
		Sex:              req.Sex,
		BirthDate:        req.BirthDate.Time,
		Weight:           req.Weight,
		Notes:            req.Notes,
		MotherID:         req.MotherID,
		InseminationDate: req.InseminationDate.ptr(),
		PregnancyStatus:  req.PregnancyStatus,
		LactationCount:   req.LactationCount,
		LastCalvingDate:  req.LastCalvingDate.ptr(),
		DryPeriodStart:   req.DryPeriodStart.ptr(),
	}
}

type patchRequest struct {
	TagNumber *string  `json:"tag_number"`
	Name      *string  `json:"name"`
	BirthDate *Date    `json:"birth_date"`
	Weight    *float64 `json:"weight"`
	Notes     *string  `json:"notes"`
}

type dateRequest struct {
	Date Date `json:"date"`
}

type pregnancyRequest struct {
	Status             domain.PregnancyStatus `json:"status"`
	CancelInsemination bool                   `json:"cancel_insemination"`
}

type calvingRequest struct {
	Date          Date         `json:"date"`
	ExpectedStage domain.Stage `json:"expected_stage"`
	Offspring     struct {
		TagNumber string     `json:"tag_number"`
		Name      string     `json:"name"`
		Sex       domain.Sex `json:"sex"`
		Weight    float64    `json:"weight"`
		Notes     string     `json:"notes"`
	} `json:"offspring"`
}

type eventRequest struct {
	Type        domain.EventType `json:"type"`
	Date        Date             `json:"date"`
	Description string           `json:"description"`
	RelatedID   *string          `json:"related_id"`
}

func (h *handlers) createAnimal(w http.ResponseWriter, r *http.Request) {
	var req animalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	created, res, err := h.svc.CreateAnimal(r.Context(), tenantFrom(r), req.animal())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusCreated, created, res)
}

func (h *handlers) registerYoung(w http.ResponseWriter, r *http.Request) {
	var req animalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	created, res, err := h.svc.RegisterYoung(r.Context(), tenantFrom(r), req.animal())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusCreated, created, res)
}

func (h *handlers) listAnimals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.AnimalFilter{
		Sex:             domain.Sex(q.Get("sex")),
		PregnancyStatus: domain.PregnancyStatus(q.Get("pregnancy_status")),
		TagPrefix:       q.Get("tag_prefix"),
	}
	animals, err := h.svc.ListByStage(r.Context(), tenantFrom(r), domain.Stage(q.Get("stage")), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if animals == nil {
		animals = []domain.Animal{}
	}
	respondJSON(w, http.StatusOK, animals)
}

func (h *handlers) getAnimal(w http.ResponseWriter, r *http.Request) {
	animal, err := h.svc.GetAnimal(r.Context(), tenantFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, animal)
}

func (h *handlers) updateAnimal(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	patch := domain.AnimalPatch{TagNumber: req.TagNumber, Name: req.Name, Weight: req.Weight, Notes: req.Notes}
	if req.BirthDate != nil {
		bd := req.BirthDate.Time
		patch.BirthDate = &bd
	}
	updated, res, err := h.svc.UpdateAnimal(r.Context(), tenantFrom(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, updated, res)
}

func (h *handlers) retireAnimal(w http.ResponseWriter, r *http.Request) {
	reason := domain.RetirementReason(r.URL.Query().Get("reason"))
	if _, err := h.svc.RetireAnimal(r.Context(), tenantFrom(r), chi.URLParam(r, "id"), reason); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) recordInsemination(w http.ResponseWriter, r *http.Request) {
	var req dateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, res, err := h.svc.RecordInsemination(r.Context(), tenantFrom(r), chi.URLParam(r, "id"), req.Date.Time)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, updated, res)
}

func (h *handlers) clearInsemination(w http.ResponseWriter, r *http.Request) {
	updated, res, err := h.svc.ClearInsemination(r.Context(), tenantFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, updated, res)
}

func (h *handlers) setPregnancyStatus(w http.ResponseWriter, r *http.Request) {
	var req pregnancyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, res, err := h.svc.SetPregnancyStatus(r.Context(), tenantFrom(r), chi.URLParam(r, "id"), req.Status, req.CancelInsemination)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, updated, res)
}

func (h *handlers) recordCalving(w http.ResponseWriter, r *http.Request) {
	var req calvingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := core.CalvingInput{
		Date:          req.Date.Time,
		ExpectedStage: req.ExpectedStage,
		Offspring: core.OffspringInput{
			TagNumber: req.Offspring.TagNumber,
			Name:      req.Offspring.Name,
			Sex:       req.Offspring.Sex,
			Weight:    req.Offspring.Weight,
			Notes:     req.Offspring.Notes,
		},
	}
	outcome, res, err := h.svc.RecordCalving(r.Context(), tenantFrom(r), chi.URLParam(r, "id"), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusCreated, outcome, res)
}

func (h *handlers) mature(w http.ResponseWriter, r *http.Request) {
	updated, res, err := h.svc.Mature(r.Context(), tenantFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, updated, res)
}

func (h *handlers) matureDue(w http.ResponseWriter, r *http.Request) {
	outcomes, err := h.svc.MatureDue(r.Context(), tenantFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, outcomes)
}

func (h *handlers) startDryPeriod(w http.ResponseWriter, r *http.Request) {
	var req dateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, res, err := h.svc.StartDryPeriod(r.Context(), tenantFrom(r), chi.URLParam(r, "id"), req.Date.Time)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, updated, res)
}

func (h *handlers) forecastCalving(w http.ResponseWriter, r *http.Request) {
	forecast, err := h.svc.ForecastCalving(r.Context(), tenantFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]*domain.CalvingForecast{"forecast": forecast})
}

func (h *handlers) upcomingCalvings(w http.ResponseWriter, r *http.Request) {
	horizon := h.defaultHorizon
	if raw := strings.TrimSpace(r.URL.Query().Get("horizon")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, errorResponse{Error: "horizon must be an integer", Code: "validation", Field: "horizon"}, http.StatusBadRequest)
			return
		}
		horizon = n
	}
	entries, err := h.svc.UpcomingCalvings(r.Context(), tenantFrom(r), horizon)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *handlers) pendingChecks(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.PendingPregnancyChecks(r.Context(), tenantFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *handlers) dueForMaturity(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.DueForMaturity(r.Context(), tenantFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *handlers) listTimeline(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListTimeline(r.Context(), tenantFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if events == nil {
		events = []domain.TimelineEvent{}
	}
	respondJSON(w, http.StatusOK, events)
}

func (h *handlers) appendEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	event := domain.TimelineEvent{
		AnimalID:    chi.URLParam(r, "id"),
		Type:        req.Type,
		Date:        req.Date.Time,
		Description: req.Description,
		RelatedID:   req.RelatedID,
	}
	created, res, err := h.svc.AppendEvent(r.Context(), tenantFrom(r), event)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusCreated, created, res)
}

func (h *handlers) removeEvent(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.RemoveEvent(r.Context(), tenantFrom(r), chi.URLParam(r, "eventID")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) archivedRecord(w http.ResponseWriter, r *http.Request) {
	record, err := h.svc.ArchivedRecord(r.Context(), tenantFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}
