package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coldreach/dripengine/internal/pkg/httputil"
	"github.com/coldreach/dripengine/internal/scoring"
	"github.com/coldreach/dripengine/internal/service/schedule"
	"github.com/coldreach/dripengine/internal/worker"
)

// Handlers carries the service dependencies for all HTTP endpoints.
type Handlers struct {
	db         *sql.DB
	schedule   *schedule.Service
	scores     scoring.ScoreRepository
	recomputer *scoring.Recomputer
	events     *worker.EmailEventReceiver
}

func NewHandlers(db *sql.DB, scheduleSvc *schedule.Service, scores scoring.ScoreRepository,
	recomputer *scoring.Recomputer, events *worker.EmailEventReceiver) *Handlers {
	return &Handlers{
		db:         db,
		schedule:   scheduleSvc,
		scores:     scores,
		recomputer: recomputer,
		events:     events,
	}
}

// HealthCheck reports process and database health.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	httputil.JSON(w, code, map[string]string{"status": status})
}

// PublishCampaign schedules every campaign email for every audience lead and
// activates the campaign.
func (h *Handlers) PublishCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	n, err := h.schedule.ScheduleCampaignEmails(r.Context(), OwnerID(r.Context()), campaignID)
	if err != nil {
		respondScheduleError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"campaign_id":    campaignID,
		"scheduled_jobs": n,
	})
}

// PauseCampaign cancels the campaign's scheduled sends.
func (h *Handlers) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	n, err := h.schedule.CancelCampaignEmails(r.Context(), OwnerID(r.Context()), campaignID)
	if err != nil {
		respondScheduleError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"campaign_id":    campaignID,
		"cancelled_jobs": n,
	})
}

// ResumeCampaign re-registers the campaign's cancelled sends.
func (h *Handlers) ResumeCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	n, err := h.schedule.ResumeCampaignEmails(r.Context(), OwnerID(r.Context()), campaignID)
	if err != nil {
		respondScheduleError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"campaign_id":  campaignID,
		"resumed_jobs": n,
	})
}

// GetLeadScore returns the lead's stored score row.
func (h *Handlers) GetLeadScore(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	score, err := h.scores.Get(r.Context(), leadID)
	if err != nil {
		if errors.Is(err, scoring.ErrScoreNotFound) {
			httputil.Error(w, http.StatusNotFound, "lead score not found")
			return
		}
		httputil.Error(w, http.StatusInternalServerError, "failed to load lead score")
		return
	}
	httputil.JSON(w, http.StatusOK, score)
}

// RecomputeLeadScore recalculates the lead's score from its email logs
// synchronously and returns the fresh row.
func (h *Handlers) RecomputeLeadScore(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	score, err := h.recomputer.RecomputeLead(r.Context(), leadID)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to recompute lead score")
		return
	}
	httputil.JSON(w, http.StatusOK, score)
}

// HandleEmailWebhook ingests one provider delivery event.
func (h *Handlers) HandleEmailWebhook(w http.ResponseWriter, r *http.Request) {
	var ev worker.EmailEvent
	if !httputil.Decode(w, r, &ev) {
		return
	}
	if err := h.events.Apply(r.Context(), ev); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func respondScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrUnauthorized):
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, schedule.ErrNotFound):
		httputil.Error(w, http.StatusNotFound, "campaign not found")
	case errors.Is(err, schedule.ErrNoAudiences),
		errors.Is(err, schedule.ErrNoEmails),
		errors.Is(err, schedule.ErrNoLeads):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	default:
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}
