package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"devfeed/internal/domain"
	httpinfra "devfeed/internal/infra/http"
)

type sourceView struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	Provider         domain.ProviderType `json:"provider"`
	URL              string              `json:"url"`
	Active           bool                `json:"active"`
	AutoFetchEnabled bool                `json:"auto_fetch_enabled"`
	Status           string              `json:"status"`
	LastFetchedAt    *time.Time          `json:"last_fetched_at,omitempty"`
}

// API принимает ручные запросы на обновление и ставит их в очередь.
type API struct {
	queue   domain.RefreshQueue
	sources domain.SourceRepo
	log     zerolog.Logger
	now     func() time.Time
}

// NewAPI создаёт обработчики ручного запуска.
func NewAPI(queue domain.RefreshQueue, sources domain.SourceRepo, log zerolog.Logger) *API {
	return &API{queue: queue, sources: sources, log: log, now: time.Now}
}

// Register подключает маршруты /api/v1.
func (a *API) Register(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/sources", a.listSources)
		r.Post("/sources/{id}/refresh", a.refreshSource)
		r.Post("/providers/{provider}/refresh", a.refreshProvider)
		r.Post("/retention/sweep", a.sweep)
	})
}

func (a *API) listSources(w http.ResponseWriter, r *http.Request) {
	sources, err := a.sources.ListSources(r.Context())
	if err != nil {
		a.log.Error().Err(err).Msg("api: list sources")
		httpinfra.WriteError(w, r, http.StatusInternalServerError, errors.New("failed to list sources"))
		return
	}
	out := make([]sourceView, 0, len(sources))
	for _, src := range sources {
		out = append(out, sourceView{
			ID:               src.ID,
			Name:             src.Name,
			Provider:         src.Provider,
			URL:              src.BaseURL,
			Active:           src.Active,
			AutoFetchEnabled: src.AutoFetchEnabled,
			Status:           src.Status,
			LastFetchedAt:    src.LastFetchedAt,
		})
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]any{"sources": out})
}

func (a *API) refreshSource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := a.sources.GetSource(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrSourceNotFound) {
			httpinfra.WriteError(w, r, http.StatusNotFound, fmt.Errorf("source %q not found", id))
			return
		}
		a.log.Error().Err(err).Str("source", id).Msg("api: get source")
		httpinfra.WriteError(w, r, http.StatusInternalServerError, errors.New("failed to load source"))
		return
	}
	a.enqueue(w, r, domain.RefreshJob{Kind: domain.RefreshKindSource, SourceID: id})
}

func (a *API) refreshProvider(w http.ResponseWriter, r *http.Request) {
	provider, ok := domain.ParseProviderType(chi.URLParam(r, "provider"))
	if !ok {
		httpinfra.WriteError(w, r, http.StatusBadRequest, fmt.Errorf("unknown provider %q", chi.URLParam(r, "provider")))
		return
	}
	a.enqueue(w, r, domain.RefreshJob{Kind: domain.RefreshKindProvider, Provider: provider})
}

func (a *API) sweep(w http.ResponseWriter, r *http.Request) {
	a.enqueue(w, r, domain.RefreshJob{Kind: domain.RefreshKindSweep})
}

func (a *API) enqueue(w http.ResponseWriter, r *http.Request, job domain.RefreshJob) {
	job.ID = uuid.NewString()
	job.RequestedAt = a.now().UTC()
	job.Cause = domain.RefreshCauseManual
	if err := a.queue.Enqueue(r.Context(), job); err != nil {
		a.log.Error().Err(err).Str("request_id", httpinfra.RequestID(r)).Msg("api: enqueue refresh job")
		httpinfra.WriteError(w, r, http.StatusServiceUnavailable, errors.New("failed to enqueue job"))
		return
	}
	a.log.Info().Str("job_id", job.ID).Str("kind", string(job.Kind)).Msg("api: refresh job enqueued")
	httpinfra.WriteJSON(w, http.StatusAccepted, job)
}
