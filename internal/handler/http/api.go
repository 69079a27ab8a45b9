package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/config"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/infra/client/backend"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/route"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/handler/marshaller"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/handler/middleware"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/service"
	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/service/grid"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var resourcePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,63}$`)

// Sessions is the slice of the session registry the API drives.
type Sessions interface {
	middleware.SessionLookup
	Login(ctx context.Context, creds backend.Credentials) (*service.Session, error)
	Logout(id uuid.UUID) error
	Stats() model.HubStats
}

type API struct {
	sessions        Sessions
	defaultPageSize int
	logger          *slog.Logger
}

func NewAPI(sessions *service.SessionRegistry, cfg *config.Config, logger *slog.Logger) *API {
	return newAPI(sessions, cfg.Grid.DefaultPageSize, logger)
}

func newAPI(sessions Sessions, defaultPageSize int, logger *slog.Logger) *API {
	if defaultPageSize <= 0 {
		defaultPageSize = 10
	}
	return &API{sessions: sessions, defaultPageSize: defaultPageSize, logger: logger}
}

type sessionResponse struct {
	SessionID string         `json:"session_id"`
	Identity  model.Identity `json:"identity"`
	Status    string         `json:"transport_status"`
}

func newSessionResponse(s *service.Session) sessionResponse {
	return sessionResponse{
		SessionID: s.ID.String(),
		Identity:  s.Identity(),
		Status:    s.Conn.Status().String(),
	}
}

func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var creds backend.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid login body")
		return
	}

	sess, err := a.sessions.Login(r.Context(), creds)
	if err != nil {
		var se *backend.StatusError
		if errors.As(err, &se) && se.Code < http.StatusInternalServerError {
			middleware.WriteError(w, http.StatusUnauthorized, "login rejected")
			return
		}
		a.logger.Warn("LOGIN_FAILED", "err", err)
		middleware.WriteError(w, http.StatusBadGateway, "backend unavailable")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, newSessionResponse(sess))
}

func (a *API) Whoami(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFrom(r.Context())
	middleware.WriteJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFrom(r.Context())
	if err := a.sessions.Logout(sess.ID); err != nil {
		middleware.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) Stats(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, a.sessions.Stats())
}

type notificationsResponse struct {
	marshaller.NotificationsView
	TransportStatus string `json:"transport_status"`
	Malformed       uint64 `json:"malformed_frames"`
	DroppedEmits    uint64 `json:"dropped_emits"`
}

func (a *API) Notifications(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFrom(r.Context())
	middleware.WriteJSON(w, http.StatusOK, notificationsResponse{
		NotificationsView: marshaller.NewNotificationsView(sess.Store.Snapshot()),
		TransportStatus:   sess.Conn.Status().String(),
		Malformed:         sess.Dispatcher.Malformed(),
		DroppedEmits:      sess.Conn.Dropped(),
	})
}

func (a *API) Open(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFrom(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	dest, err := sess.Notifier.Open(r.Context(), id)
	switch {
	case errors.Is(err, service.ErrMessageNotFound):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, route.ErrUnroutable), errors.Is(err, route.ErrMissingField):
		middleware.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		middleware.WriteError(w, http.StatusInternalServerError, err.Error())
	default:
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"url": dest})
	}
}

func (a *API) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFrom(r.Context())
	sess.Notifier.MarkAllRead(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) Grid(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFrom(r.Context())
	resource := chi.URLParam(r, "resource")
	if !resourcePattern.MatchString(resource) {
		middleware.WriteError(w, http.StatusBadRequest, "invalid resource")
		return
	}

	q, err := grid.DecodeQuery(r.URL.Query(), a.defaultPageSize)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := sess.Grid(r.Context(), resource, q)
	switch {
	case errors.Is(err, grid.ErrSuperseded):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, grid.ErrClosed):
		middleware.WriteError(w, http.StatusGone, err.Error())
	case err != nil:
		// The caller went away; nobody reads this answer.
		middleware.WriteError(w, http.StatusServiceUnavailable, err.Error())
	default:
		middleware.WriteJSON(w, http.StatusOK, view)
	}
}
