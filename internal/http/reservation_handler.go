package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/example/training-reservations/internal/application"
	"github.com/example/training-reservations/internal/calendar"
)

type reservationService interface {
	TryCreate(ctx context.Context, params application.CreateReservationParams) (application.Reservation, error)
	DeleteReservation(ctx context.Context, principal application.Principal, id string) (bool, error)
	ListReservations(ctx context.Context) ([]application.Reservation, error)
	GetReservation(ctx context.Context, id string) (application.Reservation, error)
	CheckAvailability(ctx context.Context, start, end time.Time) (application.Availability, error)
}

type ReservationHandler struct {
	service   reservationService
	validate  *validator.Validate
	responder responder
	logger    *slog.Logger
	feedName  string
}

func NewReservationHandler(service reservationService, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{
		service:   service,
		validate:  newValidator(),
		responder: newResponder(base),
		logger:    base,
		feedName:  "Training room reservations",
	}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	reservations, err := h.service.ListReservations(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(w, r, err)
		return
	}

	logger.DebugContext(r.Context(), "reservations listed", "result_count", len(reservations))
	h.responder.writeJSON(w, r, http.StatusOK, toReservationDTOs(reservations))
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		h.responder.writeError(w, r, http.StatusBadRequest, CodeBadRequest, errInvalidReservationID)
		return
	}

	reservation, err := h.service.GetReservation(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(w, r, err)
		return
	}
	h.responder.writeJSON(w, r, http.StatusOK, toReservationDTO(reservation))
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req createReservationRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode reservation request", "error", err)
		h.responder.writeError(w, r, http.StatusBadRequest, CodeBadRequest, errBadRequestBody)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "validation").InfoContext(r.Context(), "invalid reservation request", "error", err)
		h.responder.handleServiceError(w, r, err)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID, "user_id", req.UserID)

	reservation, err := h.service.TryCreate(r.Context(), application.CreateReservationParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		var rejection *application.RejectionError
		if errors.As(err, &rejection) {
			logger.InfoContext(r.Context(), "reservation rejected", "reason", rejection.Message, "error_kind", application.ErrorKind(err))
		} else {
			logger.ErrorContext(r.Context(), "reservation creation failed", "error", err, "error_kind", application.ErrorKind(err))
		}
		h.responder.handleServiceError(w, r, err)
		return
	}

	logger.With("reservation_id", reservation.ID).InfoContext(r.Context(), "reservation created")
	w.Header().Set("Location", "/reservations/"+reservation.ID)
	h.responder.writeJSON(w, r, http.StatusCreated, toReservationDTO(reservation))
}

func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := strings.TrimSpace(chi.URLParam(r, "id"))
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "reservation_id", id)

	deleted, err := h.service.DeleteReservation(r.Context(), principal, id)
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(w, r, err)
		return
	}
	if !deleted {
		logger.InfoContext(r.Context(), "reservation not found")
		h.responder.writeJSON(w, r, http.StatusNotFound, errorResponse{
			ErrorCode: CodeNotFound,
			Message:   "Reservation not found.",
		})
		return
	}

	logger.InfoContext(r.Context(), "reservation deleted")
	h.responder.writeJSON(w, r, http.StatusNoContent, nil)
}

func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	vErr := &application.ValidationError{FieldErrors: map[string]string{}}
	start := parseQueryTime(query.Get("startTime"), "startTime", vErr)
	end := parseQueryTime(query.Get("endTime"), "endTime", vErr)
	if vErr.HasErrors() {
		h.responder.handleServiceError(w, r, vErr)
		return
	}

	availability, err := h.service.CheckAvailability(r.Context(), start, end)
	if err != nil {
		h.responder.handleServiceError(w, r, err)
		return
	}

	resp := availabilityResponse{Available: availability.Available, Conflicts: []conflictDTO{}}
	for _, c := range availability.Conflicts {
		resp.Conflicts = append(resp.Conflicts, conflictDTO{ID: c.ID, StartTime: formatTime(c.Start), EndTime: formatTime(c.End)})
	}
	h.responder.writeJSON(w, r, http.StatusOK, resp)
}

// Calendar serves every reservation as an iCalendar feed.
func (h *ReservationHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "Calendar")
	reservations, err := h.service.ListReservations(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(w, r, err)
		return
	}

	entries := make([]calendar.Entry, 0, len(reservations))
	for _, res := range reservations {
		entries = append(entries, calendar.Entry{
			ID:       res.ID,
			UserID:   res.UserID,
			Username: res.Username,
			Start:    res.Start,
			End:      res.End,
			Kind:     calendar.Kind(res.Type),
		})
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="reservations.ics"`)
	w.WriteHeader(http.StatusOK)
	if err := calendar.WriteICS(w, entries, calendar.FeedOptions{Name: h.feedName}); err != nil {
		logger.ErrorContext(r.Context(), "failed to write calendar feed", "error", err)
	}
}

func parseQueryTime(value, field string, vErr *application.ValidationError) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		vErr.FieldErrors[field] = field + " is required"
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		vErr.FieldErrors[field] = field + " must be an RFC 3339 timestamp"
		return time.Time{}
	}
	return t
}

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type createReservationRequest struct {
	UserID    string    `json:"userId" validate:"required"`
	StartTime time.Time `json:"startTime" validate:"required"`
	EndTime   time.Time `json:"endTime" validate:"required"`
	Type      int       `json:"type" validate:"oneof=0 1"`
}

func (r createReservationRequest) toInput() application.ReservationInput {
	return application.ReservationInput{
		UserID: strings.TrimSpace(r.UserID),
		Start:  r.StartTime,
		End:    r.EndTime,
		Type:   application.ReservationType(r.Type),
	}
}

type reservationDTO struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Type      int    `json:"type"`
	Username  string `json:"username"`
}

type availabilityResponse struct {
	Available bool          `json:"available"`
	Conflicts []conflictDTO `json:"conflicts"`
}

func toReservationDTO(reservation application.Reservation) reservationDTO {
	return reservationDTO{
		ID:        reservation.ID,
		UserID:    reservation.UserID,
		StartTime: formatTime(reservation.Start),
		EndTime:   formatTime(reservation.End),
		Type:      int(reservation.Type),
		Username:  reservation.Username,
	}
}

func toReservationDTOs(reservations []application.Reservation) []reservationDTO {
	out := make([]reservationDTO, 0, len(reservations))
	for _, reservation := range reservations {
		out = append(out, toReservationDTO(reservation))
	}
	return out
}
