package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"meeting-service/internal/domain"
	"meeting-service/internal/middleware"
	"meeting-service/internal/usecase/booking"
	"meeting-service/pkg/response"

	"github.com/go-chi/chi/v5"
)

// writeBookingError maps the domain error taxonomy onto HTTP statuses.
// ConfirmationRequired is a structured 409 carrying the computed fee so
// the client can resubmit with confirmed=true.
func writeBookingError(w http.ResponseWriter, err error) {
	if cr, ok := domain.AsConfirmationRequired(err); ok {
		response.ErrorWithData(w, http.StatusConflict, "Cancellation requires confirmation", map[string]interface{}{
			"requires_confirmation": true,
			"fee":                   cr.Fee,
			"refund_credit":         cr.RefundCredit,
		})
		return
	}

	var insufficient *domain.InsufficientCreditsError
	if errors.As(err, &insufficient) {
		response.ErrorWithData(w, http.StatusPaymentRequired, insufficient.Error(), map[string]interface{}{
			"required_credits":  insufficient.Required,
			"available_credits": insufficient.Available,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrPermissionDenied):
		response.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotAParticipant):
		response.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrSlotUnavailable):
		response.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidStateTransition):
		response.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, err.Error())
	default:
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}

func CreateMeetingHandler(uc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r.Context())
		if !ok {
			response.Error(w, http.StatusUnauthorized, "Missing user identity")
			return
		}

		var body struct {
			TargetID     string `json:"target_id"`
			Date         string `json:"date"`
			Time         string `json:"time"`
			Type         string `json:"type"`
			LocationPref string `json:"location_pref"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		m, err := uc.CreateMeeting(r.Context(), domain.CreateMeetingCommand{
			RequesterID:  userID,
			TargetID:     body.TargetID,
			Date:         body.Date,
			Time:         body.Time,
			Type:         domain.MeetingType(body.Type),
			LocationPref: body.LocationPref,
		})
		if err != nil {
			writeBookingError(w, err)
			return
		}
		response.JSON(w, http.StatusCreated, m)
	}
}

func RespondToMeetingHandler(uc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r.Context())
		if !ok {
			response.Error(w, http.StatusUnauthorized, "Missing user identity")
			return
		}
		meetingID := chi.URLParam(r, "meetingID")

		var body struct {
			Action string `json:"action"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		if body.Action != "accept" && body.Action != "decline" {
			response.Error(w, http.StatusBadRequest, "Action must be accept or decline")
			return
		}

		m, err := uc.Respond(r.Context(), domain.RespondCommand{
			MeetingID: meetingID,
			UserID:    userID,
			Accept:    body.Action == "accept",
		})
		if err != nil {
			writeBookingError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, map[string]interface{}{
			"meeting_id":     m.ID,
			"meeting_status": m.Status,
		})
	}
}

func CancellationPreviewHandler(uc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r.Context())
		if !ok {
			response.Error(w, http.StatusUnauthorized, "Missing user identity")
			return
		}
		meetingID := chi.URLParam(r, "meetingID")

		d, warning, err := uc.CancellationPreview(r.Context(), meetingID, userID)
		if err != nil {
			writeBookingError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, map[string]interface{}{
			"fee":                   d.Fee,
			"refund_credit":         d.RefundCredit,
			"requires_confirmation": d.RequiresConfirmation,
			"warning_text":          warning,
		})
	}
}

func CancelMeetingHandler(uc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r.Context())
		if !ok {
			response.Error(w, http.StatusUnauthorized, "Missing user identity")
			return
		}
		meetingID := chi.URLParam(r, "meetingID")

		var body struct {
			Reason    string `json:"reason"`
			Confirmed bool   `json:"confirmed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		res, err := uc.Cancel(r.Context(), domain.CancelMeetingCommand{
			MeetingID: meetingID,
			UserID:    userID,
			Reason:    body.Reason,
			Confirmed: body.Confirmed,
		})
		if err != nil {
			writeBookingError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, res)
	}
}

func GetMeetingHandler(uc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r.Context())
		if !ok {
			response.Error(w, http.StatusUnauthorized, "Missing user identity")
			return
		}
		meetingID := chi.URLParam(r, "meetingID")

		m, participants, err := uc.GetMeeting(r.Context(), meetingID, userID)
		if err != nil {
			writeBookingError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, map[string]interface{}{
			"meeting":      m,
			"participants": participants,
		})
	}
}

func CompleteMeetingHandler(uc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		meetingID := chi.URLParam(r, "meetingID")

		m, err := uc.Complete(r.Context(), meetingID)
		if err != nil {
			writeBookingError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, map[string]interface{}{
			"meeting_id":     m.ID,
			"meeting_status": m.Status,
		})
	}
}

func SetCancellationFeeHandler(uc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		meetingID := chi.URLParam(r, "meetingID")

		var body struct {
			Fee *int64 `json:"fee"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		if body.Fee == nil {
			response.Error(w, http.StatusBadRequest, "Missing fee")
			return
		}

		if err := uc.SetCancellationFee(r.Context(), meetingID, *body.Fee); err != nil {
			writeBookingError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, map[string]interface{}{
			"meeting_id":       meetingID,
			"cancellation_fee": *body.Fee,
		})
	}
}
