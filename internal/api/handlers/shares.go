package handlers

import (
	"net/http"
	"time"

	"github.com/cyp0633/caldora/internal/api/middleware"
	"github.com/cyp0633/caldora/internal/calendar"
	"github.com/cyp0633/caldora/server/storage"
	"github.com/gorilla/mux"
)

type ShareRequest struct {
	Username   string `json:"username"`
	Permission string `json:"permission"`
}

type ShareResponse struct {
	ID               string    `json:"id"`
	CalendarID       string    `json:"calendar_id"`
	OwnerID          string    `json:"owner_id"`
	SharedWithUserID string    `json:"shared_with_user_id"`
	Permission       string    `json:"permission"`
	CreatedAt        time.Time `json:"created_at"`
}

func toShareResponse(s *storage.Share) ShareResponse {
	return ShareResponse{
		ID:               s.ID,
		CalendarID:       s.CalendarID,
		OwnerID:          s.OwnerID,
		SharedWithUserID: s.SharedWithUserID,
		Permission:       s.Permission.String(),
		CreatedAt:        s.CreatedAt,
	}
}

// ListShares returns the shares of a calendar.
func ListShares(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListShares(r.Context(), userID(r), mux.Vars(r)["calendarId"])
		if err != nil {
			middleware.WriteAppError(w, err)
			return
		}

		shares := make([]ShareResponse, 0, len(list))
		for i := range list {
			shares = append(shares, toShareResponse(&list[i]))
		}
		writeJSON(w, http.StatusOK, shares)
	}
}

// CreateShare grants another user access to a calendar.
func CreateShare(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ShareRequest
		if err := decodeJSON(r, &req); err != nil {
			middleware.WriteAppError(w, err)
			return
		}
		if req.Username == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Username is required")
			return
		}
		perm, err := storage.ParsePermission(req.Permission)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Permission must be read, write or admin")
			return
		}

		share, err := svc.ShareCalendar(r.Context(), userID(r), mux.Vars(r)["calendarId"], req.Username, perm)
		if err != nil {
			middleware.WriteCreateError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toShareResponse(share))
	}
}

// DeleteShare revokes a share.
func DeleteShare(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		if err := svc.Unshare(r.Context(), userID(r), vars["calendarId"], vars["shareId"]); err != nil {
			middleware.WriteAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
