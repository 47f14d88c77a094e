package controllers

import (
	"net/http"

	"github.com/nordtolk/booking-backend/api/middleware"
	"github.com/nordtolk/booking-backend/api/responses"
)

// PublicPing answers unauthenticated health probes.
func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

// PrivatePing confirms a valid session and echoes the caller type.
func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if userType := middleware.UserTypeFromContext(r.Context()); userType != "" {
			payload["user_type"] = userType
		}
		responses.WriteSuccess(w, payload)
	}
}

func AdminPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "admin", "status": "ok"})
	}
}
