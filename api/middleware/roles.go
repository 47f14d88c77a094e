package middleware

import (
	"net/http"

	"github.com/nordtolk/booking-backend/api/responses"
	"github.com/nordtolk/booking-backend/pkg/enums"
	pkgerrors "github.com/nordtolk/booking-backend/pkg/errors"
	"github.com/nordtolk/booking-backend/pkg/logger"
)

func RequireUserType(userType enums.UserType, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserTypeFromContext(r.Context()) != string(userType) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "actor type not allowed"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
