package middleware

import (
	"context"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/xid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// maxIncomingIDLen bounds a client-supplied id before it reaches the logs.
const maxIncomingIDLen = 64

// RequestID assigns every request an id and echoes it in the response.
//
// An incoming X-Request-ID is reused so calls can be traced through a proxy.
// Otherwise a new xid is generated (20 chars, sortable by time).
//
// The id is stored under chi's RequestIDKey, so chimiddleware.GetReqID
// works everywhere downstream, including chi's own Recoverer output.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxIncomingIDLen {
			id = xid.New().String()
		}

		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), chimiddleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
