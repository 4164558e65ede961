package httptransport

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"verity/pkg/requestcontext"
)

const (
	requestIDHeader = "X-Request-Id"
	actorIDHeader   = "X-Actor-Id"
)

// RequestMeta stamps each request with a correlation id, the acting user
// from the gateway header, and a single clock reading so every timestamp
// written during the request agrees.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now().UTC())
		if actor := r.Header.Get(actorIDHeader); actor != "" {
			ctx = requestcontext.WithActorID(ctx, actor)
		}

		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
