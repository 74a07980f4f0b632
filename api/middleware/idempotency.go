package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/little-explorers/storefront/api/responses"
	pkgerrors "github.com/little-explorers/storefront/pkg/errors"
	"github.com/little-explorers/storefront/pkg/logger"
	pkgredis "github.com/little-explorers/storefront/pkg/redis"
)

const (
	idempotencyHeader      = "Idempotency-Key"
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	adminOrdersPrefix      = "/api/admin/v1/orders/"
)

// routeTTL reports whether a route pattern takes part in replay and for how
// long its responses are kept. Order submission keeps the longest.
func routeTTL(method, pattern string) (time.Duration, bool) {
	pattern = strings.TrimSuffix(pattern, "/")
	switch {
	case pattern == "":
		return 0, false
	case method == http.MethodPost && pattern == "/api/v1/checkout":
		return criticalIdempotencyTTL, true
	case method == http.MethodPost && pattern == "/api/v1/checkout/cache":
		return defaultIdempotencyTTL, true
	case strings.HasPrefix(pattern+"/", adminOrdersPrefix) && method != http.MethodGet:
		return defaultIdempotencyTTL, true
	}
	return 0, false
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	Fingerprint string `json:"fingerprint"`
}

// Idempotency replays the stored response when a client repeats a request
// with the same Idempotency-Key. Requests without the header pass through,
// and 5xx responses are never stored so the client can retry them.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			ttl, eligible := routeTTL(r.Method, matchedPattern(r))
			if store == nil || clientKey == "" || !eligible {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			digest := sha256.Sum256(body)
			fingerprint := hex.EncodeToString(digest[:])

			scope := strings.Join([]string{SessionIDFromContext(ctx), UsernameFromContext(ctx), r.Method, r.URL.Path}, "|")
			key := store.IdempotencyKey(scope, clientKey)

			raw, err := store.Get(ctx, key)
			switch {
			case err != nil && !pkgredis.IsNil(err):
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency lookup"))
				return
			case raw != "":
				var prior storedResponse
				if err := json.Unmarshal([]byte(raw), &prior); err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency record unreadable"))
					return
				}
				if prior.Fingerprint != fingerprint {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "idempotency key reused with different request body"))
					return
				}
				if prior.ContentType != "" {
					w.Header().Set("Content-Type", prior.ContentType)
				}
				w.WriteHeader(prior.Status)
				_, _ = w.Write(prior.Body)
				return
			}

			capture := &responseCapture{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(capture, r)
			if capture.status >= http.StatusInternalServerError {
				return
			}

			encoded, err := json.Marshal(storedResponse{
				Status:      capture.status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
				Fingerprint: fingerprint,
			})
			if err == nil {
				_, err = store.SetNX(ctx, key, string(encoded), ttl)
			}
			if err != nil {
				logg.Error(ctx, "idempotency record not saved", err)
			}
		})
	}
}

// matchedPattern prefers chi's route pattern so path parameters do not
// defeat the route table. Mount points still end in a wildcard.
func matchedPattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" && !strings.HasSuffix(p, "*") {
			return p
		}
	}
	return r.URL.Path
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
