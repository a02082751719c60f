package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/amachi/voicedeck/internal/infrastructure/json"
)

var (
	startTime       = time.Now()
	healthy   int32 = 1 // 1: healthy, 0 = unhealthy
)

// PingFunc reports whether a backing dependency is reachable.
type PingFunc func(ctx context.Context) error

type Handler struct {
	db PingFunc
}

func NewHandler(db PingFunc) *Handler {
	return &Handler{db: db}
}

func SetHealthy(ok bool) {
	if ok {
		atomic.StoreInt32(&healthy, 1)
	} else {
		atomic.StoreInt32(&healthy, 0)
	}
}

func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	if atomic.LoadInt32(&healthy) == 0 {
		json.Write(w, http.StatusServiceUnavailable, healthResponse{
			Status:    "unhealthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Uptime:    time.Since(startTime).Round(time.Second).String(),
		})
		return
	}

	json.Write(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(startTime).Round(time.Second).String(),
	})
}

// GetReady also pings the database so load balancers stop routing to an
// instance that lost its store.
func (h *Handler) GetReady(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.db(ctx); err != nil {
			json.Write(w, http.StatusServiceUnavailable, healthResponse{
				Status:    "unhealthy",
				Timestamp: time.Now().UTC().Format(time.RFC3339),
				Uptime:    time.Since(startTime).Round(time.Second).String(),
			})
			return
		}
	}

	h.GetHealth(w, r)
}
