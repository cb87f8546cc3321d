package observability

import "net/http"

var healthOK = []byte(`{"status":"ok"}`)

// HealthHandler serves liveness checks at /healthz. It always answers 200
// with {"status":"ok"}.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusOK)

		_, err := rw.Write(healthOK)
		if err != nil {
			return
		}
	})
}
