package middleware

import (
	"net/http"
)

// CORS выставляет заголовки для сконфигурированного origin и отвечает
// на preflight-запросы. Credentials разрешены, потому что токены ездят
// в httpOnly-куках.
func CORS(origin string) Middleware {
	return func(next http.Handler) http.Handler {
		// Пустой origin — мидлвар выключен.
		if origin == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-Id")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
