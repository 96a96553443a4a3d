package middlewares

import "net/http"

// IPPathRateKey generates a key based on IP + path, without reading the
// body. Separates limits per endpoint (initiate vs callback) while staying
// cheap.
func IPPathRateKey(r *http.Request) string {
	return clientIP(r) + "|" + r.URL.Path
}
