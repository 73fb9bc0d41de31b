// Eventide revalidation receiver example.
//
// A minimal front-end hook that accepts the signed POST the RSVP API sends
// after each new RSVP and drops its cached copy of the listed paths.
//
// Usage:
//
//	export REVALIDATE_SECRET="the value configured on the API"
//	go run main.go
//
// Then start the API with REVALIDATE_URL=http://your-host:9000/api/revalidate
package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

const replayWindow = 5 * time.Minute

// revalidateRequest mirrors the body posted by the API.
type revalidateRequest struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	Paths      []string  `json:"paths"`
	OccurredAt time.Time `json:"occurred_at"`
}

// pageCache stands in for a static-site or CDN cache.
type pageCache struct {
	mu    sync.Mutex
	pages map[string]time.Time
}

func (c *pageCache) purge(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pages, path)
}

func main() {
	secret := os.Getenv("REVALIDATE_SECRET")
	if secret == "" {
		log.Fatal("REVALIDATE_SECRET environment variable is required")
	}

	cache := &pageCache{pages: map[string]time.Time{"/": time.Now()}}

	http.HandleFunc("/api/revalidate", revalidateHandler(secret, cache))

	log.Println("revalidate receiver listening on :9000")
	log.Fatal(http.ListenAndServe(":9000", nil))
}

func revalidateHandler(secret string, cache *pageCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		timestamp, err := strconv.ParseInt(r.Header.Get("X-Eventide-Timestamp"), 10, 64)
		if err != nil {
			http.Error(w, "missing timestamp", http.StatusUnauthorized)
			return
		}
		if !verify(secret, r.Header.Get("X-Eventide-Signature"), timestamp, body) {
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}

		var req revalidateRequest
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}

		for _, path := range req.Paths {
			cache.purge(path)
		}
		log.Printf("revalidated %v for %s (%s)", req.Paths, req.Type, req.EventID)

		w.WriteHeader(http.StatusNoContent)
	}
}

// verify checks hex(HMAC-SHA256(secret, "{timestamp}.{body}")) and rejects
// timestamps more than replayWindow away from now.
func verify(secret, signature string, timestamp int64, body []byte) bool {
	age := time.Since(time.Unix(timestamp, 0))
	if age < -replayWindow || age > replayWindow {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10) + "."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
