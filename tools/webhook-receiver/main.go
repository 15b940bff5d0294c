// Command webhook-receiver is a local test endpoint for lifecycle
// notifications and daily digests. It verifies HMAC signatures when
// SECRET is set and keeps a rolling window of received payloads for
// inspection via /stats.
package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"
)

type delivery struct {
	ReceivedAt     string `json:"received_at"`
	Kind           string `json:"kind"`
	EventID        string `json:"event_id,omitempty"`
	SignatureValid *bool  `json:"signature_valid,omitempty"`
	Body           string `json:"body"`
}

type stats struct {
	Total         int64      `json:"total"`
	StatusChanges int64      `json:"status_changes"`
	Digests       int64      `json:"digests"`
	BadSignatures int64      `json:"bad_signatures"`
	Recent        []delivery `json:"recent"`
	Since         string     `json:"since"`
}

var (
	mu            sync.Mutex
	total         int64
	statusChanges int64
	digests       int64
	badSignatures int64
	recent        []delivery
	since         time.Time

	secret = os.Getenv("SECRET")

	maxStored = 50
)

func main() {
	since = time.Now().UTC()

	addr := ":9090"
	if v := os.Getenv("ADDR"); v != "" {
		addr = v
	}

	http.HandleFunc("/hook", hookHandler)
	http.HandleFunc("/stats", statsHandler)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	http.HandleFunc("/reset", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		total, statusChanges, digests, badSignatures = 0, 0, 0, 0
		recent = nil
		since = time.Now().UTC()
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "reset")
	})

	if secret != "" {
		log.Println("webhook-receiver: signature verification enabled")
	}
	log.Printf("webhook-receiver listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}

func hookHandler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	kind := "status_change"
	if r.Header.Get("X-CampusConnect-Digest") != "" {
		kind = "digest"
	}

	var sigValid *bool
	if secret != "" {
		v := verifySignature(body, r.Header.Get("X-CampusConnect-Signature"))
		sigValid = &v
	}

	var payload struct {
		EventID string `json:"event_id"`
	}
	_ = json.Unmarshal(body, &payload)

	d := delivery{
		ReceivedAt:     time.Now().UTC().Format(time.RFC3339Nano),
		Kind:           kind,
		EventID:        payload.EventID,
		SignatureValid: sigValid,
		Body:           string(body),
	}

	mu.Lock()
	total++
	switch kind {
	case "digest":
		digests++
	default:
		statusChanges++
	}
	if sigValid != nil && !*sigValid {
		badSignatures++
	}
	recent = append(recent, d)
	if len(recent) > maxStored {
		recent = recent[len(recent)-maxStored:]
	}
	current := total
	mu.Unlock()

	if sigValid != nil && !*sigValid {
		log.Printf("hook #%d (%s): BAD SIGNATURE: %s", current, kind, string(body))
	} else {
		log.Printf("hook #%d (%s): %s", current, kind, string(body))
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"received":%d}`, current)
}

func verifySignature(body []byte, header string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}

func statsHandler(w http.ResponseWriter, _ *http.Request) {
	mu.Lock()
	s := stats{
		Total:         total,
		StatusChanges: statusChanges,
		Digests:       digests,
		BadSignatures: badSignatures,
		Recent:        recent,
		Since:         since.Format(time.RFC3339),
	}
	mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s)
}
