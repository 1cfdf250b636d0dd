// Laptop Tracker Webhook Receiver Example
//
// A minimal receiver that checks the signature laptop-tracker adds to its
// replacement notifications when WEBHOOK_SIGNING_SECRET is set, then prints
// the MessageCard facts.
//
// Usage:
//   export WEBHOOK_SIGNING_SECRET="your_secret_here"
//   go run main.go
//
// Then point TEAMS_WEBHOOK_URL at http://your-server:9000/webhook

package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"strconv"
	"time"
)

// MessageCard is the notification payload.
type MessageCard struct {
	Summary  string    `json:"summary"`
	Sections []Section `json:"sections"`
}

type Section struct {
	ActivityTitle string `json:"activityTitle"`
	Facts         []Fact `json:"facts"`
}

type Fact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func main() {
	secret := os.Getenv("WEBHOOK_SIGNING_SECRET")
	if secret == "" {
		log.Fatal("WEBHOOK_SIGNING_SECRET environment variable is required")
	}

	http.HandleFunc("/webhook", webhookHandler(secret))
	http.HandleFunc("/health", healthHandler)

	log.Println("Starting webhook receiver on :9000")
	log.Println("Endpoint: http://localhost:9000/webhook")
	log.Fatal(http.ListenAndServe(":9000", nil))
}

func webhookHandler(secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.Printf("Error reading body: %v", err)
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		signature := r.Header.Get("X-LaptopTracker-Signature")
		timestamp := r.Header.Get("X-LaptopTracker-Timestamp")
		if signature == "" || timestamp == "" {
			log.Println("Missing signature headers")
			http.Error(w, "Missing signature", http.StatusUnauthorized)
			return
		}

		if !verifySignature(signature, timestamp, string(body), secret) {
			log.Println("Invalid signature")
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}

		var card MessageCard
		if err := json.Unmarshal(body, &card); err != nil {
			log.Printf("Error parsing JSON: %v", err)
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		log.Printf("✓ %s (delivery %s)", card.Summary, r.Header.Get("X-LaptopTracker-Delivery-Id"))
		for _, section := range card.Sections {
			log.Printf("  Device: %s", section.ActivityTitle)
			for _, fact := range section.Facts {
				log.Printf("  %-17s %s", fact.Name+":", fact.Value)
			}
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "received"})
	}
}

// verifySignature checks the hex HMAC-SHA256 of "{timestamp}.{body}".
func verifySignature(signature, timestamp, body, secret string) bool {
	// Check timestamp (±5 min tolerance)
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	if math.Abs(float64(time.Now().Unix()-ts)) > 300 {
		log.Println("Signature timestamp too old or in future")
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "." + body))
	expected := hex.EncodeToString(mac.Sum(nil))

	// Constant-time comparison
	return hmac.Equal([]byte(signature), []byte(expected))
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
