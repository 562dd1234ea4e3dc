// Minimal end-to-end check of a running simd-tracker.
//
// Run from repo root against a server started with `simd-tracker serve`:
//
//	CRON_SECRET=... JWT_SECRET=... go run ./scripts/api
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	baseURL    = getenv("API_URL", "http://localhost:8080")
	redisURL   = getenv("REDIS_URL", "")
	cronSecret = getenv("CRON_SECRET", "")
	jwtSecret  = getenv("JWT_SECRET", "")
	client     = &http.Client{Timeout: 10 * time.Minute}
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	if cronSecret == "" || jwtSecret == "" {
		log.Fatal("CRON_SECRET and JWT_SECRET are required")
	}

	doReq("GET", "/healthz", "", nil, http.StatusOK)
	doReq("POST", "/v1/cron/sync-all", "", nil, http.StatusUnauthorized)

	var all struct {
		Success bool              `json:"success"`
		Errors  map[string]string `json:"errors"`
	}
	doReq("POST", "/v1/cron/sync-all", cronSecret, &all, http.StatusOK)
	if !all.Success {
		log.Fatalf("sync-all: %v", all.Errors)
	}

	var list struct {
		SIMDs []struct {
			ID string `json:"id"`
		} `json:"simds"`
	}
	doReq("GET", "/v1/simds?limit=5", "", &list, http.StatusOK)
	if len(list.SIMDs) == 0 {
		log.Fatal("simds: empty after sync")
	}
	doReq("GET", "/v1/simds/"+list.SIMDs[0].ID, "", nil, http.StatusOK)
	doReq("GET", "/v1/feeds/open-prs", "", nil, http.StatusOK)

	token := adminToken()
	var jobs struct {
		Jobs []struct {
			JobType string `json:"job_type"`
			Status  string `json:"status"`
		} `json:"jobs"`
	}
	doReq("GET", "/v1/admin/jobs?limit=3", token, &jobs, http.StatusOK)
	for _, j := range jobs.Jobs {
		if j.Status == "failed" {
			log.Fatalf("jobs: %s failed", j.JobType)
		}
	}
	doReq("GET", "/v1/admin/digest", token, nil, http.StatusOK)

	if redisURL != "" {
		checkEvents()
	}
	fmt.Println("✓ all endpoints passed")
}

func adminToken() string {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "smoke-test",
		"jti": uuid.NewString(),
		"exp": time.Now().Add(5 * time.Minute).Unix(),
	}).SignedString([]byte(jwtSecret))
	if err != nil {
		log.Fatalf("sign: %v", err)
	}
	return tok
}

// checkEvents expects the sync-all run to have published onto the event stream.
func checkEvents() {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("redis url: %v", err)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()
	msgs, err := rdb.XRevRangeN(context.Background(), "simdtracker.events", "+", "-", 3).Result()
	if err != nil {
		log.Fatalf("redis xrevrange: %v", err)
	}
	if len(msgs) == 0 {
		log.Fatal("events: stream is empty")
	}
}

func doReq(method, path, token string, out any, want int) {
	req, _ := http.NewRequest(method, baseURL+path, &bytes.Buffer{})
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	if res.StatusCode != want {
		log.Fatalf("%s %s: want %d got %d", method, path, want, res.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			log.Fatalf("%s %s decode: %v", method, path, err)
		}
	}
}
