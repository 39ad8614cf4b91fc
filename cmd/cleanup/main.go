package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Triggers the retention sweep on a running API instance. Meant for manual
// runs and cron fallbacks when no external scheduler is configured.
func main() {
	_ = godotenv.Load()

	baseURL := strings.TrimRight(os.Getenv("SELF_BASE_URL"), "/")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	secret := strings.TrimSpace(os.Getenv("CRON_SECRET"))
	if secret == "" {
		fmt.Fprintln(os.Stderr, "CRON_SECRET is required")
		os.Exit(1)
	}

	req, err := http.NewRequest(http.MethodGet, baseURL+"/v1/cron/cleanup", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Authorization", "Bearer "+secret)

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cleanup request failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "cleanup returned status %d: %s\n", resp.StatusCode, strings.TrimSpace(string(body)))
		os.Exit(1)
	}
	fmt.Println(strings.TrimSpace(string(body)))
}
