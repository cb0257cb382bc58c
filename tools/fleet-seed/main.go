// Command fleet-seed loads a small demo data set through the HTTP API: one
// service area, a couple of companies, a handful of autos, and one booking so
// the dashboard has something to show.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	var (
		baseURL  = flag.String("base-url", getenv("BASE_URL", "http://localhost:8080"), "gateway base url")
		areaName = flag.String("area", getenv("SEED_AREA", "Banani"), "service area name")
		pinCode  = flag.String("pin-code", getenv("SEED_PIN_CODE", "1213"), "service area pin code")
		autos    = flag.Int("autos", 5, "number of autos to register")
		book     = flag.Bool("book", true, "create a 7-day booking on the first auto")
	)
	flag.Parse()

	base := strings.TrimRight(*baseURL, "/")
	if *autos < 1 {
		fatal("autos must be at least 1")
	}

	areaID := post(base+"/api/v1/areas", map[string]any{
		"name":     *areaName,
		"pin_code": *pinCode,
	})
	fmt.Printf("area=%s\n", areaID)

	companyID := post(base+"/api/v1/companies", map[string]any{
		"name":           "Demo Advertising Ltd",
		"contact_person": "Demo Contact",
		"email":          "ads@demo.example",
		"phone_number":   "+8801700000000",
	})
	fmt.Printf("company=%s\n", companyID)

	postNoID(base+"/api/v1/companies/status", map[string]any{
		"id":     companyID,
		"status": "ACTIVE",
	})

	autoIDs := make([]string, 0, *autos)
	for i := 0; i < *autos; i++ {
		autoID := post(base+"/api/v1/autos", map[string]any{
			"auto_no":    fmt.Sprintf("DH51KA%04d", 1000+i),
			"owner_name": fmt.Sprintf("Owner %d", i+1),
			"area_id":    areaID,
		})
		autoIDs = append(autoIDs, autoID)
		fmt.Printf("auto=%s\n", autoID)
	}

	if *book {
		start := time.Now().UTC().Format("2006-01-02")
		postNoID(base+"/api/v1/assignments", map[string]any{
			"auto_id":    autoIDs[0],
			"company_id": companyID,
			"start_date": start,
			"days":       7,
		})
		fmt.Printf("booked auto %s for 7 days from %s\n", autoIDs[0], start)
	}
}

func post(url string, body map[string]any) string {
	data := do(url, body)
	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil || parsed.ID == "" {
		fatal(fmt.Sprintf("POST %s: no id in response: %s", url, data))
	}
	return parsed.ID
}

func postNoID(url string, body map[string]any) {
	do(url, body)
}

func do(url string, body map[string]any) []byte {
	payload, err := json.Marshal(body)
	if err != nil {
		fatal(err.Error())
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	if resp.StatusCode >= 300 {
		fatal(fmt.Sprintf("POST %s: status=%d body=%s", url, resp.StatusCode, buf.String()))
	}
	return buf.Bytes()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
