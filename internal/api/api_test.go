package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/erazemk/odeje/internal/analytics"
	"github.com/erazemk/odeje/internal/clock"
	"github.com/erazemk/odeje/internal/db"
	"github.com/erazemk/odeje/internal/model"
	"github.com/erazemk/odeje/internal/notify"
	"github.com/erazemk/odeje/internal/recommend"
	"github.com/erazemk/odeje/internal/store"
)

var testNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	database := db.NewTestDB(t)
	clk := clock.NewFixed(testNow)
	repo := store.NewRepository(database)

	router := NewRouter(Deps{
		DB:          database,
		Clock:       clk,
		Stats:       analytics.NewService(repo, clk, nil),
		Recommender: recommend.NewService(repo, clk, nil),
		Notifier:    notify.NewEngine(repo, repo, clk, nil),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

// do sends a JSON request and decodes the response into out, if given.
func do(t *testing.T, method, url string, body, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s response: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func createItem(t *testing.T, server *httptest.Server, name string, season model.Season) model.Item {
	t.Helper()
	var item model.Item
	status := do(t, "POST", server.URL+"/api/items", map[string]any{
		"name":          name,
		"season":        season,
		"weight_grams":  2000,
		"fill_material": "down",
	}, &item)
	if status != http.StatusCreated {
		t.Fatalf("expected 201 creating item, got %d", status)
	}
	return item
}

func TestUsageAPIFlow(t *testing.T) {
	server := setupTestServer(t)
	item := createItem(t, server, "Duvet", model.SeasonWinter)
	base := server.URL + "/api/items/"

	var open model.OpenUsage
	if status := do(t, "POST", base+itoa(item.ID)+"/usage/start", nil, &open); status != http.StatusCreated {
		t.Fatalf("expected 201 starting usage, got %d", status)
	}
	if !open.StartedAt.Equal(testNow) {
		t.Errorf("expected start to default to now, got %v", open.StartedAt)
	}

	// Second start conflicts and reports the item's status.
	var conflict errorBody
	if status := do(t, "POST", base+itoa(item.ID)+"/usage/start", nil, &conflict); status != http.StatusConflict {
		t.Fatalf("expected 409 on second start, got %d", status)
	}
	if conflict.ItemID != item.ID || conflict.Status != model.StatusInUse {
		t.Errorf("unexpected conflict body %+v", conflict)
	}

	// End before start is rejected.
	var invalid errorBody
	status := do(t, "POST", base+itoa(item.ID)+"/usage/end",
		map[string]any{"ended_at": testNow.AddDate(0, 0, -1)}, &invalid)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for end before start, got %d", status)
	}
	if invalid.Field != "ended_at" {
		t.Errorf("expected ended_at field error, got %+v", invalid)
	}

	var period model.UsagePeriod
	status = do(t, "POST", base+itoa(item.ID)+"/usage/end", map[string]any{
		"ended_at":     testNow.AddDate(0, 0, 10),
		"satisfaction": 5,
	}, &period)
	if status != http.StatusOK {
		t.Fatalf("expected 200 ending usage, got %d", status)
	}
	if period.DurationDays != 10 || period.SeasonUsed != model.SeasonWinter {
		t.Errorf("unexpected period %+v", period)
	}

	if status := do(t, "POST", base+itoa(item.ID)+"/usage/end", nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 on second end, got %d", status)
	}

	var got struct {
		Item  model.Item          `json:"item"`
		Stats analytics.ItemStats `json:"stats"`
	}
	if status := do(t, "GET", base+itoa(item.ID), nil, &got); status != http.StatusOK {
		t.Fatalf("expected 200 getting item, got %d", status)
	}
	if got.Item.Status != model.StatusAvailable {
		t.Errorf("expected item AVAILABLE after end, got %s", got.Item.Status)
	}
	if got.Stats.TotalUsages != 1 || got.Stats.TotalUsageDays != 10 {
		t.Errorf("unexpected stats %+v", got.Stats)
	}
}

func TestItemNotFound(t *testing.T) {
	server := setupTestServer(t)

	if status := do(t, "GET", server.URL+"/api/items/999", nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 for missing item, got %d", status)
	}
	if status := do(t, "POST", server.URL+"/api/items/999/usage/start", nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 starting usage on missing item, got %d", status)
	}
	if status := do(t, "GET", server.URL+"/api/items/abc", nil, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", status)
	}
}

func TestItemValidation(t *testing.T) {
	server := setupTestServer(t)

	var body errorBody
	status := do(t, "POST", server.URL+"/api/items", map[string]any{"name": "X", "season": "MONSOON"}, &body)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown season, got %d", status)
	}
	if body.Field != "season" {
		t.Errorf("expected season field error, got %+v", body)
	}
}

func TestLocationDeleteRefusedWhileHoldingItems(t *testing.T) {
	server := setupTestServer(t)

	var loc model.Location
	status := do(t, "POST", server.URL+"/api/locations", map[string]string{
		"name": "Linen closet",
		"kind": model.LocationKindCloset,
	}, &loc)
	if status != http.StatusCreated {
		t.Fatalf("expected 201 creating location, got %d", status)
	}

	item := createItem(t, server, "Duvet", model.SeasonWinter)
	var move model.Move
	status = do(t, "POST", server.URL+"/api/items/"+itoa(item.ID)+"/move",
		map[string]any{"to_location_id": loc.ID}, &move)
	if status != http.StatusCreated {
		t.Fatalf("expected 201 moving item, got %d", status)
	}
	if move.ToLocationID != loc.ID || !move.MovedAt.Equal(testNow) {
		t.Errorf("unexpected move %+v", move)
	}

	if status := do(t, "DELETE", server.URL+"/api/locations/"+itoa(loc.ID), nil, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 deleting occupied location, got %d", status)
	}
}

func TestNotificationsCheck(t *testing.T) {
	server := setupTestServer(t)

	var report struct {
		WeatherChange int      `json:"weather_change"`
		Total         int      `json:"total"`
		Errors        []string `json:"errors"`
	}
	status := do(t, "POST", server.URL+"/api/notifications/check", map[string]any{
		"weather":          map[string]float64{"current": 3, "previous": 10},
		"skip_maintenance": true,
		"skip_disposal":    true,
	}, &report)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from check, got %d", status)
	}
	if report.WeatherChange != 1 || report.Total != 1 || len(report.Errors) != 0 {
		t.Errorf("unexpected report %+v", report)
	}

	var list struct {
		Notifications []model.Notification `json:"notifications"`
		Unread        int                  `json:"unread"`
	}
	do(t, "GET", server.URL+"/api/notifications", nil, &list)
	if len(list.Notifications) != 1 || list.Unread != 1 {
		t.Fatalf("expected 1 unread notification, got %+v", list)
	}

	id := list.Notifications[0].ID
	if status := do(t, "PUT", server.URL+"/api/notifications/"+itoa(id)+"/read", nil, nil); status != http.StatusOK {
		t.Errorf("expected 200 marking read, got %d", status)
	}
	do(t, "GET", server.URL+"/api/notifications?unread=true", nil, &list)
	if len(list.Notifications) != 0 || list.Unread != 0 {
		t.Errorf("expected no unread notifications, got %+v", list)
	}
}

func TestRecommendationsUseSeasonalFallback(t *testing.T) {
	server := setupTestServer(t)
	createItem(t, server, "Duvet", model.SeasonWinter)
	createItem(t, server, "Sheet", model.SeasonSummer)

	var res recommend.Result
	if status := do(t, "GET", server.URL+"/api/recommendations?materials=down", nil, &res); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if res.WeatherSource != recommend.SourceSeasonal || res.Season != model.SeasonWinter {
		t.Errorf("expected seasonal winter fallback, got %s/%s", res.WeatherSource, res.Season)
	}
	if len(res.Ranked) != 2 || res.Ranked[0].Item.Name != "Duvet" {
		t.Errorf("expected the winter duvet ranked first, got %+v", res.Ranked)
	}

	if status := do(t, "GET", server.URL+"/api/recommendations?top=0", nil, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for top=0, got %d", status)
	}
}

func TestWeatherRecordAndLatest(t *testing.T) {
	server := setupTestServer(t)

	var reading model.WeatherReading
	status := do(t, "POST", server.URL+"/api/weather", map[string]float64{"temperature": 4.5, "humidity": 70}, &reading)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	if !reading.RecordedAt.Equal(testNow) {
		t.Errorf("expected recorded_at to default to now, got %v", reading.RecordedAt)
	}

	if status := do(t, "POST", server.URL+"/api/weather", map[string]float64{"temperature": 4.5}, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 without humidity, got %d", status)
	}

	var readings []model.WeatherReading
	do(t, "GET", server.URL+"/api/weather", nil, &readings)
	if len(readings) != 1 || readings[0].Temperature != 4.5 {
		t.Errorf("unexpected readings %+v", readings)
	}
}

func TestStatsDashboard(t *testing.T) {
	server := setupTestServer(t)
	item := createItem(t, server, "Duvet", model.SeasonWinter)
	do(t, "POST", server.URL+"/api/items/"+itoa(item.ID)+"/usage/start", nil, nil)

	var overview analytics.Overview
	if status := do(t, "GET", server.URL+"/api/stats/overview", nil, &overview); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if overview.TotalItems != 1 || overview.CurrentlyInUse != 1 {
		t.Errorf("unexpected overview %+v", overview)
	}

	if status := do(t, "GET", server.URL+"/api/stats/most-used?limit=-1", nil, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for negative limit, got %d", status)
	}

	var dash map[string]json.RawMessage
	if status := do(t, "GET", server.URL+"/api/stats", nil, &dash); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if _, ok := dash["overview"]; !ok {
		t.Errorf("expected overview in dashboard, got keys %v", dash)
	}
}

func TestSnapshotsRebuild(t *testing.T) {
	server := setupTestServer(t)
	item := createItem(t, server, "Duvet", model.SeasonWinter)
	do(t, "POST", server.URL+"/api/items/"+itoa(item.ID)+"/usage/start",
		map[string]any{"started_at": testNow.AddDate(0, 0, -4)}, nil)

	var res map[string]int
	if status := do(t, "POST", server.URL+"/api/snapshots/rebuild", nil, &res); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if res["days"] != 5 {
		t.Errorf("expected 5 days rebuilt from first usage, got %d", res["days"])
	}

	var snaps []model.DailySnapshot
	do(t, "GET", server.URL+"/api/snapshots?from=2024-01-07", nil, &snaps)
	if len(snaps) != 4 {
		t.Errorf("expected 4 snapshots from 2024-01-07, got %d", len(snaps))
	}

	if status := do(t, "GET", server.URL+"/api/snapshots?from=07-01-2024", nil, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for bad date, got %d", status)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
