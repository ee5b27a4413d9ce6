package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/propertypulse/propertypulse/internal/adapters/csvfile"
	handler "github.com/propertypulse/propertypulse/internal/adapters/http"
	"github.com/propertypulse/propertypulse/internal/adapters/memory"
	"github.com/propertypulse/propertypulse/internal/adapters/xlsx"
	"github.com/propertypulse/propertypulse/internal/core/domain"
	"github.com/propertypulse/propertypulse/internal/core/ports"
	"github.com/propertypulse/propertypulse/internal/core/usecases"
)

// ---- Mocks ----

type mockPinger struct {
	pingFn func(ctx context.Context) error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

type memExportStore struct {
	data map[string][]byte
}

func (m *memExportStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrExportNotFound
	}
	return v, nil
}

func (m *memExportStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *memExportStore) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

// ---- Test helpers ----

const listings = `Name,Latitude,Longitude,Price
A,0,0,100
B,0,0.01,200
C,10,10,300`

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func newService(exports ports.ExportStore) *usecases.SessionService {
	return usecases.NewSessionService(
		memory.NewSessionRepo(time.Hour),
		csvfile.NewParser(),
		xlsx.NewWriter(),
		exports,
		nil,
		0,
	)
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	d := &handler.Dependencies{
		Sessions: newService(nil),
		Version:  "test",
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func do(t *testing.T, app *fiber.App, req *http.Request) *http.Response {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, sessionID, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(fw, content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("POST", "/v1/sessions/"+sessionID+"/dataset", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func createSession(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp := do(t, app, httptest.NewRequest("POST", "/v1/sessions", nil))
	if resp.StatusCode != 201 {
		t.Fatalf("create session: expected 201, got %d", resp.StatusCode)
	}
	var sum domain.SessionSummary
	if err := json.NewDecoder(resp.Body).Decode(&sum); err != nil {
		t.Fatal(err)
	}
	return sum.ID
}

// loadedSession creates a session holding the listings dataset.
func loadedSession(t *testing.T, app *fiber.App) string {
	t.Helper()
	id := createSession(t, app)
	resp := do(t, app, uploadRequest(t, id, "listings.csv", listings))
	if resp.StatusCode != 200 {
		t.Fatalf("upload: expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}
	return id
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected %d, got %d: %s", want, resp.StatusCode, readBody(t, resp.Body))
	}
}

func decodeError(t *testing.T, resp *http.Response) handler.APIError {
	t.Helper()
	var e handler.APIError
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		t.Fatal(err)
	}
	return e
}

// ---- Session lifecycle ----

func TestCreateSession_Success(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, httptest.NewRequest("POST", "/v1/sessions", nil))
	expectStatus(t, resp, 201)

	var sum domain.SessionSummary
	json.NewDecoder(resp.Body).Decode(&sum)
	if sum.ID == "" {
		t.Fatal("expected session id")
	}
	if sum.State != domain.StateNoData {
		t.Errorf("expected state no_data, got %s", sum.State)
	}
	if sum.Radius != 1 || sum.Unit != domain.UnitKm {
		t.Errorf("expected 1 km default, got %v %s", sum.Radius, sum.Unit)
	}
	if loc := resp.Header.Get("Location"); loc != "/v1/sessions/"+sum.ID {
		t.Errorf("unexpected Location %q", loc)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, httptest.NewRequest("GET", "/v1/sessions/nope", nil))
	expectStatus(t, resp, 404)
	if e := decodeError(t, resp); e.Code != "not_found" {
		t.Errorf("expected not_found, got %q", e.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	app := setupApp(makeDeps())
	id := createSession(t, app)

	expectStatus(t, do(t, app, httptest.NewRequest("DELETE", "/v1/sessions/"+id, nil)), 204)
	expectStatus(t, do(t, app, httptest.NewRequest("GET", "/v1/sessions/"+id, nil)), 404)
}

// ---- Upload ----

func TestUploadDataset_Success(t *testing.T) {
	app := setupApp(makeDeps())
	id := createSession(t, app)

	resp := do(t, app, uploadRequest(t, id, "listings.csv", listings+"\nBroken,,x,400"))
	expectStatus(t, resp, 200)

	var sum domain.SessionSummary
	json.NewDecoder(resp.Body).Decode(&sum)
	if sum.State != domain.StateDataLoaded {
		t.Errorf("expected data_loaded, got %s", sum.State)
	}
	if sum.Records != 4 || sum.ValidRecords != 3 {
		t.Errorf("expected 4 records (3 valid), got %d (%d)", sum.Records, sum.ValidRecords)
	}
	if sum.Notification == nil || sum.Notification.Message != "Successfully loaded 4 properties" {
		t.Errorf("unexpected notification %+v", sum.Notification)
	}
}

func TestUploadDataset_MissingFile(t *testing.T) {
	app := setupApp(makeDeps())
	id := createSession(t, app)

	resp := do(t, app, jsonRequest("POST", "/v1/sessions/"+id+"/dataset", `{}`))
	expectStatus(t, resp, 400)
}

func TestUploadDataset_UnsupportedType(t *testing.T) {
	app := setupApp(makeDeps())
	id := createSession(t, app)

	resp := do(t, app, uploadRequest(t, id, "listings.txt", listings))
	expectStatus(t, resp, 415)
	if e := decodeError(t, resp); e.Message != "Please upload a CSV file" {
		t.Errorf("unexpected message %q", e.Message)
	}
}

func TestUploadDataset_MissingColumns(t *testing.T) {
	app := setupApp(makeDeps())
	id := createSession(t, app)

	resp := do(t, app, uploadRequest(t, id, "listings.csv", "Name,Price\nA,100"))
	expectStatus(t, resp, 422)
	e := decodeError(t, resp)
	if e.Code != "missing_columns" {
		t.Errorf("expected missing_columns, got %q", e.Code)
	}
	if !strings.Contains(e.Message, "Latitude") || !strings.Contains(e.Message, "Longitude") {
		t.Errorf("expected missing column names in %q", e.Message)
	}

	// The failed upload leaves an error notification and no data.
	resp = do(t, app, httptest.NewRequest("GET", "/v1/sessions/"+id+"/notification", nil))
	expectStatus(t, resp, 200)
	var n domain.Notification
	json.NewDecoder(resp.Body).Decode(&n)
	if n.Type != domain.NotifyError {
		t.Errorf("expected error notification, got %s", n.Type)
	}
}

// ---- Records ----

func TestListRecords_Pagination(t *testing.T) {
	app := setupApp(makeDeps())
	id := loadedSession(t, app)

	resp := do(t, app, httptest.NewRequest("GET", "/v1/sessions/"+id+"/records?offset=1&limit=1", nil))
	expectStatus(t, resp, 200)

	var result struct {
		Data []struct {
			Index  int               `json:"index"`
			Record map[string]string `json:"record"`
		} `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Pagination.Total != 3 {
		t.Errorf("expected total 3, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 1 || result.Data[0].Index != 1 || result.Data[0].Record["Name"] != "B" {
		t.Errorf("unexpected page %+v", result.Data)
	}

	link := resp.Header.Get("Link")
	for _, rel := range []string{`rel="first"`, `rel="prev"`, `rel="next"`, `rel="last"`} {
		if !strings.Contains(link, rel) {
			t.Errorf("expected %s in Link header %q", rel, link)
		}
	}
}

func TestListRecords_NoDataset(t *testing.T) {
	app := setupApp(makeDeps())
	id := createSession(t, app)

	resp := do(t, app, httptest.NewRequest("GET", "/v1/sessions/"+id+"/records", nil))
	expectStatus(t, resp, 409)
}

func TestPreviewAndSearch(t *testing.T) {
	app := setupApp(makeDeps())
	id := loadedSession(t, app)

	resp := do(t, app, httptest.NewRequest("GET", "/v1/sessions/"+id+"/preview?rows=2", nil))
	expectStatus(t, resp, 200)
	var p struct {
		Headers []string            `json:"headers"`
		Rows    []map[string]string `json:"rows"`
		Total   int                 `json:"total"`
	}
	json.NewDecoder(resp.Body).Decode(&p)
	if len(p.Rows) != 2 || p.Total != 3 || len(p.Headers) != 4 {
		t.Errorf("unexpected preview %+v", p)
	}

	resp = do(t, app, httptest.NewRequest("GET", "/v1/sessions/"+id+"/search?q=c", nil))
	expectStatus(t, resp, 200)
	var found []struct {
		Index int `json:"index"`
	}
	json.NewDecoder(resp.Body).Decode(&found)
	if len(found) != 1 || found[0].Index != 2 {
		t.Errorf("expected only C (index 2), got %+v", found)
	}
}

// ---- Reference, radius, proximity ----

type proximityResult struct {
	Reference map[string]string `json:"reference"`
	Radius    float64           `json:"radius"`
	Unit      string            `json:"unit"`
	Count     int               `json:"count"`
	Results   []struct {
		Index    int               `json:"index"`
		Record   map[string]string `json:"record"`
		Distance *float64          `json:"distance"`
	} `json:"results"`
}

func TestProximity_Flow(t *testing.T) {
	app := setupApp(makeDeps())
	id := loadedSession(t, app)
	base := "/v1/sessions/" + id

	// Without a reference every row is returned.
	resp := do(t, app, httptest.NewRequest("GET", base+"/proximity", nil))
	expectStatus(t, resp, 200)
	var all proximityResult
	json.NewDecoder(resp.Body).Decode(&all)
	if all.Count != 3 {
		t.Fatalf("expected 3 rows without reference, got %d", all.Count)
	}

	resp = do(t, app, jsonRequest("PUT", base+"/reference", `{"index":0}`))
	expectStatus(t, resp, 200)
	var sum domain.SessionSummary
	json.NewDecoder(resp.Body).Decode(&sum)
	if sum.State != domain.StateReferenceChosen {
		t.Errorf("expected reference_chosen, got %s", sum.State)
	}

	// B is 1.11 km away: outside the default 1 km, inside 2 km.
	resp = do(t, app, httptest.NewRequest("GET", base+"/proximity", nil))
	var near proximityResult
	json.NewDecoder(resp.Body).Decode(&near)
	if near.Count != 1 || near.Results[0].Record["Name"] != "A" {
		t.Fatalf("expected only A within 1 km, got %+v", near.Results)
	}

	expectStatus(t, do(t, app, jsonRequest("PUT", base+"/radius", `{"radius":2}`)), 200)

	resp = do(t, app, httptest.NewRequest("GET", base+"/proximity", nil))
	var wide proximityResult
	json.NewDecoder(resp.Body).Decode(&wide)
	if wide.Count != 2 {
		t.Fatalf("expected A and B within 2 km, got %+v", wide.Results)
	}
	if wide.Reference["Name"] != "A" || wide.Radius != 2 || wide.Unit != "km" {
		t.Errorf("unexpected header %+v", wide)
	}
	b := wide.Results[1]
	if b.Record["Name"] != "B" || b.Distance == nil || *b.Distance != 1.11 {
		t.Errorf("expected B at 1.11 km, got %+v", b)
	}
}

func TestSetReference_BadIndex(t *testing.T) {
	app := setupApp(makeDeps())
	id := loadedSession(t, app)

	expectStatus(t, do(t, app, jsonRequest("PUT", "/v1/sessions/"+id+"/reference", `{"index":99}`)), 400)
	expectStatus(t, do(t, app, jsonRequest("PUT", "/v1/sessions/"+id+"/reference", `{}`)), 400)
}

func TestClearReference(t *testing.T) {
	app := setupApp(makeDeps())
	id := loadedSession(t, app)

	do(t, app, jsonRequest("PUT", "/v1/sessions/"+id+"/reference", `{"index":0}`))
	resp := do(t, app, httptest.NewRequest("DELETE", "/v1/sessions/"+id+"/reference", nil))
	expectStatus(t, resp, 200)
	var sum domain.SessionSummary
	json.NewDecoder(resp.Body).Decode(&sum)
	if sum.State != domain.StateDataLoaded || sum.ReferenceIndex != nil {
		t.Errorf("expected reference cleared, got %+v", sum)
	}
}

func TestSetRadius_Validation(t *testing.T) {
	app := setupApp(makeDeps())
	id := createSession(t, app)
	path := "/v1/sessions/" + id + "/radius"

	for _, body := range []string{`{"radius":0}`, `{"radius":12}`, `{"radius":-1}`, `{}`, `{"unit":"parsecs"}`} {
		resp := do(t, app, jsonRequest("PUT", path, body))
		if resp.StatusCode != 400 {
			t.Errorf("%s: expected 400, got %d", body, resp.StatusCode)
		}
	}

	resp := do(t, app, jsonRequest("PUT", path, `{"radius":2.04,"unit":"miles"}`))
	expectStatus(t, resp, 200)
	var sum domain.SessionSummary
	json.NewDecoder(resp.Body).Decode(&sum)
	if sum.Radius != 2 {
		t.Errorf("expected radius snapped to 2, got %v", sum.Radius)
	}
	if sum.Unit != domain.UnitMiles {
		t.Errorf("expected miles, got %s", sum.Unit)
	}
}

// ---- Map ----

func TestMap_GeoJSON(t *testing.T) {
	app := setupApp(makeDeps())
	id := loadedSession(t, app)
	base := "/v1/sessions/" + id

	do(t, app, jsonRequest("PUT", base+"/reference", `{"index":0}`))
	do(t, app, jsonRequest("PUT", base+"/radius", `{"radius":2}`))

	resp := do(t, app, httptest.NewRequest("GET", base+"/map", nil))
	expectStatus(t, resp, 200)
	if ct := resp.Header.Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("expected application/geo+json, got %q", ct)
	}

	var fc struct {
		Type     string `json:"type"`
		Zoom     int    `json:"zoom"`
		Features []struct {
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	json.NewDecoder(resp.Body).Decode(&fc)
	if fc.Type != "FeatureCollection" {
		t.Errorf("expected FeatureCollection, got %q", fc.Type)
	}
	if fc.Zoom != domain.ZoomReference {
		t.Errorf("expected zoom %d, got %d", domain.ZoomReference, fc.Zoom)
	}
	// radius circle, reference, B
	if len(fc.Features) != 3 {
		t.Fatalf("expected 3 features, got %d", len(fc.Features))
	}
	if fc.Features[0].Properties["role"] != "radius" || fc.Features[1].Properties["role"] != "reference" {
		t.Errorf("unexpected feature order: %+v", fc.Features)
	}
	if fc.Features[2].Properties["name"] != "B" {
		t.Errorf("expected B marker, got %+v", fc.Features[2].Properties)
	}
}

func TestMap_RawView(t *testing.T) {
	app := setupApp(makeDeps())
	id := loadedSession(t, app)

	resp := do(t, app, httptest.NewRequest("GET", "/v1/sessions/"+id+"/map?format=view", nil))
	expectStatus(t, resp, 200)
	var view domain.MapView
	json.NewDecoder(resp.Body).Decode(&view)
	if view.Center != domain.DefaultMapCenter || view.Zoom != domain.ZoomOverview {
		t.Errorf("expected default center and zoom, got %+v %d", view.Center, view.Zoom)
	}
	if len(view.Markers) != 3 || view.Circle != nil {
		t.Errorf("expected 3 markers and no circle, got %d %+v", len(view.Markers), view.Circle)
	}
}

// ---- Selection ----

func TestSelection_ToggleAndRemove(t *testing.T) {
	app := setupApp(makeDeps())
	id := loadedSession(t, app)
	base := "/v1/sessions/" + id

	toggle := func(index int) bool {
		resp := do(t, app, jsonRequest("POST", base+"/selection/toggle", fmt.Sprintf(`{"index":%d}`, index)))
		expectStatus(t, resp, 200)
		var out struct {
			Selected bool `json:"selected"`
		}
		json.NewDecoder(resp.Body).Decode(&out)
		return out.Selected
	}

	if !toggle(1) {
		t.Fatal("first toggle should select")
	}
	if toggle(1) {
		t.Fatal("second toggle should deselect")
	}
	toggle(2)
	toggle(0)

	resp := do(t, app, httptest.NewRequest("GET", base+"/selection", nil))
	var sel struct {
		Count   int                 `json:"count"`
		Records []map[string]string `json:"records"`
	}
	json.NewDecoder(resp.Body).Decode(&sel)
	if sel.Count != 2 || sel.Records[0]["Name"] != "C" || sel.Records[1]["Name"] != "A" {
		t.Fatalf("expected [C A], got %+v", sel.Records)
	}

	resp = do(t, app, jsonRequest("POST", base+"/selection/remove", `{"latitude":"10","longitude":"10"}`))
	expectStatus(t, resp, 200)
	var removed struct {
		Removed bool `json:"removed"`
	}
	json.NewDecoder(resp.Body).Decode(&removed)
	if !removed.Removed {
		t.Error("expected C removed")
	}

	expectStatus(t, do(t, app, httptest.NewRequest("DELETE", base+"/selection", nil)), 204)
	resp = do(t, app, httptest.NewRequest("GET", base+"/selection", nil))
	json.NewDecoder(resp.Body).Decode(&sel)
	if sel.Count != 0 {
		t.Errorf("expected empty selection, got %d", sel.Count)
	}
}

// ---- Export ----

func TestExport_EmptySelection(t *testing.T) {
	app := setupApp(makeDeps())
	id := loadedSession(t, app)

	resp := do(t, app, httptest.NewRequest("POST", "/v1/sessions/"+id+"/export", nil))
	expectStatus(t, resp, 409)
	if e := decodeError(t, resp); e.Message != "Select at least one property to export" {
		t.Errorf("unexpected message %q", e.Message)
	}
}

func TestExport_Attachment(t *testing.T) {
	app := setupApp(makeDeps())
	id := loadedSession(t, app)
	do(t, app, jsonRequest("POST", "/v1/sessions/"+id+"/selection/toggle", `{"index":1}`))

	resp := do(t, app, httptest.NewRequest("POST", "/v1/sessions/"+id+"/export", nil))
	expectStatus(t, resp, 200)

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("unexpected content type %q", ct)
	}
	cd := resp.Header.Get("Content-Disposition")
	want := usecases.ExportFilename(time.Now(), ".xlsx")
	if !strings.Contains(cd, "attachment") || !strings.Contains(cd, want) {
		t.Errorf("expected attachment %s, got %q", want, cd)
	}
	body := readBody(t, resp.Body)
	if !bytes.HasPrefix(body, []byte("PK")) {
		t.Error("expected a zip container")
	}
}

func TestExport_StoreDisabled(t *testing.T) {
	app := setupApp(makeDeps())
	id := loadedSession(t, app)
	do(t, app, jsonRequest("POST", "/v1/sessions/"+id+"/selection/toggle", `{"index":1}`))

	resp := do(t, app, httptest.NewRequest("POST", "/v1/sessions/"+id+"/export?store=true", nil))
	expectStatus(t, resp, 503)
}

func TestExport_StoreAndDownload(t *testing.T) {
	store := &memExportStore{data: map[string][]byte{}}
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.Sessions = newService(store)
	}))
	id := loadedSession(t, app)
	do(t, app, jsonRequest("POST", "/v1/sessions/"+id+"/selection/toggle", `{"index":0}`))

	resp := do(t, app, httptest.NewRequest("POST", "/v1/sessions/"+id+"/export?store=true", nil))
	expectStatus(t, resp, 201)
	var created struct {
		ExportID    string `json:"export_id"`
		Rows        int    `json:"rows"`
		DownloadURL string `json:"download_url"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	if created.Rows != 1 || created.DownloadURL != "/v1/exports/"+created.ExportID {
		t.Fatalf("unexpected response %+v", created)
	}

	resp = do(t, app, httptest.NewRequest("GET", created.DownloadURL, nil))
	expectStatus(t, resp, 200)
	if !bytes.HasPrefix(readBody(t, resp.Body), []byte("PK")) {
		t.Error("expected stored xlsx")
	}

	expectStatus(t, do(t, app, httptest.NewRequest("GET", "/v1/exports/missing", nil)), 404)
}

// ---- Notification ----

func TestNotification_ShowAndDismiss(t *testing.T) {
	app := setupApp(makeDeps())
	id := createSession(t, app)
	path := "/v1/sessions/" + id + "/notification"

	expectStatus(t, do(t, app, httptest.NewRequest("GET", path, nil)), 204)

	do(t, app, uploadRequest(t, id, "listings.csv", listings))
	resp := do(t, app, httptest.NewRequest("GET", path, nil))
	expectStatus(t, resp, 200)
	var n domain.Notification
	json.NewDecoder(resp.Body).Decode(&n)
	if n.Type != domain.NotifySuccess || n.Message != "Successfully loaded 3 properties" {
		t.Errorf("unexpected notification %+v", n)
	}

	expectStatus(t, do(t, app, httptest.NewRequest("DELETE", path, nil)), 204)
	expectStatus(t, do(t, app, httptest.NewRequest("GET", path, nil)), 204)
}

// ---- Distance ----

func TestDistance_Success(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, httptest.NewRequest("GET", "/v1/distance?from_lat=0&from_lon=0&to_lat=0&to_lon=0.01", nil))
	expectStatus(t, resp, 200)
	var out struct {
		Unit    string `json:"unit"`
		Display string `json:"display"`
	}
	json.NewDecoder(resp.Body).Decode(&out)
	if out.Unit != "km" || out.Display != "1.11" {
		t.Errorf("expected 1.11 km, got %+v", out)
	}
	if cc := resp.Header.Get("Cache-Control"); !strings.HasPrefix(cc, "public") {
		t.Errorf("expected public Cache-Control, got %q", cc)
	}
}

func TestDistance_Antipodal(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, httptest.NewRequest("GET", "/v1/distance?from_lat=-85.46&from_lon=-179.9&to_lat=85.46&to_lon=0.1", nil))
	expectStatus(t, resp, 200)
	var out struct {
		Distance float64 `json:"distance"`
		Display  string  `json:"display"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Display != "20015.09" {
		t.Errorf("expected half the earth's circumference, got %+v", out)
	}
}

func TestDistance_BadParams(t *testing.T) {
	app := setupApp(makeDeps())

	for _, q := range []string{
		"from_lon=0&to_lat=0&to_lon=0",
		"from_lat=91&from_lon=0&to_lat=0&to_lon=0",
		"from_lat=0&from_lon=abc&to_lat=0&to_lon=0",
		"from_lat=0&from_lon=0&to_lat=0&to_lon=0&unit=furlongs",
	} {
		resp := do(t, app, httptest.NewRequest("GET", "/v1/distance?"+q, nil))
		if resp.StatusCode != 400 {
			t.Errorf("%s: expected 400, got %d", q, resp.StatusCode)
		}
	}
}

// ---- GraphQL ----

func TestGraphQL_SessionAndProximity(t *testing.T) {
	app := setupApp(makeDeps())
	id := loadedSession(t, app)

	query := fmt.Sprintf(`{"query":"mutation { chooseReference(session_id: \"%s\", index: 0) { state } }"}`, id)
	expectStatus(t, do(t, app, jsonRequest("POST", "/graphql", query)), 200)

	query = fmt.Sprintf(`{"query":"{ session(session_id: \"%[1]s\") { state records reference { name } } proximity(session_id: \"%[1]s\") { index distance } }"}`, id)
	resp := do(t, app, jsonRequest("POST", "/graphql", query))
	expectStatus(t, resp, 200)

	var result struct {
		Data struct {
			Session struct {
				State     string `json:"state"`
				Records   int    `json:"records"`
				Reference struct {
					Name string `json:"name"`
				} `json:"reference"`
			} `json:"session"`
			Proximity []struct {
				Index    int     `json:"index"`
				Distance float64 `json:"distance"`
			} `json:"proximity"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors %v", result.Errors)
	}
	if result.Data.Session.State != "reference_chosen" || result.Data.Session.Records != 3 {
		t.Errorf("unexpected session %+v", result.Data.Session)
	}
	if result.Data.Session.Reference.Name != "A" {
		t.Errorf("expected reference A, got %q", result.Data.Session.Reference.Name)
	}
	if len(result.Data.Proximity) != 1 || result.Data.Proximity[0].Index != 0 {
		t.Errorf("expected only A within 1 km, got %+v", result.Data.Proximity)
	}
}

func TestGraphQL_Distance(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, jsonRequest("POST", "/graphql",
		`{"query":"{ distance(from: {lat: 0, lon: 0}, to: {lat: 0, lon: 0.01}, unit: \"miles\") }"}`))
	expectStatus(t, resp, 200)
	var result struct {
		Data struct {
			Distance float64 `json:"distance"`
		} `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Data.Distance < 0.68 || result.Data.Distance > 0.70 {
		t.Errorf("expected ~0.69 miles, got %v", result.Data.Distance)
	}
}

// ---- Health ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, httptest.NewRequest("GET", "/v1/health", nil))
	expectStatus(t, resp, 200)

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if result["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", result["status"])
	}
	if result["version"] != "test" {
		t.Errorf("expected version test, got %v", result["version"])
	}
}

func TestReady_NothingConfigured(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, httptest.NewRequest("GET", "/v1/ready", nil))
	expectStatus(t, resp, 200)
}

func TestReady_ExportStoreDown(t *testing.T) {
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.Exports = &mockPinger{pingFn: func(ctx context.Context) error {
			return errors.New("connection refused")
		}}
	}))

	resp := do(t, app, httptest.NewRequest("GET", "/v1/ready", nil))
	expectStatus(t, resp, 503)

	var result struct {
		Checks map[string]string `json:"checks"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if !strings.Contains(result.Checks["exports"], "connection refused") {
		t.Errorf("unexpected checks %v", result.Checks)
	}
}

// ---- Headers ----

func TestSessionRoutes_NoStore(t *testing.T) {
	app := setupApp(makeDeps())
	id := createSession(t, app)

	resp := do(t, app, httptest.NewRequest("GET", "/v1/sessions/"+id, nil))
	expectStatus(t, resp, 200)
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("expected no-store, got %q", cc)
	}
	if resp.Header.Get("ETag") != "" {
		t.Error("expected no ETag on a no-store response")
	}
}

func TestAPIVersionHeader(t *testing.T) {
	app := setupApp(makeDeps())

	resp := do(t, app, httptest.NewRequest("GET", "/v1/health", nil))
	expectStatus(t, resp, 200)

	if v := resp.Header.Get("X-API-Version"); v != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", v)
	}
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	app := setupApp(makeDeps())
	id := createSession(t, app)

	resp := do(t, app, httptest.NewRequest("GET", "/ws/sessions/"+id, nil))
	expectStatus(t, resp, fiber.StatusUpgradeRequired)
}

// TestAccessLogMiddleware verifies structured access logging is emitted.
func TestAccessLogMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(handler.AccessLogMiddleware())
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "test-req-123")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if body := readBody(t, resp.Body); !strings.Contains(string(body), "ok") {
		t.Errorf("expected response body to contain 'ok', got %s", string(body))
	}
}

func TestDocs_ServesOpenAPI(t *testing.T) {
	prev := handler.OpenAPIPath
	handler.OpenAPIPath = findOpenAPISpec(t)
	defer func() { handler.OpenAPIPath = prev }()

	app := setupApp(makeDeps())

	resp := do(t, app, httptest.NewRequest("GET", "/docs/openapi.yaml", nil))
	expectStatus(t, resp, 200)
	if !strings.Contains(string(readBody(t, resp.Body)), "PropertyPulse API") {
		t.Error("expected the PropertyPulse document")
	}
	expectStatus(t, do(t, app, httptest.NewRequest("GET", "/docs", nil)), 200)
}
