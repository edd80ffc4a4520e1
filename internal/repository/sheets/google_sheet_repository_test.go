package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// fakeSheetsAPI records the calls it receives and answers with canned data.
type fakeSheetsAPI struct {
	mu       sync.Mutex
	calls    []string
	bodies   map[string]map[string]any
	queries  map[string]url.Values
	metadata int
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := r.Method + " " + r.URL.Path
	f.calls = append(f.calls, key)
	f.queries[key] = r.URL.Query()

	if r.Body != nil && r.Method != http.MethodGet {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.bodies[key] = body
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/values/'Sheet1'"):
		_, _ = w.Write([]byte(`{"range":"Sheet1!A1:D3","values":[["Item Name","Quantity","Purchase Price","Selling Price"],["Rice",20,1.5,2.25],["Oil",3]]}`))
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/values/'Sheet1'!9:9"):
		_, _ = w.Write([]byte(`{"range":"Sheet1!A9:Z9"}`))
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/spreadsheets/sheet-id"):
		f.metadata++
		_, _ = w.Write([]byte(`{"sheets":[{"properties":{"title":"Sheet1","sheetId":0}},{"properties":{"title":"Sheet3","sheetId":7}}]}`))
	default:
		_, _ = w.Write([]byte(`{}`))
	}
}

func newFakeRepository(t *testing.T) (*GoogleSheetRepository, *fakeSheetsAPI) {
	t.Helper()

	api := &fakeSheetsAPI{bodies: map[string]map[string]any{}, queries: map[string]url.Values{}}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	service, err := sheetsapi.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication())
	require.NoError(t, err)

	return NewGoogleSheetRepositoryWithService(service, "sheet-id", nil), api
}

func TestGoogleReadRows(t *testing.T) {
	repo, _ := newFakeRepository(t)

	rows, err := repo.ReadRows(context.Background(), "Sheet1")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Item Name", "Quantity", "Purchase Price", "Selling Price"},
		{"Rice", "20", "1.5", "2.25"},
		{"Oil", "3"},
	}, rows)
}

func TestGoogleReadRowEmpty(t *testing.T) {
	repo, _ := newFakeRepository(t)

	row, err := repo.ReadRow(context.Background(), "Sheet1", 9)
	require.NoError(t, err)
	assert.Nil(t, row)

	_, err = repo.ReadRow(context.Background(), "Sheet1", 0)
	assert.Error(t, err)
}

func TestGoogleUpdateCellEscapesFormulas(t *testing.T) {
	repo, api := newFakeRepository(t)

	require.NoError(t, repo.UpdateCell(context.Background(), "Sheet1", 2, 2, "=1+1"))

	body := api.bodies["PUT /v4/spreadsheets/sheet-id/values/'Sheet1'!B2"]
	require.NotNil(t, body, api.calls)
	assert.Equal(t, []any{[]any{"'=1+1"}}, body["values"])
}

func TestGoogleAppendRow(t *testing.T) {
	repo, api := newFakeRepository(t)

	require.NoError(t, repo.AppendRow(context.Background(), "Sheet3", []interface{}{"Rice", 5, json.Number("2.25"), "bob", "2025-03-14"}))

	body := api.bodies["POST /v4/spreadsheets/sheet-id/values/'Sheet3'!A1:append"]
	require.NotNil(t, body, api.calls)
	assert.Equal(t, []any{[]any{"'Rice", float64(5), float64(2.25), "'bob", "'2025-03-14"}}, body["values"])
	assert.Equal(t, "USER_ENTERED", api.queries["POST /v4/spreadsheets/sheet-id/values/'Sheet3'!A1:append"].Get("valueInputOption"))
}

func TestGoogleWritesNumericLookingTextLiterally(t *testing.T) {
	repo, api := newFakeRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.AppendRow(ctx, "Sheet1", []interface{}{"007", 5, json.Number("1.50"), json.Number("2.25")}))
	require.NoError(t, repo.UpdateRow(ctx, "Sheet1", 2, []interface{}{"0012", 7, json.Number("1"), json.Number("3")}))
	require.NoError(t, repo.UpdateCell(ctx, "Sheet1", 3, 1, "3/4"))

	appended := api.bodies["POST /v4/spreadsheets/sheet-id/values/'Sheet1'!A1:append"]
	require.NotNil(t, appended, api.calls)
	assert.Equal(t, []any{[]any{"'007", float64(5), float64(1.5), float64(2.25)}}, appended["values"])

	updated := api.bodies["PUT /v4/spreadsheets/sheet-id/values/'Sheet1'!A2"]
	require.NotNil(t, updated, api.calls)
	assert.Equal(t, []any{[]any{"'0012", float64(7), float64(1), float64(3)}}, updated["values"])

	cell := api.bodies["PUT /v4/spreadsheets/sheet-id/values/'Sheet1'!A3"]
	require.NotNil(t, cell, api.calls)
	assert.Equal(t, []any{[]any{"'3/4"}}, cell["values"])
}

func TestGoogleDeleteRowCachesSheetIDs(t *testing.T) {
	repo, api := newFakeRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.DeleteRow(ctx, "sheet3", 3))
	require.NoError(t, repo.DeleteRow(ctx, "Sheet3", 2))
	assert.Equal(t, 1, api.metadata)

	body := api.bodies["POST /v4/spreadsheets/sheet-id:batchUpdate"]
	require.NotNil(t, body, api.calls)
	requests := body["requests"].([]any)
	dimension := requests[0].(map[string]any)["deleteDimension"].(map[string]any)["range"].(map[string]any)
	assert.Equal(t, float64(7), dimension["sheetId"])
	assert.Equal(t, "ROWS", dimension["dimension"])
	assert.Equal(t, float64(1), dimension["startIndex"])
	assert.Equal(t, float64(2), dimension["endIndex"])

	assert.Error(t, repo.DeleteRow(ctx, "Missing", 2))
	assert.Error(t, repo.DeleteRow(ctx, "Sheet3", 1))
}
