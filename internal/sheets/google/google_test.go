package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"famfin/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type fakeSheets struct {
	mu       sync.Mutex
	header   [][]any
	appended [][]any
	requests []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	var body gsheet.ValueRange
	if r.Method != http.MethodGet {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, ":append"):
		f.appended = append(f.appended, body.Values...)
		row := len(f.appended) + 1
		json.NewEncoder(w).Encode(map[string]any{
			"spreadsheetId": "sheet-1",
			"updates": map[string]any{
				"updatedRange": "Snapshots!A" + itoa(row) + ":N" + itoa(row),
				"updatedRows":  1,
			},
		})
	case r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(map[string]any{"range": "Snapshots!A1:N1", "values": f.header})
	case r.Method == http.MethodPut:
		f.header = body.Values
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-1", "updatedRows": 1})
	default:
		http.NotFound(w, r)
	}
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewWithService(svc, "sheet-1", ""), fake
}

func TestNew_Validation(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing spreadsheet id")

	_, err = New(context.Background(), Config{SpreadsheetID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing service account credentials")

	_, err = New(context.Background(), Config{SpreadsheetID: "x", CredentialsFile: "/does/not/exist.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read service account file")
}

func TestClient_ExportSnapshot(t *testing.T) {
	c, fake := newTestClient(t)
	snap := core.AgencySnapshot{
		ID:                11,
		UserID:            2,
		CalculatedFor:     core.NewDate(2025, time.March, 10),
		CreditAgencyCents: 685925,
		CalculatedAt:      time.Date(2025, time.March, 10, 6, 0, 0, 0, time.UTC),
	}

	ref, err := c.ExportSnapshot(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, "Snapshots!A2:N2", ref)

	require.Len(t, fake.appended, 1)
	row := fake.appended[0]
	require.Len(t, row, 14)
	assert.Equal(t, "2025-03-10", row[0])
	assert.Equal(t, "6859.25", row[2])
}

func TestClient_EnsureHeader(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.EnsureHeader(ctx))
	require.Len(t, fake.header, 1)
	assert.Equal(t, "Calculated for", fake.header[0][0])

	require.NoError(t, c.EnsureHeader(ctx))
	puts := 0
	for _, r := range fake.requests {
		if strings.HasPrefix(r, http.MethodPut) {
			puts++
		}
	}
	assert.Equal(t, 1, puts, "header is written only once")
}

func TestClient_NotInitialized(t *testing.T) {
	c := &Client{spreadsheetID: "x", sheetName: "Snapshots"}
	_, err := c.ExportSnapshot(context.Background(), core.AgencySnapshot{ID: 1})
	assert.Error(t, err)
}
