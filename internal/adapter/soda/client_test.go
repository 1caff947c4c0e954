package soda

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/incident-aoi-notifier/internal/domain"
)

const (
	testToken = "app-token"
	header    = `:id,:created_at,:updated_at,:version,crimetype,datetime,casenumber,description,policebeat,address,city,state,location_1`
)

func testClient(baseURL string) *Client {
	return NewClient(baseURL, testToken, 100000, 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func csvServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(status)
		io.WriteString(w, body) //nolint:errcheck // test server
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Fetch_Success(t *testing.T) {
	body := header + "\n" +
		`row-1,2024-04-26T00:00:00.000Z,2024-04-26T00:00:00.000Z,1,THEFT,2024-04-25T22:10:00.000,24-001,"STOLEN BIKE, FRONT",04X,100 MAIN ST,OAKLAND,CA,POINT (-122.27 37.80)` + "\n" +
		`row-2,,,,ASSAULT,2024-04-25T23:00:00.000,24-002,,05Y,,OAKLAND,CA,` + "\n"
	srv := csvServer(t, http.StatusOK, body)

	rows, err := testClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "row-1", rows[0][domain.ColSourceID])
	assert.Equal(t, "STOLEN BIKE, FRONT", rows[0][domain.ColDescription], "quoted commas survive")
	assert.Equal(t, "POINT (-122.27 37.80)", rows[0][domain.ColLocation])
	assert.Empty(t, rows[1][domain.ColLocation])
	assert.Equal(t, "ASSAULT", rows[1][domain.ColCategory])
}

func TestClient_Fetch_Query(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "100000", q.Get("$limit"))
		assert.Equal(t, ":*, *", q.Get("$select"))
		assert.Equal(t, testToken, q.Get("$$app_token"))
		io.WriteString(w, header+"\n") //nolint:errcheck // test server
	}))
	defer srv.Close()

	rows, err := testClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows, "header-only snapshot is valid")
}

func TestClient_Fetch_Errors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"server error", http.StatusInternalServerError, "boom", "status 500"},
		{"forbidden", http.StatusForbidden, "bad token", "status 403"},
		{"empty body", http.StatusOK, "", "no header row"},
		{"missing column", http.StatusOK, ":id,crimetype,datetime\n1,THEFT,x\n", "location_1"},
		{"ragged row", http.StatusOK, header + "\na,b\n", "read row 1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := csvServer(t, tc.status, tc.body)

			_, err := testClient(srv.URL).Fetch(context.Background())
			var fetchErr *domain.FetchError
			require.True(t, errors.As(err, &fetchErr), "got %v", err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestClient_Fetch_Unreachable(t *testing.T) {
	srv := csvServer(t, http.StatusOK, "")
	url := srv.URL
	srv.Close()

	_, err := testClient(url).Fetch(context.Background())
	var fetchErr *domain.FetchError
	assert.True(t, errors.As(err, &fetchErr))
}

func TestClient_Fetch_ByteOrderMark(t *testing.T) {
	srv := csvServer(t, http.StatusOK, "\ufeff"+header+"\n")
	_, err := testClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
}
