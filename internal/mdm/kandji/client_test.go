package kandji

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

func TestClient_FetchDevices_SinglePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer tok")
		}
		if r.URL.Query().Get("limit") != "" {
			t.Errorf("unexpected pagination params without page size: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"serial_number":"A"},{"serial_number":"B"}]`)
	}))
	defer srv.Close()

	c := New(Config{DevicesURL: srv.URL + "/api/v1/devices", Token: "tok"}, srv.Client(), nil)
	got, err := c.FetchDevices(context.Background())
	if err != nil {
		t.Fatalf("FetchDevices() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if c.Name() != "kandji" {
		t.Errorf("Name() = %q", c.Name())
	}
}

func TestClient_FetchDevices_Paginates(t *testing.T) {
	const total = 5
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		var items []string
		for i := offset; i < total && i < offset+limit; i++ {
			items = append(items, fmt.Sprintf(`{"serial_number":"S%d"}`, i))
		}
		fmt.Fprintf(w, "[%s]", strings.Join(items, ","))
	}))
	defer srv.Close()

	c := New(Config{DevicesURL: srv.URL, Token: "tok", PageSize: 2}, srv.Client(), nil)
	got, err := c.FetchDevices(context.Background())
	if err != nil {
		t.Fatalf("FetchDevices() error = %v", err)
	}
	if len(got) != total {
		t.Fatalf("len = %d, want %d", len(got), total)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if got[4]["serial_number"] != "S4" {
		t.Errorf("last serial = %v", got[4]["serial_number"])
	}
}

func TestClient_FetchDevices_Envelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[{"serial_number":"A"}]}`)
	}))
	defer srv.Close()

	got, err := New(Config{DevicesURL: srv.URL}, srv.Client(), nil).FetchDevices(context.Background())
	if err != nil {
		t.Fatalf("FetchDevices() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
}

func TestClient_FetchDevices_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"detail":"Invalid token."}`,
			check: func(t *testing.T, err error) {
				var se *StatusError
				if !errors.As(err, &se) {
					t.Fatalf("expected *StatusError, got %T", err)
				}
				if se.StatusCode != http.StatusUnauthorized {
					t.Errorf("StatusCode = %d", se.StatusCode)
				}
				want := `Kandji API returned status 401: {"detail":"Invalid token."}`
				if se.Error() != want {
					t.Errorf("Error() = %q, want %q", se.Error(), want)
				}
			},
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `<html>maintenance</html>`,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrInvalidJSON) {
					t.Fatalf("expected ErrInvalidJSON, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := New(Config{DevicesURL: srv.URL}, srv.Client(), nil).FetchDevices(context.Background())
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			tt.check(t, err)
		})
	}
}

func TestClient_FetchDevices_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(Config{DevicesURL: url}, nil, nil).FetchDevices(context.Background())
	if err == nil {
		t.Fatal("expected transport error, got nil")
	}
}
