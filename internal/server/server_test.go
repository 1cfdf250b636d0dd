package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestServer_ServeAndShutdownOrder(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	srv := New(handler, Options{ReadTimeout: time.Second, WriteTimeout: time.Second, ShutdownTimeout: time.Second}, logger)

	var order []string
	srv.OnShutdown("first", func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	srv.OnShutdown("second", func(ctx context.Context) error {
		order = append(order, "second")
		return errors.New("close failed")
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	client := &http.Client{Timeout: 2 * time.Second}
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = client.Get("http://" + ln.Addr().String())
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server did not answer: %v", err)
	}
	resp.Body.Close()
	client.CloseIdleConnections()

	cancel()

	select {
	case err := <-done:
		if err == nil || err.Error() != "close failed" {
			t.Errorf("Serve() error = %v, want close failed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Errorf("shutdown order = %v, want [second first]", order)
	}
}
