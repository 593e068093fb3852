package application

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/nthmin/internal/config"
	"github.com/JonMunkholm/nthmin/internal/core"
	"github.com/xuri/excelize/v2"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memoryRecorder struct {
	mu      sync.Mutex
	records []core.QueryRecord
}

func (r *memoryRecorder) Record(_ context.Context, rec core.QueryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ShutdownTimeout: 5 * time.Second,
		},
		Query: config.QueryConfig{
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			Timeout:       5 * time.Second,
		},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
	}
}

func writeWorkbook(t *testing.T, column []any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, v := range column {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetCellValue("Sheet1", cell, v); err != nil {
			t.Fatal(err)
		}
	}

	path := filepath.Join(t.TempDir(), "values.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewService_EndToEnd(t *testing.T) {
	path := writeWorkbook(t, []any{5, "header", 3, 9, 3, " 1 ", 7.0})
	rec := &memoryRecorder{}
	svc := NewService(testConfig(), rec)

	tests := []struct {
		n    string
		want int64
	}{
		{"1", 1},
		{"2", 3},
		{"3", 5},
		{"5", 9},
	}
	for _, tt := range tests {
		got, err := svc.ComputeNthMinimal(context.Background(), path, tt.n)
		if err != nil {
			t.Fatalf("ComputeNthMinimal(N=%s) error = %v", tt.n, err)
		}
		if got != tt.want {
			t.Errorf("ComputeNthMinimal(N=%s) = %d, want %d", tt.n, got, tt.want)
		}
	}

	_, err := svc.ComputeNthMinimal(context.Background(), path, "6")
	if core.KindOf(err) != core.NExceedsCount {
		t.Errorf("N=6 error = %v, want NExceedsCount", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.records) != len(tests)+1 {
		t.Errorf("audit records = %d, want %d", len(rec.records), len(tests)+1)
	}
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := New(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if app.Service() == nil {
		t.Fatal("Service() = nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
