package store

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cwbudde/descent/internal/objective"
	"github.com/cwbudde/descent/internal/opt"
	"github.com/cwbudde/descent/internal/params"
)

// setupTestStore creates a temporary directory and returns an FSStore for testing.
func setupTestStore(t *testing.T) (*FSStore, string) {
	t.Helper()

	tempDir := t.TempDir()
	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	return store, tempDir
}

// createTestRecord creates a run record with test data.
func createTestRecord(runID string) *RunRecord {
	p := params.Defaults(params.BFGS)
	return &RunRecord{
		RunID: runID,
		Config: RunConfig{
			Problem: "sphere",
			Dim:     2,
			X0:      []float64{3, 3},
			Params:  *p,
		},
		Result: opt.Result{
			Method:     params.BFGS,
			X:          []float64{1e-9, -2e-9},
			Value:      5e-18,
			GradNorm:   4.4e-9,
			Iterations: 1,
			Status:     opt.GradientThreshold,
		},
		Stats:    objective.Stats{FuncEvaluations: 60, GradEvaluations: 3},
		Started:  time.Now().Add(-time.Second),
		Finished: time.Now(),
	}
}

func TestNewFSStore(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "nested", "data")

	store, err := NewFSStore(baseDir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	if store.BaseDir() != baseDir {
		t.Errorf("BaseDir = %s, want %s", store.BaseDir(), baseDir)
	}
	if _, err := os.Stat(baseDir); os.IsNotExist(err) {
		t.Fatal("Base directory was not created")
	}
}

func TestSaveRun(t *testing.T) {
	store, tempDir := setupTestStore(t)

	runID := NewRunID()
	if err := store.SaveRun(createTestRecord(runID)); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	expectedPath := filepath.Join(tempDir, "runs", runID, "run.json")
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Fatalf("Run file was not created at %s", expectedPath)
	}
	if _, err := os.Stat(expectedPath + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("Temp file should not exist after save: %s.tmp", expectedPath)
	}
}

func TestSaveRun_Invalid(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveRun(nil); err == nil {
		t.Fatal("Expected error for nil record")
	}

	record := createTestRecord("")
	err := store.SaveRun(record)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Expected ValidationError, got %T: %v", err, err)
	}
	if validationErr.Field != "RunID" {
		t.Errorf("Field = %s, want RunID", validationErr.Field)
	}
}

func TestSaveRun_Overwrite(t *testing.T) {
	store, _ := setupTestStore(t)

	runID := "run-overwrite"
	first := createTestRecord(runID)
	first.Result.Value = 0.5
	second := createTestRecord(runID)
	second.Result.Value = 0.1

	if err := store.SaveRun(first); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if err := store.SaveRun(second); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := store.LoadRun(runID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Result.Value != 0.1 {
		t.Errorf("Expected Value=0.1, got %f", loaded.Result.Value)
	}
}

func TestLoadRun(t *testing.T) {
	store, _ := setupTestStore(t)

	original := createTestRecord("run-load")
	original.ResumedFrom = "run-before"
	if err := store.SaveRun(original); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	loaded, err := store.LoadRun(original.RunID)
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}

	if loaded.Result.Status != opt.GradientThreshold {
		t.Errorf("Status mismatch: expected %v, got %v", opt.GradientThreshold, loaded.Result.Status)
	}
	if loaded.Result.Method != params.BFGS {
		t.Errorf("Method mismatch: expected bfgs, got %s", loaded.Result.Method)
	}
	if loaded.Config.Params.StepSize != params.GoldenSection {
		t.Errorf("StepSize mismatch: expected golden, got %s", loaded.Config.Params.StepSize)
	}
	if loaded.Config.Params.MaxIterations != original.Config.Params.MaxIterations {
		t.Errorf("MaxIterations mismatch: expected %d, got %d",
			original.Config.Params.MaxIterations, loaded.Config.Params.MaxIterations)
	}
	if loaded.Stats != original.Stats {
		t.Errorf("Stats mismatch: expected %+v, got %+v", original.Stats, loaded.Stats)
	}
	if loaded.ResumedFrom != "run-before" {
		t.Errorf("ResumedFrom mismatch: got %q", loaded.ResumedFrom)
	}
	if len(loaded.Result.X) != 2 || loaded.Result.X[1] != -2e-9 {
		t.Errorf("Result.X mismatch: got %v", loaded.Result.X)
	}
}

func TestLoadRun_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.LoadRun("nonexistent-run")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected NotFoundError, got %T: %v", err, err)
	}

	if _, err := store.LoadRun(""); err == nil {
		t.Fatal("Expected error for empty runID")
	}
}

func TestListRuns_Empty(t *testing.T) {
	store, _ := setupTestStore(t)

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected 0 runs, got %d", len(infos))
	}
}

func TestListRuns_SortedAndSkipsInvalid(t *testing.T) {
	store, tempDir := setupTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-c", "run-a", "run-b"} {
		record := createTestRecord(id)
		record.Finished = base.Add(time.Duration(i) * time.Minute)
		if err := store.SaveRun(record); err != nil {
			t.Fatalf("SaveRun(%s) failed: %v", id, err)
		}
	}

	// A directory holding only a trace and one with a corrupted record.
	if err := os.MkdirAll(filepath.Join(tempDir, "runs", "trace-only"), 0755); err != nil {
		t.Fatal(err)
	}
	corrupt := filepath.Join(tempDir, "runs", "corrupt")
	if err := os.MkdirAll(corrupt, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(corrupt, "run.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tempDir, "runs", "stray.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(infos))
	}
	for i, want := range []string{"run-c", "run-a", "run-b"} {
		if infos[i].RunID != want {
			t.Errorf("infos[%d].RunID = %s, want %s", i, infos[i].RunID, want)
		}
	}
}

func TestDeleteRun(t *testing.T) {
	store, tempDir := setupTestStore(t)

	runID := "run-delete"
	if err := store.SaveRun(createTestRecord(runID)); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	w, err := NewTraceWriter(tempDir, runID, false)
	if err != nil {
		t.Fatalf("NewTraceWriter failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := store.DeleteRun(runID); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "runs", runID)); !os.IsNotExist(err) {
		t.Error("Run directory still exists after delete")
	}
	if _, err := store.LoadRun(runID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected NotFoundError after delete, got %v", err)
	}
}

func TestDeleteRun_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.DeleteRun("nonexistent-run"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected NotFoundError, got %T: %v", err, err)
	}
	if err := store.DeleteRun(""); err == nil {
		t.Fatal("Expected error for empty runID")
	}
}

func TestConcurrentSave(t *testing.T) {
	store, _ := setupTestStore(t)

	const numRuns = 10
	var wg sync.WaitGroup
	errs := make(chan error, numRuns)

	for i := 0; i < numRuns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.SaveRun(createTestRecord(NewRunID()))
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Concurrent save failed: %v", err)
		}
	}

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != numRuns {
		t.Errorf("Expected %d runs, got %d", numRuns, len(infos))
	}
}
