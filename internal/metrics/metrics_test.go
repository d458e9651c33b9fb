package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteTextfile(t *testing.T) {
	RecordReport("Scripts", "OK", 12, 30*time.Millisecond)
	RecordReportError("not_found")
	RecordLedgerEntries("placeholder", 3)
	RecordLedgerSkips("folder", 1)
	RecordTreeRead("git")
	RecordCountCacheHit()
	RecordStoreOperation("local", "get", time.Millisecond, false)
	RecordDBQuery("iterate", time.Millisecond)

	path := filepath.Join(t.TempDir(), "gvfs.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`gvfs_health_reports_total{status="OK"}`,
		`gvfs_hydration_percent{scope="Scripts"} 12`,
		`gvfs_health_report_errors_total{kind="not_found"}`,
		`gvfs_ledger_entries_scanned_total{classification="placeholder"}`,
		`gvfs_ledger_entries_skipped_total{reason="folder"}`,
		`gvfs_baseline_tree_reads_total{source="git"}`,
		`gvfs_store_operations_total{backend="local",operation="get",status="error"}`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %s", want)
		}
	}
}

func TestRecordReportRootScope(t *testing.T) {
	RecordReport("", "Highly Hydrated", 70, time.Millisecond)

	path := filepath.Join(t.TempDir(), "gvfs.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `gvfs_hydration_percent{scope="/"} 70`) {
		t.Errorf("root scope not recorded as \"/\":\n%s", data)
	}
}
