package output

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kr/pretty"
	"github.com/nsf/jsondiff"
)

func TestRecordSetKeepsFirstPosition(t *testing.T) {
	r := NewRecord("b", "1", "a", "2")
	r.Set("b", "3")
	r.Set("c", "4")
	if got, want := r.Keys(), []string{"b", "a", "c"}; !equalStrings(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if r.Get("b") != "3" {
		t.Errorf("Get(b) = %q, want 3", r.Get("b"))
	}
	if _, ok := r.Lookup("z"); ok {
		t.Error("Lookup(z) should be absent")
	}
}

func TestMergeRecordsDetailWins(t *testing.T) {
	listing := NewRecord(
		"urun_ad", "Phone A",
		"urun_url", "https://www.epey.com/a.html",
		"urun_fiyat", "",
		"urun_puan", "4.5",
	)
	detail := NewRecord(
		"genel_isletim_sistemi", "Android",
		"urun_puan", "4.6",
	)
	got := MergeRecords(listing, detail)
	want := NewRecord(
		"urun_ad", "Phone A",
		"urun_url", "https://www.epey.com/a.html",
		"urun_fiyat", "",
		"urun_puan", "4.6",
		"genel_isletim_sistemi", "Android",
	)
	if diff := pretty.Diff(want.Keys(), got.Keys()); len(diff) > 0 {
		t.Errorf("MergeRecords() keys diff: %v", diff)
	}
	for _, k := range want.Keys() {
		if got.Get(k) != want.Get(k) {
			t.Errorf("MergeRecords()[%q] = %q, want %q", k, got.Get(k), want.Get(k))
		}
	}
	if listing.Get("urun_puan") != "4.5" {
		t.Error("MergeRecords() mutated its input")
	}
}

func TestRecordsColumnsFirstSeen(t *testing.T) {
	recs := Records{
		NewRecord("urun_ad", "A", "ekran_boyut", "6.1"),
		NewRecord("urun_ad", "B", "batarya_kapasite", "5000", "ekran_boyut", "6.7"),
	}
	want := []string{"urun_ad", "ekran_boyut", "batarya_kapasite"}
	if got := recs.Columns(); !equalStrings(got, want) {
		t.Errorf("Columns() = %v, want %v", got, want)
	}
	if got := recs.TotalFields(); got != 5 {
		t.Errorf("TotalFields() = %d, want 5", got)
	}
}

func TestRecordProject(t *testing.T) {
	r := NewRecord("a", "1", "b", "2")
	p := r.Project([]string{"b", "z"})
	if got := p.Keys(); !equalStrings(got, []string{"b", "z"}) {
		t.Errorf("Project() keys = %v", got)
	}
	if p.Get("z") != "" {
		t.Errorf("Project() z = %q, want empty", p.Get("z"))
	}
}

func TestRecordsJSONKeepsOrderAndText(t *testing.T) {
	recs := Records{NewRecord("urun_ad", "Işık <Pro>", "bellek", "4 GB | 8 GB")}
	want := `[{"urun_ad":"Işık <Pro>","bellek":"4 GB | 8 GB"}]`
	buf := &bytes.Buffer{}
	if err := (&StreamWriter{W: buf}).Write(recs); err != nil {
		t.Fatalf("StreamWriter.Write() error: %v", err)
	}
	got := buf.String()
	opts := jsondiff.DefaultConsoleOptions()
	if d, s := jsondiff.Compare([]byte(want), []byte(got), &opts); d != jsondiff.FullMatch {
		t.Errorf("Write() mismatch: %s", s)
	}
	if !strings.Contains(got, "<Pro>") || !strings.Contains(got, "Işık") {
		t.Errorf("Write() escaped text: %s", got)
	}
	if strings.Index(got, "urun_ad") > strings.Index(got, "bellek") {
		t.Errorf("Write() lost key order: %s", got)
	}
}

func TestWriters(t *testing.T) {
	recs := Records{NewRecord("urun_ad", "A")}
	p := filepath.Join(t.TempDir(), "nested", "listing.json")
	if err := NewWriter(p).Write(recs); err != nil {
		t.Fatalf("FileWriter.Write() error: %v", err)
	}
	bs, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	buf := &bytes.Buffer{}
	if err := (&StreamWriter{W: buf}).Write(recs); err != nil {
		t.Fatalf("StreamWriter.Write() error: %v", err)
	}
	if buf.String() != string(bs) {
		t.Errorf("StreamWriter wrote %q, FileWriter wrote %q", buf.String(), string(bs))
	}
	if _, ok := NewWriter("-").(*StreamWriter); !ok {
		t.Error(`NewWriter("-") should write to stdout`)
	}
}

func TestSetDefaultLogger(t *testing.T) {
	prev := slog.Default()
	console := &bytes.Buffer{}
	consoleH := slog.NewTextHandler(console, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(consoleH))
	defer slog.SetDefault(prev)

	p := filepath.Join(t.TempDir(), "logs", "run.log")
	logS, err := SetDefaultLogger(p, slog.LevelInfo, consoleH)
	if err != nil {
		t.Fatalf("SetDefaultLogger() error: %v", err)
	}
	slog.Info("scraped product", "name", "Phone A")
	slog.Debug("page body", "bytes", 1024)
	RestoreDefaultLogger(logS)
	slog.Info("after restore")

	bs, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(bs)), "\n")
	if len(lines) != 1 {
		t.Fatalf("log file has %d lines, want 1: %q", len(lines), string(bs))
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "scraped product" || entry["name"] != "Phone A" {
		t.Errorf("log entry = %# v", pretty.Formatter(entry))
	}

	out := console.String()
	for _, want := range []string{`name="Phone A"`, "page body", "after restore"} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q: %q", want, out)
		}
	}
}

func TestSetDefaultLoggerFileOnly(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	p := filepath.Join(t.TempDir(), "run.log")
	logS, err := SetDefaultLogger(p, slog.LevelDebug, nil)
	if err != nil {
		t.Fatalf("SetDefaultLogger() error: %v", err)
	}
	slog.With("step", "ml").Debug("wrote dataset")
	RestoreDefaultLogger(logS)

	bs, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(bs), `"step":"ml"`) {
		t.Errorf("log file = %q", string(bs))
	}
}

func TestSetDefaultLoggerBadPath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := SetDefaultLogger(filepath.Join(blocker, "run.log"), slog.LevelInfo, nil); err == nil {
		t.Error("SetDefaultLogger() under a regular file should fail")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
