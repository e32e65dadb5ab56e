package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"pkt.systems/ayen/schema"
	"pkt.systems/pslog"
)

func TestWithDownloadAddsFields(t *testing.T) {
	capture := &logCapture{}
	logger := pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
	log := WithDownload(logger, schema.DownloadSnapshot{ID: "guid-1"})
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["download"] != "guid-1" {
		t.Fatalf("expected download field, got %+v", entry)
	}
	if _, ok := entry["filename"]; ok {
		t.Fatalf("did not expect filename for id-only download")
	}
}

func TestWithWindowTabAddsFields(t *testing.T) {
	capture := &logCapture{}
	logger := pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
	ctx := pslog.ContextWithLogger(context.Background(), logger)
	log := WithWindowTab(ctx, "main", "tab1")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["window"] != "main" {
		t.Fatalf("expected window field, got %+v", entry)
	}
	if entry["tab"] != "tab1" {
		t.Fatalf("expected tab field, got %+v", entry)
	}
}

func TestWithWindowSkipsDuplicateMarker(t *testing.T) {
	capture := &logCapture{}
	logger := pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
	ctx := ContextWithWindowLogger(context.Background(), logger.With("window", "main"), "main")
	WithWindow(ctx, "main").Info("hello")

	line := bytes.TrimSpace(capture.buf.Bytes())
	if got := bytes.Count(line, []byte(`"window"`)); got != 1 {
		t.Fatalf("expected a single window field, got %d in %s", got, line)
	}
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}
