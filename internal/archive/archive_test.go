package archive_test

import (
	"context"
	"testing"

	"retail-sim/internal/archive"
	"retail-sim/internal/config"
)

func TestNew_DisabledIsNoop(t *testing.T) {
	a, err := archive.New(context.Background(), config.ArchiveConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := a.(archive.Noop); !ok {
		t.Fatalf("archiver = %T, want Noop", a)
	}
	keys, err := a.Export(context.Background(), "s", []archive.File{{Name: "report.md"}})
	if err != nil || keys != nil {
		t.Errorf("noop export = %v, %v", keys, err)
	}
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := archive.New(context.Background(), config.ArchiveConfig{Endpoint: "localhost:9000", Bucket: "seasons"})
	if err == nil {
		t.Error("expected missing credentials error")
	}
}

func TestObjectKeys(t *testing.T) {
	keys := archive.ObjectKeys("abc", []archive.File{{Name: "report.md"}, {Name: "../weeks.json"}})
	want := []string{"seasons/abc/report.md", "seasons/abc/weeks.json"}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key %d = %q, want %q", i, keys[i], want[i])
		}
	}
}
