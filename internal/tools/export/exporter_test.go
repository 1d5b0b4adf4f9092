package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"plantpedia/internal/isr"
)

func publicPath(locale, path string) string {
	if locale == "en-US" {
		return path
	}
	if path == "/" {
		return "/" + locale
	}
	return "/" + locale + path
}

func TestExportWritesPagesAndManifest(t *testing.T) {
	ctx := context.Background()
	store := isr.NewMemoryStore()
	now := time.Now()

	pages := []isr.Page{
		{Key: isr.Key("en-US", "/"), Status: 200, Body: []byte("<h1>home</h1>"), GeneratedAt: now},
		{Key: isr.Key("es", "/entry/fern"), Status: 200, Body: []byte("<h1>helecho</h1>"), GeneratedAt: now},
		{Key: isr.Key("en-US", "/category/old"), Status: 307, Location: "/category/new", GeneratedAt: now},
		{Key: isr.Key("en-US", "/entry/gone"), Status: 404, GeneratedAt: now, ExpiresAt: now.Add(time.Hour)},
	}
	for _, p := range pages {
		if err := store.Put(ctx, p); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	targets := []isr.Target{
		{Key: isr.Key("es", "/entry/fern"), Locale: "es", Path: "/entry/fern"},
		{Key: isr.Key("en-US", "/"), Locale: "en-US", Path: "/"},
		{Key: isr.Key("en-US", "/category/old"), Locale: "en-US", Path: "/category/old"},
		{Key: isr.Key("es", "/entry/ghost"), Locale: "es", Path: "/entry/ghost"},
		{Key: isr.Key("en-US", "/entry/gone"), Locale: "en-US", Path: "/entry/gone"},
	}

	out := t.TempDir()
	m, err := Export(ctx, store, targets, publicPath, out)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	if m.Totals != (Totals{Pages: 5, Written: 2, Redirects: 1, Missing: 1, NotFound: 1}) {
		t.Fatalf("unexpected totals: %+v", m.Totals)
	}
	if m.Pages[0].Path != "/" || m.Pages[0].File != "index.html" {
		t.Fatalf("pages should be sorted by public path: %+v", m.Pages)
	}

	body, err := os.ReadFile(filepath.Join(out, "es", "entry", "fern", "index.html"))
	if err != nil {
		t.Fatalf("read exported page: %v", err)
	}
	if string(body) != "<h1>helecho</h1>" {
		t.Fatalf("unexpected body %q", body)
	}

	if _, err := os.Stat(filepath.Join(out, "entry", "gone", "index.html")); !os.IsNotExist(err) {
		t.Fatalf("not-found marker should not be written, stat err %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(out, ManifestFile))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var decoded Manifest
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	for _, p := range decoded.Pages {
		if p.Key == isr.Key("en-US", "/category/old") && p.Location != "/category/new" {
			t.Fatalf("redirect location missing: %+v", p)
		}
	}
}
