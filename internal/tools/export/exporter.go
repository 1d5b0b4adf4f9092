// Package export writes the statically generated page set to disk so it can
// be served by any file host.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"plantpedia/internal/isr"
)

// ManifestFile is written next to the exported pages.
const ManifestFile = "manifest.json"

type PageRecord struct {
	Key      string `json:"key"`
	Locale   string `json:"locale"`
	Path     string `json:"path"`
	Status   int    `json:"status"`
	File     string `json:"file,omitempty"`
	Location string `json:"location,omitempty"`
}

type Totals struct {
	Pages     int `json:"pages"`
	Written   int `json:"written"`
	Redirects int `json:"redirects"`
	Missing   int `json:"missing"`
	NotFound  int `json:"not_found"`
}

type Manifest struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Totals      Totals       `json:"totals"`
	Pages       []PageRecord `json:"pages"`
}

// PublicPathFunc maps a locale and an unprefixed path to the URL path a
// visitor uses, e.g. ("es", "/entry/fern") -> "/es/entry/fern".
type PublicPathFunc func(locale, path string) string

// Export copies each target's stored page into outDir as
// <public path>/index.html and writes a manifest. Targets that were never
// rendered are listed with status 0; not-found markers get no file.
func Export(ctx context.Context, store isr.Store, targets []isr.Target, publicPath PublicPathFunc, outDir string) (Manifest, error) {
	records := make([]PageRecord, 0, len(targets))
	var totals Totals

	for _, target := range targets {
		page, ok, err := store.Get(ctx, target.Key)
		if err != nil {
			return Manifest{}, fmt.Errorf("read %s: %w", target.Key, err)
		}

		record := PageRecord{
			Key:    target.Key,
			Locale: target.Locale,
			Path:   publicPath(target.Locale, target.Path),
		}
		switch {
		case !ok:
			totals.Missing++
		case page.Location != "":
			record.Status = page.Status
			record.Location = publicPath(target.Locale, page.Location)
			totals.Redirects++
		case page.Status == http.StatusNotFound:
			record.Status = page.Status
			totals.NotFound++
		default:
			record.Status = page.Status
			record.File = fileFor(record.Path)
			if err := writeFile(filepath.Join(outDir, record.File), page.Body); err != nil {
				return Manifest{}, err
			}
			totals.Written++
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Path == records[j].Path {
			return records[i].Locale < records[j].Locale
		}
		return records[i].Path < records[j].Path
	})

	totals.Pages = len(records)
	m := Manifest{
		GeneratedAt: time.Now().UTC(),
		Totals:      totals,
		Pages:       records,
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Manifest{}, err
	}
	if err := writeFile(filepath.Join(outDir, ManifestFile), data); err != nil {
		return Manifest{}, err
	}

	return m, nil
}

func fileFor(publicPath string) string {
	trimmed := strings.Trim(publicPath, "/")
	if trimmed == "" {
		return "index.html"
	}
	return filepath.Join(filepath.FromSlash(trimmed), "index.html")
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
