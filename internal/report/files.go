package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LatestFile returns the newest "{clubID}_{timestamp}.xlsx" (or .xls) report in dir, comparing
// the timestamp segment as text.
func LatestFile(dir, clubID string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("list reports in %s: %w", dir, err)
	}
	var best, bestStamp string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		stamp, ok := reportStamp(e.Name(), clubID)
		if !ok {
			continue
		}
		if best == "" || stamp > bestStamp {
			best, bestStamp = e.Name(), stamp
		}
	}
	if best == "" {
		return "", fmt.Errorf("no report files for club %s in %s", clubID, dir)
	}
	return filepath.Join(dir, best), nil
}

func reportStamp(name, clubID string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".xlsx" && ext != ".xls" {
		return "", false
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	prefix := clubID + "_"
	if !strings.HasPrefix(base, prefix) {
		return "", false
	}
	stamp := strings.SplitN(strings.TrimPrefix(base, prefix), "_", 2)[0]
	if stamp == "" {
		return "", false
	}
	return stamp, true
}
