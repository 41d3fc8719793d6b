package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

const runDirPrefix = "run_"

// timestampLayout is used for run directories and document names.
const timestampLayout = "20060102_150405"

// SanitizeName maps every rune that is not a letter, digit, '.', '_' or '-'
// to '_'. Applying it twice gives the same result as applying it once.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		switch r {
		case '.', '_', '-':
			return r
		}
		return '_'
	}, name)
}

// ImageFileName returns the sort-stable file name for a captured page,
// e.g. "003_Reports___Daily.png".
func ImageFileName(ordinal int, name, ext string) string {
	return fmt.Sprintf("%03d_%s.%s", ordinal, SanitizeName(name), ext)
}

// RunDirName returns the per-run output directory name for t.
func RunDirName(t time.Time) string {
	return runDirPrefix + t.Format(timestampLayout)
}

// DocumentFileName returns "<docName>_<timestamp>.pdf".
func DocumentFileName(docName string, t time.Time) string {
	return fmt.Sprintf("%s_%s.pdf", docName, t.Format(timestampLayout))
}

// LatestRunDir returns the most recently modified run_* directory under
// outputDir, or "" when there is none.
func LatestRunDir(outputDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(outputDir, runDirPrefix+"*"))
	if err != nil {
		return "", err
	}
	var (
		latest    string
		latestMod time.Time
	)
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.IsDir() {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest, latestMod = m, info.ModTime()
		}
	}
	return latest, nil
}
