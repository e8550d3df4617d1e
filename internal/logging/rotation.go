package logging

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// rotate removes the oldest leadsync log files in dir so that at most
// maxFiles-1 remain before a new one is created.
func rotate(dir string, maxFiles int) error {
	if maxFiles <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	type logFile struct {
		path string
		mod  time.Time
	}
	var files []logFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		f := logFile{path: filepath.Join(dir, name)}
		if info, err := entry.Info(); err == nil {
			f.mod = info.ModTime()
		}
		files = append(files, f)
	}
	if len(files) < maxFiles {
		return nil
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].mod.Equal(files[j].mod) {
			return files[i].path < files[j].path
		}
		return files[i].mod.Before(files[j].mod)
	})
	for _, f := range files[:len(files)-maxFiles+1] {
		os.Remove(f.path) // ignore errors
	}
	return nil
}
