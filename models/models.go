// Package models fetches the offline speech model on first use.
package models

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Present reports whether modelPath is an existing directory.
func Present(modelPath string) bool {
	st, err := os.Stat(modelPath)
	return err == nil && st.IsDir()
}

// Ensure downloads the zip at url and installs its single top-level folder
// as modelPath, unless modelPath already exists. Progress goes to progress
// when non-nil. It reports whether a download happened.
func Ensure(ctx context.Context, modelPath, url string, progress io.Writer) (bool, error) {
	if Present(modelPath) {
		return false, nil
	}
	dir := filepath.Dir(modelPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create model dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".vosk-model-*.zip")
	if err != nil {
		return false, fmt.Errorf("create temp file: %w", err)
	}
	zipPath := tmpFile.Name()
	defer os.Remove(zipPath)

	if err := download(ctx, url, tmpFile, progress); err != nil {
		tmpFile.Close()
		return false, err
	}
	if err := tmpFile.Close(); err != nil {
		return false, err
	}

	staging, err := os.MkdirTemp(dir, ".vosk-extract-*")
	if err != nil {
		return false, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	if progress != nil {
		fmt.Fprintln(progress, "Extracting model...")
	}
	if err := extract(zipPath, staging); err != nil {
		return false, err
	}
	root, err := modelRoot(staging)
	if err != nil {
		return false, err
	}
	if err := os.Rename(root, modelPath); err != nil {
		return false, fmt.Errorf("install model: %w", err)
	}
	return true, nil
}

func download(ctx context.Context, url string, w io.Writer, progress io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download model: %s", resp.Status)
	}

	src := io.Reader(resp.Body)
	if progress != nil && resp.ContentLength > 0 {
		src = &progressReader{r: resp.Body, w: progress, total: resp.ContentLength}
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("write model archive: %w", err)
	}
	if progress != nil && resp.ContentLength > 0 {
		fmt.Fprintln(progress)
	}
	return nil
}

type progressReader struct {
	r     io.Reader
	w     io.Writer
	total int64
	read  int64
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	pct := float64(p.read) / float64(p.total) * 100
	fmt.Fprintf(p.w, "\r  %.0f%% (%d / %d KB)", pct, p.read/1024, p.total/1024)
	return n, err
}

func extract(zipPath, dest string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open model archive: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		target := filepath.Join(dest, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("model archive entry %q escapes destination", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := writeEntry(f, target); err != nil {
			return fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}
	return nil
}

func writeEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// modelRoot finds the versioned folder the archive unpacked to, e.g.
// vosk-model-small-en-us-0.15. An archive without one top-level folder is
// installed as-is.
func modelRoot(staging string) (string, error) {
	entries, err := os.ReadDir(staging)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("model archive is empty")
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(staging, entries[0].Name()), nil
	}
	return staging, nil
}
