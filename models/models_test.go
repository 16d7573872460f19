package models

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(body))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func serve(t *testing.T, body []byte, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(status)
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEnsureDownloadsAndRenames(t *testing.T) {
	archive := zipOf(t, map[string]string{
		"vosk-model-small-en-us-0.15/am/final.mdl":  "model",
		"vosk-model-small-en-us-0.15/conf/mfcc.conf": "conf",
	})
	srv := serve(t, archive, http.StatusOK)

	dir := t.TempDir()
	modelPath := filepath.Join(dir, "vosk-model-small-en-us")
	var progress bytes.Buffer
	downloaded, err := Ensure(context.Background(), modelPath, srv.URL+"/model.zip", &progress)
	if err != nil {
		t.Fatal(err)
	}
	if !downloaded {
		t.Error("downloaded = false")
	}
	data, err := os.ReadFile(filepath.Join(modelPath, "am", "final.mdl"))
	if err != nil || string(data) != "model" {
		t.Errorf("installed file = %q, %v", data, err)
	}
	if !strings.Contains(progress.String(), "100%") {
		t.Errorf("progress = %q", progress.String())
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("leftovers in model dir: %v", names)
	}
}

func TestEnsureSkipsExisting(t *testing.T) {
	modelPath := t.TempDir()
	downloaded, err := Ensure(context.Background(), modelPath, "http://127.0.0.1:1/unreachable", nil)
	if err != nil || downloaded {
		t.Errorf("got %v, %v", downloaded, err)
	}
}

func TestEnsureHTTPError(t *testing.T) {
	srv := serve(t, []byte("gone"), http.StatusNotFound)
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model")
	_, err := Ensure(context.Background(), modelPath, srv.URL, nil)
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("got %v", err)
	}
	if Present(modelPath) {
		t.Error("model installed after failed download")
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("temp zip left behind: %d entries", len(entries))
	}
}

func TestEnsureRejectsEscapingEntries(t *testing.T) {
	srv := serve(t, zipOf(t, map[string]string{"../evil.txt": "x"}), http.StatusOK)
	dir := t.TempDir()
	_, err := Ensure(context.Background(), filepath.Join(dir, "sub", "model"), srv.URL, nil)
	if err == nil {
		t.Error("archive with an escaping entry accepted")
	}
	if _, err := os.Stat(filepath.Join(dir, "sub", "evil.txt")); err == nil {
		t.Error("entry written outside staging dir")
	}
}

func TestEnsureFlatArchive(t *testing.T) {
	srv := serve(t, zipOf(t, map[string]string{"README": "r", "am/final.mdl": "m"}), http.StatusOK)
	modelPath := filepath.Join(t.TempDir(), "model")
	if _, err := Ensure(context.Background(), modelPath, srv.URL, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(modelPath, "README")); err != nil {
		t.Error(err)
	}
}
