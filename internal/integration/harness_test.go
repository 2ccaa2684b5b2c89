package integration

import (
	"bytes"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/electron-packager/internal/domain/artifact"
	"github.com/oshokin/electron-packager/internal/service/packager"
)

// archivePath is the request path the default test options render to.
const archivePath = "/v25.3.0/electron-v25.3.0-win32-x64.zip"

// serveRuntime starts a server answering archivePath with a ZIP of files.
func serveRuntime(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()

	var buf bytes.Buffer

	writer := zip.NewWriter(&buf)

	for name, contents := range files {
		w, err := writer.Create(name)
		require.NoError(t, err)

		_, err = w.Write([]byte(contents))
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())

	body := buf.Bytes()

	mux := http.NewServeMux()
	mux.HandleFunc(archivePath, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(body)
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return ts
}

// writeProject creates a project directory holding files.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()

	for name, contents := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	}

	return root
}

// baseOptions returns options for a win32 "demo" build without side effects
// outside the test directories.
func baseOptions(t *testing.T, ts *httptest.Server, project string) *packager.Options {
	t.Helper()

	dir := t.TempDir()

	return &packager.Options{
		ConfigPath:      filepath.Join(dir, "electron-packager.yaml"),
		ProjectPath:     project,
		RuntimeVersion:  "25.3.0",
		Platform:        artifact.PlatformWindows,
		Arch:            "x64",
		AppName:         "demo",
		OutputPath:      filepath.Join(dir, "out"),
		WorkPath:        filepath.Join(dir, "work"),
		URLTemplate:     ts.URL + "/v{version}/electron-v{version}-{platform}-{arch}.zip",
		SkipShortcut:    true,
		SkipLaunch:      true,
		SkipStopRunning: true,
		HTTPClient:      ts.Client(),
	}
}

// readTree returns every regular file under root keyed by slash-separated relative path.
func readTree(t *testing.T, root string) map[string]string {
	t.Helper()

	files := make(map[string]string)

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}

		contents, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		files[filepath.ToSlash(rel)] = string(contents)

		return nil
	})
	require.NoError(t, err)

	return files
}
