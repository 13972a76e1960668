package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/corewallet/internal/version"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// withReleaseServer points version --check at a test server answering
// with tag.
func withReleaseServer(t *testing.T, status int, tag string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_, _ = w.Write([]byte(`{"tag_name":"` + tag + `","html_url":"https://example.test/releases/` + tag + `"}`))
	}))
	t.Cleanup(srv.Close)

	orig := versionCheckerFn
	t.Cleanup(func() { versionCheckerFn = orig })
	versionCheckerFn = func() (*version.Checker, error) {
		return version.NewChecker(releaseOwner, releaseRepo, version.WithBaseURL(srv.URL))
	}
}

// withBuild stamps the build info for one test.
func withBuild(t *testing.T, info BuildInfo) {
	t.Helper()
	orig := buildInfo
	t.Cleanup(func() { buildInfo = orig })
	buildInfo = info
}

// NOT parallel: mutates package-level globals.
func TestRunVersion(t *testing.T) {
	setupTestEnv(t)
	t.Cleanup(func() { versionCheck = false })

	t.Run("plain", func(t *testing.T) {
		withBuild(t, BuildInfo{Version: "v1.2.0", Commit: "abc1234", Date: "2026-06-01"})
		versionCheck = false
		cmd, buf := newTestCmd()
		require.NoError(t, runVersion(cmd, nil))
		assert.Equal(t, "corewallet v1.2.0 (commit: abc1234, built: 2026-06-01)\n", buf.String())
	})

	t.Run("newer release", func(t *testing.T) {
		withBuild(t, BuildInfo{Version: "v1.2.0"})
		withReleaseServer(t, http.StatusOK, "v1.3.0")
		versionCheck = true
		cmd, buf := newTestCmd()
		require.NoError(t, runVersion(cmd, nil))
		assert.Contains(t, buf.String(), "A newer release is available: v1.3.0")
		assert.Contains(t, buf.String(), "https://example.test/releases/v1.3.0")
	})

	t.Run("up to date as json", func(t *testing.T) {
		withBuild(t, BuildInfo{Version: "v1.3.0"})
		withReleaseServer(t, http.StatusOK, "v1.3.0")
		useJSON(t)
		versionCheck = true
		cmd, buf := newTestCmd()
		require.NoError(t, runVersion(cmd, nil))

		var report versionReport
		require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
		assert.Equal(t, "v1.3.0", report.Latest)
		require.NotNil(t, report.UpdateAvailable)
		assert.False(t, *report.UpdateAvailable)
	})

	t.Run("dev build is always behind", func(t *testing.T) {
		withBuild(t, BuildInfo{})
		withReleaseServer(t, http.StatusOK, "v0.1.0")
		useJSON(t)
		versionCheck = true
		cmd, buf := newTestCmd()
		require.NoError(t, runVersion(cmd, nil))

		var report versionReport
		require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
		assert.Equal(t, devVersionString, report.Version)
		require.NotNil(t, report.UpdateAvailable)
		assert.True(t, *report.UpdateAvailable)
	})

	t.Run("release lookup fails", func(t *testing.T) {
		withBuild(t, BuildInfo{Version: "v1.0.0"})
		withReleaseServer(t, http.StatusNotFound, "")
		versionCheck = true
		cmd, _ := newTestCmd()
		err := runVersion(cmd, nil)
		require.Error(t, err)
		assert.True(t, cwerr.Is(err, cwerr.ErrNetworkError))
	})
}
