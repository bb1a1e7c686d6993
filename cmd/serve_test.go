package cmd

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildServer_DegradesOnMissingConfigFiles(t *testing.T) {
	_, out := testEnv(t)

	dir := t.TempDir()
	viper.Set("users_path", filepath.Join(dir, "missing-users.json"))
	viper.Set("labels_path", filepath.Join(dir, "missing-labels.json"))
	viper.Set("dataset_path", filepath.Join(dir, "missing.csv"))
	viper.Set("output_dir", filepath.Join(dir, "output"))

	srv := buildServer()
	require.NotNil(t, srv)

	warnings := out.String()
	assert.Contains(t, warnings, "credentials unavailable")
	assert.Contains(t, warnings, "label catalog unavailable")

	// The server still runs; logins just fail closed.
	body := strings.NewReader(`{"username":"alice","password":"s3cret"}`)
	req := httptest.NewRequest("POST", "/api/v1/login", body)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBuildServer_FullConfig(t *testing.T) {
	_, out := testEnv(t)

	dir := t.TempDir()
	usersPath := filepath.Join(dir, "users.json")
	require.NoError(t, os.WriteFile(usersPath, []byte(`{"users": {"alice": "s3cret"}}`), 0644))
	labelsPath := filepath.Join(dir, "labels.json")
	require.NoError(t, os.WriteFile(labelsPath, []byte(`{"maize": {"1": "rust"}}`), 0644))
	csvPath := filepath.Join(dir, "annotations.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("image_path,crop1,label1,crop2,label2\nimg1.png,maize,rust,maize,blight\n"), 0644))

	viper.Set("users_path", usersPath)
	viper.Set("labels_path", labelsPath)
	viper.Set("dataset_path", csvPath)
	viper.Set("output_dir", filepath.Join(dir, "output"))

	srv := buildServer()
	require.NotNil(t, srv)
	assert.Empty(t, out.String())

	body := strings.NewReader(`{"username":"alice","password":"s3cret"}`)
	req := httptest.NewRequest("POST", "/api/v1/login", body)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
