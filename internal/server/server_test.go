package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gotest.tools/v3/assert"

	"github.com/keysmith-io/keysmith/api"
	"github.com/keysmith-io/keysmith/internal/logging"
	"github.com/keysmith-io/keysmith/internal/primitives"
	"github.com/keysmith-io/keysmith/internal/testing/patch"
)

func setupServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	patch.ModelsSymmetricKey(t)
	logging.PatchLogger(t, zerolog.NewTestWriter(t))

	dir := t.TempDir()
	srv, err := New(Options{
		DBFile:          filepath.Join(dir, "keysmith.db"),
		DBEncryptionKey: filepath.Join(dir, "root.key"),
	})
	assert.NilError(t, err)
	return srv
}

func setupClient(t *testing.T, srv *Server) api.Client {
	t.Helper()
	ts := httptest.NewServer(srv.GenerateRoutes())
	t.Cleanup(ts.Close)
	return api.Client{URL: ts.URL}
}

func TestAPICreateKeyset(t *testing.T) {
	srv := setupServer(t)
	client := setupClient(t, srv)

	keyset, err := client.CreateKeyset(&api.CreateKeysetRequest{
		Name:     "app-secrets",
		Template: "AES256_GCM",
	})
	assert.NilError(t, err)
	assert.Equal(t, keyset.Name, "app-secrets")
	assert.Equal(t, keyset.Family, primitives.FamilyAESGCM)

	t.Run("duplicate name conflicts", func(t *testing.T) {
		_, err := client.CreateKeyset(&api.CreateKeysetRequest{
			Name:     "app-secrets",
			Template: "AES256_GCM",
		})
		assert.ErrorIs(t, err, api.ErrDuplicate)
	})

	t.Run("invalid name", func(t *testing.T) {
		_, err := client.CreateKeyset(&api.CreateKeysetRequest{
			Name:     "bad name!",
			Template: "AES256_GCM",
		})
		assert.ErrorIs(t, err, api.ErrBadRequest)
	})

	t.Run("unknown template", func(t *testing.T) {
		_, err := client.CreateKeyset(&api.CreateKeysetRequest{
			Name:     "other",
			Template: "AES512_MAGIC",
		})
		assert.ErrorIs(t, err, api.ErrBadRequest)
	})

	t.Run("get and list", func(t *testing.T) {
		keyset, err := client.GetKeyset("app-secrets")
		assert.NilError(t, err)
		assert.Equal(t, keyset.Family, primitives.FamilyAESGCM)

		keysets, err := client.ListKeysets()
		assert.NilError(t, err)
		assert.Equal(t, len(keysets), 1)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := client.GetKeyset("missing")
		assert.ErrorIs(t, err, api.ErrNotFound)
	})
}

func TestAPIKeyLifecycle(t *testing.T) {
	srv := setupServer(t)
	client := setupClient(t, srv)

	_, err := client.CreateKeyset(&api.CreateKeysetRequest{
		Name:     "rotating",
		Template: "AES256_GCM",
	})
	assert.NilError(t, err)

	next, err := client.AddKey("rotating", &api.AddKeyRequest{Template: "AES256_GCM"})
	assert.NilError(t, err)
	assert.Assert(t, !next.Primary)
	assert.Equal(t, next.Status, "enabled")

	keys, err := client.ListKeys("rotating")
	assert.NilError(t, err)
	assert.Equal(t, len(keys), 2)

	assert.NilError(t, client.PromoteKey("rotating", next.ID))

	keys, err = client.ListKeys("rotating")
	assert.NilError(t, err)
	primaries := 0
	for _, key := range keys {
		if key.Primary {
			primaries++
			assert.Equal(t, key.ID, next.ID)
		}
	}
	assert.Equal(t, primaries, 1)

	t.Run("family mismatch", func(t *testing.T) {
		_, err := client.AddKey("rotating", &api.AddKeyRequest{Template: "AES256_SIV"})
		assert.ErrorIs(t, err, api.ErrBadRequest)
	})

	t.Run("disable retired key", func(t *testing.T) {
		var retired api.Key
		for _, key := range keys {
			if !key.Primary {
				retired = key
			}
		}

		key, err := client.SetKeyStatus("rotating", retired.ID, &api.SetKeyStatusRequest{Status: "disabled"})
		assert.NilError(t, err)
		assert.Equal(t, key.Status, "disabled")
	})

	t.Run("primary key cannot be disabled", func(t *testing.T) {
		_, err := client.SetKeyStatus("rotating", next.ID, &api.SetKeyStatusRequest{Status: "disabled"})
		assert.ErrorIs(t, err, api.ErrBadRequest)
	})
}

func TestAPIExportKeyset(t *testing.T) {
	srv := setupServer(t)
	client := setupClient(t, srv)

	_, err := client.CreateKeyset(&api.CreateKeysetRequest{
		Name:     "exported",
		Template: "AES256_SIV",
	})
	assert.NilError(t, err)

	info, err := client.ExportKeysetInfo("exported")
	assert.NilError(t, err)
	assert.Equal(t, info.Family, primitives.FamilyAESSIV)
	assert.Equal(t, len(info.Keys), 1)
	assert.Equal(t, len(info.Keys[0].Material), 0)

	full, err := client.ExportKeyset("exported")
	assert.NilError(t, err)
	assert.Assert(t, len(full.Keys[0].Material) != 0)
}

func TestAPIDeleteKeyset(t *testing.T) {
	srv := setupServer(t)
	client := setupClient(t, srv)

	_, err := client.CreateKeyset(&api.CreateKeysetRequest{
		Name:     "doomed",
		Template: "AES256_GCM",
	})
	assert.NilError(t, err)

	assert.NilError(t, client.DeleteKeyset("doomed"))

	_, err = client.GetKeyset("doomed")
	assert.ErrorIs(t, err, api.ErrNotFound)

	t.Run("delete missing", func(t *testing.T) {
		err := client.DeleteKeyset("doomed")
		assert.ErrorIs(t, err, api.ErrNotFound)
	})
}

func TestHealthz(t *testing.T) {
	srv := setupServer(t)

	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.GenerateRoutes().ServeHTTP(resp, req)
	assert.Equal(t, resp.Code, http.StatusOK)
}
