package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/keysmith-io/keysmith/api"
	"github.com/keysmith-io/keysmith/internal"
	"github.com/keysmith-io/keysmith/internal/data"
	"github.com/keysmith-io/keysmith/internal/keyring"
	"github.com/keysmith-io/keysmith/internal/models"
	"github.com/keysmith-io/keysmith/uid"
)

func (s *Server) listKeysets(c *gin.Context) {
	keysets, err := data.ListKeysets(s.db)
	if err != nil {
		sendAPIError(c, err)
		return
	}

	resp := make([]api.Keyset, 0, len(keysets))
	for i := range keysets {
		resp = append(resp, *keysetToAPI(&keysets[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) createKeyset(c *gin.Context) {
	var req api.CreateKeysetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendAPIError(c, requestError(err))
		return
	}

	kr, err := keyring.Create(s.db, s.registry, req.Name, req.Template)
	if err != nil {
		sendAPIError(c, err)
		return
	}

	s.mu.Lock()
	s.keyrings[req.Name] = kr
	s.mu.Unlock()

	c.JSON(http.StatusCreated, keysetToAPI(kr.Keyset()))
}

func (s *Server) getKeyset(c *gin.Context) {
	keyset, err := data.GetKeysetByName(s.db, c.Param("name"))
	if err != nil {
		sendAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, keysetToAPI(keyset))
}

func (s *Server) deleteKeyset(c *gin.Context) {
	name := c.Param("name")

	kr, err := s.keyring(name)
	if err != nil {
		sendAPIError(c, err)
		return
	}
	if err := kr.Delete(); err != nil {
		sendAPIError(c, err)
		return
	}

	s.forgetKeyring(name)
	c.Status(http.StatusNoContent)
}

func (s *Server) listKeys(c *gin.Context) {
	kr, err := s.keyring(c.Param("name"))
	if err != nil {
		sendAPIError(c, err)
		return
	}

	keys, err := kr.Keys()
	if err != nil {
		sendAPIError(c, err)
		return
	}

	resp := make([]api.Key, 0, len(keys))
	for i := range keys {
		resp = append(resp, *keyToAPI(&keys[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) addKey(c *gin.Context) {
	var req api.AddKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendAPIError(c, requestError(err))
		return
	}

	kr, err := s.keyring(c.Param("name"))
	if err != nil {
		sendAPIError(c, err)
		return
	}

	key, err := kr.GenerateKey(req.Template)
	if err != nil {
		sendAPIError(c, err)
		return
	}
	c.JSON(http.StatusCreated, keyToAPI(key))
}

func (s *Server) promoteKey(c *gin.Context) {
	kr, keyID, err := s.keyringAndKeyID(c)
	if err != nil {
		sendAPIError(c, err)
		return
	}

	if err := kr.Promote(keyID); err != nil {
		sendAPIError(c, err)
		return
	}

	key, err := data.GetKeyByID(s.db, kr.Keyset().ID, keyID)
	if err != nil {
		sendAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, keyToAPI(key))
}

func (s *Server) setKeyStatus(c *gin.Context) {
	var req api.SetKeyStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendAPIError(c, requestError(err))
		return
	}

	kr, keyID, err := s.keyringAndKeyID(c)
	if err != nil {
		sendAPIError(c, err)
		return
	}

	if err := kr.SetKeyStatus(keyID, models.KeyStatus(req.Status)); err != nil {
		sendAPIError(c, err)
		return
	}

	key, err := data.GetKeyByID(s.db, kr.Keyset().ID, keyID)
	if err != nil {
		sendAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, keyToAPI(key))
}

func (s *Server) exportKeysetInfo(c *gin.Context) {
	kr, err := s.keyring(c.Param("name"))
	if err != nil {
		sendAPIError(c, err)
		return
	}

	exported, err := kr.ExportInfo()
	if err != nil {
		sendAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, exportedToAPI(exported))
}

func (s *Server) exportKeyset(c *gin.Context) {
	kr, err := s.keyring(c.Param("name"))
	if err != nil {
		sendAPIError(c, err)
		return
	}

	exported, err := kr.UnsafeExport()
	if err != nil {
		sendAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, exportedToAPI(exported))
}

func (s *Server) keyringAndKeyID(c *gin.Context) (*keyring.Keyring, uid.ID, error) {
	kr, err := s.keyring(c.Param("name"))
	if err != nil {
		return nil, 0, err
	}

	keyID, err := uid.Parse([]byte(c.Param("id")))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: invalid key id: %v", internal.ErrBadRequest, err)
	}
	return kr, keyID, nil
}

func keysetToAPI(m *models.Keyset) *api.Keyset {
	return &api.Keyset{
		ID:      m.ID,
		Name:    m.Name,
		Family:  m.Family,
		Created: m.CreatedAt,
	}
}

func keyToAPI(m *models.Key) *api.Key {
	return &api.Key{
		ID:      m.ID,
		Status:  string(m.Status),
		Kind:    string(m.Kind),
		Primary: m.IsPrimary,
		Created: m.CreatedAt,
	}
}

func exportedToAPI(e *keyring.ExportedKeyset) *api.ExportedKeyset {
	out := &api.ExportedKeyset{
		Name:   e.Name,
		Family: e.Family,
		Keys:   make([]api.ExportedKey, 0, len(e.Keys)),
	}
	for _, key := range e.Keys {
		out.Keys = append(out.Keys, api.ExportedKey{
			ID:        key.ID,
			Algorithm: key.Algorithm,
			Status:    string(key.Status),
			Kind:      string(key.Kind),
			Primary:   key.Primary,
			Material:  key.Material,
		})
	}
	return out
}
