package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/keysmith-io/keysmith/uid"
)

type Client struct {
	URL  string
	HTTP http.Client
}

func checkError(status int, body []byte) error {
	var apiError Error

	err := json.Unmarshal(body, &apiError)
	if err != nil {
		apiError.Message = string(body)
		apiError.Code = int32(status)
	}

	switch apiError.Code {
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrDuplicate, apiError.Message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, apiError.Message)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, apiError.Message)
	case http.StatusInternalServerError:
		return ErrInternal
	}

	if status >= 400 {
		return errors.New(http.StatusText(status))
	}

	return nil
}

func get[Res any](client Client, path string) (*Res, error) {
	return do[struct{}, Res](client, http.MethodGet, path, nil)
}

func do[Req, Res any](client Client, method string, path string, req *Req) (*Res, error) {
	var reqBody io.Reader
	if req != nil {
		body, err := json.Marshal(req)
		if err != nil {
			return nil, fmt.Errorf("marshal json: %w", err)
		}
		reqBody = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequest(method, client.URL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if req != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if err := checkError(resp.StatusCode, body); err != nil {
		return nil, fmt.Errorf("%s %q responded %d: %w", method, path, resp.StatusCode, err)
	}

	var res Res
	if len(body) > 0 {
		if err := json.Unmarshal(body, &res); err != nil {
			return nil, fmt.Errorf("parsing json response: %w", err)
		}
	}

	return &res, nil
}

func (c Client) CreateKeyset(req *CreateKeysetRequest) (*Keyset, error) {
	return do[CreateKeysetRequest, Keyset](c, http.MethodPost, "/v1/keysets", req)
}

func (c Client) ListKeysets() ([]Keyset, error) {
	res, err := get[[]Keyset](c, "/v1/keysets")
	if err != nil {
		return nil, err
	}
	return *res, nil
}

func (c Client) GetKeyset(name string) (*Keyset, error) {
	return get[Keyset](c, "/v1/keysets/"+name)
}

func (c Client) DeleteKeyset(name string) error {
	_, err := do[struct{}, struct{}](c, http.MethodDelete, "/v1/keysets/"+name, nil)
	return err
}

func (c Client) AddKey(keyset string, req *AddKeyRequest) (*Key, error) {
	return do[AddKeyRequest, Key](c, http.MethodPost, "/v1/keysets/"+keyset+"/keys", req)
}

func (c Client) ListKeys(keyset string) ([]Key, error) {
	res, err := get[[]Key](c, "/v1/keysets/"+keyset+"/keys")
	if err != nil {
		return nil, err
	}
	return *res, nil
}

func (c Client) PromoteKey(keyset string, keyID uid.ID) error {
	_, err := do[struct{}, Key](c, http.MethodPost, "/v1/keysets/"+keyset+"/keys/"+keyID.String()+"/promote", nil)
	return err
}

func (c Client) SetKeyStatus(keyset string, keyID uid.ID, req *SetKeyStatusRequest) (*Key, error) {
	return do[SetKeyStatusRequest, Key](c, http.MethodPut, "/v1/keysets/"+keyset+"/keys/"+keyID.String()+"/status", req)
}

// ExportKeysetInfo returns the keyset description without key material.
func (c Client) ExportKeysetInfo(name string) (*ExportedKeyset, error) {
	return get[ExportedKeyset](c, "/v1/keysets/"+name+"/info")
}

// ExportKeyset returns the keyset including plaintext key material.
func (c Client) ExportKeyset(name string) (*ExportedKeyset, error) {
	return get[ExportedKeyset](c, "/v1/keysets/"+name+"/export")
}
