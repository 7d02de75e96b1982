package secrets

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"
)

// GenericConfig holds encoding options shared by the storage backends.
type GenericConfig struct {
	Base64           bool `yaml:"base64"`
	Base64URLEncoded bool `yaml:"base64UrlEncoded"`
	Base64Raw        bool `yaml:"base64Raw"`
}

func (c GenericConfig) encoder() *base64.Encoding {
	switch {
	case c.Base64URLEncoded && c.Base64Raw:
		return base64.RawURLEncoding
	case c.Base64URLEncoded:
		return base64.URLEncoding
	case c.Base64Raw:
		return base64.RawStdEncoding
	default:
		return base64.StdEncoding
	}
}

func (c GenericConfig) encode(secret []byte) []byte {
	if !c.Base64 {
		out := make([]byte, len(secret))
		copy(out, secret)
		return out
	}

	out := make([]byte, c.encoder().EncodedLen(len(secret)))
	c.encoder().Encode(out, secret)
	return out
}

func (c GenericConfig) decode(b []byte) ([]byte, error) {
	if !c.Base64 {
		return b, nil
	}

	out := make([]byte, c.encoder().DecodedLen(len(b)))
	n, err := c.encoder().Decode(out, b)
	if err != nil {
		return nil, fmt.Errorf("base64 decoding: %w", err)
	}
	return out[:n], nil
}

type FileConfig struct {
	GenericConfig
	Path string `yaml:"path" validate:"required"`
}

// FileStorage stores each secret in a file under Path.
type FileStorage struct {
	FileConfig
}

func NewFileStorage(cfg FileConfig) *FileStorage {
	return &FileStorage{FileConfig: cfg}
}

var _ SecretStorage = &FileStorage{}

func (f *FileStorage) SetSecret(name string, secret []byte) error {
	fullPath := name
	if len(f.Path) > 0 {
		fullPath = path.Join(f.Path, name)
	}

	if dir := path.Dir(fullPath); len(dir) > 0 {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %q: %w", dir, err)
		}
	}

	if err := os.WriteFile(fullPath, f.encode(secret), 0o600); err != nil {
		return fmt.Errorf("writing secret %q: %w", fullPath, err)
	}

	return nil
}

func (f *FileStorage) GetSecret(name string) ([]byte, error) {
	fullPath := path.Join(f.Path, name)

	b, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading secret %q: %w", fullPath, err)
	}

	return f.decode(b)
}

var invalidEnvNameChars = regexp.MustCompile(`[^\w\d-]`)

// EnvStorage reads secrets from environment variables. A name containing $
// is expanded, otherwise the name itself is used as the variable name.
type EnvStorage struct {
	GenericConfig
}

func NewEnvStorage(cfg GenericConfig) *EnvStorage {
	return &EnvStorage{GenericConfig: cfg}
}

var _ SecretStorage = &EnvStorage{}

func (e *EnvStorage) SetSecret(name string, secret []byte) error {
	if strings.Contains(name, "$") {
		return errors.New("env secret names cannot contain $")
	}

	name = invalidEnvNameChars.ReplaceAllString(name, "_")
	if err := os.Setenv(name, string(e.encode(secret))); err != nil {
		return fmt.Errorf("setenv: %w", err)
	}

	return nil
}

func (e *EnvStorage) GetSecret(name string) ([]byte, error) {
	var b []byte
	if strings.Contains(name, "$") {
		b = []byte(os.ExpandEnv(name))
	} else {
		b = []byte(os.Getenv(invalidEnvNameChars.ReplaceAllString(name, "_")))
	}

	if len(b) == 0 {
		return nil, nil
	}

	return e.decode(b)
}

var ErrNotImplemented = errors.New("not implemented")

// PlainStorage treats the secret name as the secret itself. Useful for
// development and tests, never for production.
type PlainStorage struct {
	GenericConfig
}

func NewPlainStorage(cfg GenericConfig) *PlainStorage {
	return &PlainStorage{GenericConfig: cfg}
}

var _ SecretStorage = &PlainStorage{}

func (p *PlainStorage) SetSecret(name string, secret []byte) error {
	return ErrNotImplemented
}

func (p *PlainStorage) GetSecret(name string) ([]byte, error) {
	if !p.Base64 {
		return []byte(name), nil
	}
	return p.decode([]byte(name))
}
