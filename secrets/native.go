package secrets

import "fmt"

const (
	defaultRootKeyID    = "keysmith/root-key"
	keyBlockSizeInBytes = 32 // 256 bit keys
)

// NativeSecretProvider keeps the root key in any SecretStorage and performs
// data key wrapping locally. If no root key exists one is generated on first
// use.
type NativeSecretProvider struct {
	storage SecretStorage
}

func NewNativeSecretProvider(storage SecretStorage) *NativeSecretProvider {
	return &NativeSecretProvider{storage: storage}
}

var _ SecretProvider = &NativeSecretProvider{}

func (n *NativeSecretProvider) GenerateDataKey(rootKeyID string) (*SymmetricKey, error) {
	if rootKeyID == "" {
		rootKeyID = defaultRootKeyID
	}

	rootKey, err := n.storage.GetSecret(rootKeyID)
	if err != nil && err != ErrNotFound {
		return nil, fmt.Errorf("getting root key: %w", err)
	}

	if len(rootKey) == 0 {
		rootKey, err = cryptoRandRead(keyBlockSizeInBytes)
		if err != nil {
			return nil, err
		}

		if err := n.storage.SetSecret(rootKeyID, rootKey); err != nil {
			return nil, fmt.Errorf("saving root key: %w", err)
		}
	}

	fullRootKey := &SymmetricKey{
		unencrypted: rootKey,
		Algorithm:   AlgorithmAESGCM,
	}

	dataKey, err := cryptoRandRead(keyBlockSizeInBytes)
	if err != nil {
		return nil, err
	}

	encDataKey, err := Seal(fullRootKey, dataKey)
	if err != nil {
		return nil, fmt.Errorf("sealing data key: %w", err)
	}

	return &SymmetricKey{
		unencrypted: dataKey,
		Encrypted:   encDataKey,
		Algorithm:   AlgorithmAESGCM,
		RootKeyID:   rootKeyID,
	}, nil
}

func (n *NativeSecretProvider) DecryptDataKey(rootKeyID string, keyData []byte) (*SymmetricKey, error) {
	if rootKeyID == "" {
		rootKeyID = defaultRootKeyID
	}

	rootKey, err := n.storage.GetSecret(rootKeyID)
	if err != nil {
		return nil, fmt.Errorf("getting root key: %w", err)
	}

	fullRootKey := &SymmetricKey{
		unencrypted: rootKey,
		Algorithm:   AlgorithmAESGCM,
	}

	unsealed, err := Unseal(fullRootKey, keyData)
	if err != nil {
		return nil, fmt.Errorf("unsealing data key: %w", err)
	}

	return &SymmetricKey{
		unencrypted: unsealed,
		Encrypted:   keyData,
		Algorithm:   AlgorithmAESGCM,
		RootKeyID:   rootKeyID,
	}, nil
}

// NewTestSymmetricKey returns a key with the given raw material, for tests
// that need a SymmetricKey without a provider.
func NewTestSymmetricKey(material []byte) *SymmetricKey {
	return &SymmetricKey{
		unencrypted: material,
		Algorithm:   AlgorithmAESGCM,
	}
}
