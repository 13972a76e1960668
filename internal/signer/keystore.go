package signer

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"time"

	"filippo.io/age"

	"github.com/mrz1836/corewallet/internal/fileutil"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// keystoreVersion is the envelope format written by CreateKeystore.
const keystoreVersion = 1

type envelope struct {
	Version   int       `json:"version"`
	Mnemonic  string    `json:"mnemonic"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateKeystore encrypts mnemonic with password and writes it to path.
// An existing keystore is never overwritten.
func CreateKeystore(path, mnemonic, password string) error {
	if err := ValidateMnemonic(mnemonic); err != nil {
		return err
	}
	if password == "" {
		return cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{"reason": "password is required"})
	}
	if _, err := os.Stat(path); err == nil {
		return cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{"path": path, "reason": "keystore exists"})
	}

	plain, err := json.Marshal(envelope{
		Version:   keystoreVersion,
		Mnemonic:  NormalizeMnemonic(mnemonic),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	defer ZeroBytes(plain)

	sealed, err := encrypt(plain, password)
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(path, sealed, 0o600)
}

// OpenKeystore decrypts the keystore at path and returns the mnemonic in
// locked memory. The caller must Destroy it.
func OpenKeystore(path, password string) (*SecureBytes, error) {
	// #nosec G304 -- keystore path is from validated config
	sealed, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cwerr.WithDetails(cwerr.ErrNotFound, map[string]string{"keystore": path})
		}
		return nil, err
	}
	plain, err := decrypt(sealed, password)
	if err != nil {
		return nil, cwerr.WithDetails(cwerr.ErrDecryptionFailed, map[string]string{"keystore": path})
	}
	defer ZeroBytes(plain)

	var env envelope
	if err := json.Unmarshal(plain, &env); err != nil || env.Version != keystoreVersion {
		return nil, cwerr.WithDetails(cwerr.ErrDecryptionFailed, map[string]string{
			"keystore": path,
			"reason":   "unknown keystore format",
		})
	}
	sb := NewSecureBytes([]byte(env.Mnemonic))
	env.Mnemonic = ""
	return sb, nil
}

func encrypt(plaintext []byte, password string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return nil, cwerr.Wrap(err, "creating scrypt recipient")
	}
	buf := &bytes.Buffer{}
	w, err := age.Encrypt(buf, recipient)
	if err != nil {
		return nil, cwerr.Wrap(err, "initializing encryption")
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, cwerr.Wrap(err, "writing encrypted data")
	}
	if err := w.Close(); err != nil {
		return nil, cwerr.Wrap(err, "finalizing encryption")
	}
	return buf.Bytes(), nil
}

func decrypt(ciphertext []byte, password string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, err
	}
	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
