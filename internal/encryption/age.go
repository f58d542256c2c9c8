// Package encryption encrypts archives before they are pushed to a
// mirror. Mirrors are write-only from this tool's point of view, so
// there is no decrypt path here: the user decrypts mirrored archives
// with the age CLI and the identity file from `keygen`.
package encryption

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"github.com/catchingknives/teams-webapp-exporter/internal/config"
)

// Encryptor encrypts plaintext for storage on a mirror.
type Encryptor interface {
	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// IsConfigured reports whether the encryptor has the key material
	// it needs to encrypt.
	IsConfigured() bool
}

// AgeEncryptor implements Encryptor using filippo.io/age with X25519
// keys. Only the recipient (public) key is needed to encrypt; the
// identity file exists so the user can decrypt mirrored archives
// elsewhere.
type AgeEncryptor struct {
	recipientsPath string
	identityPath   string
}

var _ Encryptor = (*AgeEncryptor)(nil)

// NewAgeEncryptor creates a new AgeEncryptor from configuration.
func NewAgeEncryptor(cfg config.EncryptionConfig) *AgeEncryptor {
	return &AgeEncryptor{
		recipientsPath: cfg.RecipientsPath,
		identityPath:   cfg.IdentityPath,
	}
}

// GenerateKey creates a new X25519 key pair, writing the recipient to
// the recipients path and the identity to the identity path. It
// refuses to overwrite an existing identity.
func (e *AgeEncryptor) GenerateKey() error {
	if _, err := os.Stat(e.identityPath); err == nil {
		return fmt.Errorf("identity file already exists at %s", e.identityPath)
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating key pair: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(e.recipientsPath), 0700); err != nil {
		return fmt.Errorf("creating recipients directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(e.identityPath), 0700); err != nil {
		return fmt.Errorf("creating identity directory: %w", err)
	}

	if err := os.WriteFile(e.recipientsPath, []byte(identity.Recipient().String()+"\n"), 0644); err != nil {
		return fmt.Errorf("writing recipients file: %w", err)
	}
	if err := os.WriteFile(e.identityPath, []byte(identity.String()+"\n"), 0600); err != nil {
		return fmt.Errorf("writing identity file: %w", err)
	}

	return nil
}

// Encrypt reads plaintext from r and writes age-encrypted ciphertext
// to w using the configured recipients.
func (e *AgeEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	recipients, err := e.loadRecipients()
	if err != nil {
		return fmt.Errorf("loading recipients: %w", err)
	}

	encWriter, err := age.Encrypt(w, recipients...)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}

	if _, err := io.Copy(encWriter, r); err != nil {
		return fmt.Errorf("encrypting data: %w", err)
	}

	if err := encWriter.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}

	return nil
}

// IsConfigured returns true if the recipients file exists.
func (e *AgeEncryptor) IsConfigured() bool {
	_, err := os.Stat(e.recipientsPath)
	return err == nil
}

// loadRecipients reads and parses the recipients file.
func (e *AgeEncryptor) loadRecipients() ([]age.Recipient, error) {
	data, err := os.ReadFile(e.recipientsPath)
	if err != nil {
		return nil, fmt.Errorf("reading recipients file: %w", err)
	}

	recipients, err := age.ParseRecipients(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing recipients file: %w", err)
	}

	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients found in %s", e.recipientsPath)
	}

	return recipients, nil
}
