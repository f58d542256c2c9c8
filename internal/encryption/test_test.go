package encryption

import (
	"bytes"
	"strings"
	"testing"

	"github.com/catchingknives/teams-webapp-exporter/internal/config"
)

func TestTestEncryptor(t *testing.T) {
	e := NewTestEncryptor()

	if !e.IsConfigured() {
		t.Error("IsConfigured() = false, want true")
	}

	var buf bytes.Buffer
	if err := e.Encrypt(strings.NewReader("payload"), &buf); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	got := buf.Bytes()
	if !bytes.HasPrefix(got, testHeader) {
		t.Errorf("output missing test header: %q", got)
	}
	if string(got[len(testHeader):]) != "payload" {
		t.Errorf("output body = %q, want %q", got[len(testHeader):], "payload")
	}
}

func TestNewEncryptorFromConfig(t *testing.T) {
	t.Run("empty type disables encryption", func(t *testing.T) {
		e, err := NewEncryptorFromConfig(config.EncryptionConfig{})
		if err != nil {
			t.Fatalf("NewEncryptorFromConfig() error = %v", err)
		}
		if e != nil {
			t.Errorf("NewEncryptorFromConfig() = %T, want nil", e)
		}
	})

	t.Run("age", func(t *testing.T) {
		e, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: "age"})
		if err != nil {
			t.Fatalf("NewEncryptorFromConfig() error = %v", err)
		}
		if _, ok := e.(*AgeEncryptor); !ok {
			t.Errorf("NewEncryptorFromConfig() = %T, want *AgeEncryptor", e)
		}
	})

	t.Run("test", func(t *testing.T) {
		e, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: "test"})
		if err != nil {
			t.Fatalf("NewEncryptorFromConfig() error = %v", err)
		}
		if _, ok := e.(*TestEncryptor); !ok {
			t.Errorf("NewEncryptorFromConfig() = %T, want *TestEncryptor", e)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: "rot13"})
		if err == nil {
			t.Error("NewEncryptorFromConfig() expected error for unknown type")
		}
	})
}
