package encryption

import (
	"fmt"

	"github.com/catchingknives/teams-webapp-exporter/internal/config"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration
// type. An empty type disables mirror encryption; callers get (nil, nil).
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (Encryptor, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
