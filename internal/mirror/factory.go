package mirror

import (
	"context"
	"fmt"

	"github.com/catchingknives/teams-webapp-exporter/internal/config"
)

// NewFromConfig creates a Mirror implementation based on the mirror config type.
// An empty type means mirroring is disabled; callers get (nil, nil).
func NewFromConfig(ctx context.Context, cfg config.MirrorConfig) (Mirror, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "memory":
		return NewMemoryMirror(cfg.Name), nil
	case "s3":
		return NewS3Mirror(ctx, cfg.Name, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	case "filesystem":
		if cfg.FSMirrorRoot == "" {
			return nil, fmt.Errorf("filesystem mirror requires fs_mirror_root to be set")
		}
		return NewFileSystemMirror(cfg.Name, cfg.FSMirrorRoot)
	default:
		return nil, fmt.Errorf("unknown mirror type: %s", cfg.Type)
	}
}
