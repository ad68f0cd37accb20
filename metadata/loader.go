package metadata

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"schemameta/config"
)

var ErrDDLTooLarge = errors.New("ddl exceeds the configured size limit")

// LoadDDL reads the DDL file named by cfg.DDLPath and applies the size policy.
// The content is otherwise treated as opaque text; an empty file is passed on
// as is.
func LoadDDL(fsys afero.Fs, cfg config.Config, logger *zap.SugaredLogger) (string, error) {
	raw, err := afero.ReadFile(fsys, cfg.DDLPath)
	if err != nil {
		return "", fmt.Errorf("load ddl: %w", err)
	}

	limit := cfg.MaxDDLBytes
	if limit == 0 || len(raw) <= limit {
		return string(raw), nil
	}

	switch cfg.DDLSizePolicy {
	case config.SizePolicyTruncate:
		cut := truncateUTF8(raw, limit)
		logger.Warnw("ddl truncated to size limit",
			"path", cfg.DDLPath, "size", len(raw), "limit", limit, "kept", len(cut))
		return string(cut), nil
	default:
		return "", fmt.Errorf("load ddl %s: %d bytes > %d: %w", cfg.DDLPath, len(raw), limit, ErrDDLTooLarge)
	}
}

// truncateUTF8 cuts b to at most n bytes without splitting a rune.
func truncateUTF8(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	for n > 0 && !utf8.RuneStart(b[n]) {
		n--
	}
	return b[:n]
}
