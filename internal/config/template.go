package config

import (
	"fmt"
	"os"
	"strings"
)

// maxTemplateSize bounds how much of a LaTeX template we are willing to
// embed into a prompt.
const maxTemplateSize = 1024 * 1024 // 1MB

// LoadTemplate reads the LaTeX template from the configured path.
// The template must exist and be non-empty; the modify flow aborts
// before any model call when it cannot be loaded.
func (c *Config) LoadTemplate() (string, error) {
	path := c.Template.Path

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("template file not found: %s", path)
		}
		return "", fmt.Errorf("cannot access template file %s: %w", path, err)
	}

	if info.IsDir() {
		return "", fmt.Errorf("template path is a directory: %s", path)
	}

	if info.Size() > maxTemplateSize {
		return "", fmt.Errorf("template file too large: %s (%d bytes, max %d)", path, info.Size(), maxTemplateSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot read template file %s: %w", path, err)
	}

	if strings.TrimSpace(string(content)) == "" {
		return "", fmt.Errorf("template file is empty: %s", path)
	}

	return string(content), nil
}
