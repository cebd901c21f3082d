package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bnema/stars-relay/internal/domain"
)

// LoadCookies reads a JSON cookie export (an array of {name, value, domain,
// path} objects).
func LoadCookies(path string) ([]domain.Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}

	var cookies []domain.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("decode cookies %s: %w", path, err)
	}

	return cookies, nil
}
