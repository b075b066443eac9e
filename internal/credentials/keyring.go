package credentials

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const serviceName = "mm-ai-agent"

type KeyType string

const (
	KeyOpenAI       KeyType = "openai_api_key"
	KeyAnthropic    KeyType = "anthropic_api_key"
	KeyGoogle       KeyType = "google_api_key"
	KeyMagentoToken KeyType = "magento_api_token"
	KeyCDP          KeyType = "cdp_api_key"
)

// AllKeys lists every secret the agent knows how to read from the keychain.
var AllKeys = []KeyType{KeyOpenAI, KeyAnthropic, KeyGoogle, KeyMagentoToken, KeyCDP}

func Set(key KeyType, value string) error {
	return keyring.Set(serviceName, string(key), value)
}

func Get(key KeyType) (string, error) {
	return keyring.Get(serviceName, string(key))
}

func Delete(key KeyType) error {
	err := keyring.Delete(serviceName, string(key))
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// GetOrEnv prefers the environment value and falls back to the keychain.
func GetOrEnv(key KeyType, envValue string) string {
	if envValue != "" {
		return envValue
	}
	val, err := Get(key)
	if err != nil {
		return ""
	}
	return val
}

func ListConfigured() map[KeyType]bool {
	result := make(map[KeyType]bool)
	for _, k := range AllKeys {
		_, err := Get(k)
		result[k] = err == nil
	}
	return result
}

func ClearAll() error {
	var lastErr error
	for _, k := range AllKeys {
		if err := Delete(k); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Setup stores every non-empty value and skips the rest.
func Setup(values map[KeyType]string) error {
	for _, k := range AllKeys {
		v := values[k]
		if v == "" {
			continue
		}
		if err := Set(k, v); err != nil {
			return fmt.Errorf("failed to store %s: %w", k, err)
		}
	}
	return nil
}
