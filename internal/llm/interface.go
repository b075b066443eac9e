package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Provider is one generative-text backend. Implementations do not retry;
// every failure is reported as a *ProviderError.
type Provider interface {
	Name() string
	Generate(ctx context.Context, messages []Message) (string, error)
	// GenerateStructured returns the backend's answer parsed as a JSON object.
	// The schema is a hint for backends with a native JSON mode.
	GenerateStructured(ctx context.Context, messages []Message, schema *jsonschema.Schema) (map[string]any, error)
}

// ProviderError is a backend, transport or parse failure of one provider call.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func newProviderError(provider string, format string, args ...any) *ProviderError {
	return &ProviderError{Provider: provider, Err: fmt.Errorf(format, args...)}
}

// ConfigurationError reports a missing or unknown provider. At startup it is
// fatal.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "llm configuration: " + e.Msg
}

func IsConfigurationError(err error) bool {
	var cerr *ConfigurationError
	return errors.As(err, &cerr)
}

// asProviderError makes sure a failed call carries the provider error kind.
func asProviderError(provider string, err error) *ProviderError {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr
	}
	return &ProviderError{Provider: provider, Err: err}
}
