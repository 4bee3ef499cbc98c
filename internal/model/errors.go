package model

import (
	"errors"
	"fmt"
)

// ConfigError reports a problem with the request or the environment that is
// detectable before any generation work starts.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Msg
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

func NewConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

type ProviderErrorKind string

const (
	ProviderAuth      ProviderErrorKind = "auth"
	ProviderRateLimit ProviderErrorKind = "rate_limit"
	ProviderTimeout   ProviderErrorKind = "timeout"
	ProviderMalformed ProviderErrorKind = "malformed"
	// ProviderRejected is a request the provider refuses outright, such as an
	// unknown model or an invalid parameter.
	ProviderRejected ProviderErrorKind = "rejected"
)

// Retryable reports whether the gateway backs off and retries this kind.
func (k ProviderErrorKind) Retryable() bool {
	return k == ProviderRateLimit || k == ProviderTimeout
}

type ProviderError struct {
	Provider string
	Kind     ProviderErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func NewProviderError(provider string, kind ProviderErrorKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

type ResearchError struct {
	Source string
	Err    error
}

func (e *ResearchError) Error() string {
	return fmt.Sprintf("research %s: %v", e.Source, e.Err)
}

func (e *ResearchError) Unwrap() error { return e.Err }

type AssetError struct {
	Query string
	Err   error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset %q: %v", e.Query, e.Err)
}

func (e *AssetError) Unwrap() error { return e.Err }

type RenderError struct {
	Op  string
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Op, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

func IsRenderError(err error) bool {
	var target *RenderError
	return errors.As(err, &target)
}

func ProviderErrorKindOf(err error) (ProviderErrorKind, bool) {
	var target *ProviderError
	if errors.As(err, &target) {
		return target.Kind, true
	}
	return "", false
}
