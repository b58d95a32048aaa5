package terrain

import (
	"errors"
	"fmt"
	"strings"
)

// Rebuild errors.
var (
	ErrMissingAsset     = errors.New("missing required asset")
	ErrDegenerateConfig = errors.New("degenerate tile configuration")
)

// MissingAssetError reports required inputs that were absent at rebuild time.
type MissingAssetError struct {
	Tile    string
	Missing []string
}

func (e *MissingAssetError) Error() string {
	msg := fmt.Sprintf("%v: %s", ErrMissingAsset, strings.Join(e.Missing, ", "))
	if e.Tile != "" {
		return fmt.Sprintf("tile %q: %s", e.Tile, msg)
	}
	return msg
}

func (e *MissingAssetError) Unwrap() error { return ErrMissingAsset }

// DegenerateConfigError reports a configuration value the builders cannot use.
type DegenerateConfigError struct {
	Field string
	Value any
}

func (e *DegenerateConfigError) Error() string {
	return fmt.Sprintf("%v: %s=%v", ErrDegenerateConfig, e.Field, e.Value)
}

func (e *DegenerateConfigError) Unwrap() error { return ErrDegenerateConfig }
