package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/powerled/internal/postcode"
)

var (
	// ErrNoDocument is returned when no power LED document path is given.
	ErrNoDocument = errors.New("no power LED document given")
	// ErrMissingField is returned when a required key is absent or empty.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidByte is returned when a reference code holds a malformed hex byte.
	ErrInvalidByte = errors.New("invalid reference code byte")
)

// PowerLED is the validated power LED document. It is loaded once and
// passed by value.
type PowerLED struct {
	PostStart       postcode.Code
	PostEnd         postcode.Code
	BootedGroup     string
	PostActiveGroup string
	PoweredOnGroup  string
}

// powerLEDDocument is the on-disk shape of the document.
type powerLEDDocument struct {
	PostStart       []string `json:"POST_start" toml:"POST_start"`
	PostEnd         []string `json:"POST_end" toml:"POST_end"`
	BootedGroup     string   `json:"BMC_booted_group" toml:"BMC_booted_group"`
	PostActiveGroup string   `json:"POST_active_group" toml:"POST_active_group"`
	PoweredOnGroup  string   `json:"fully_powered_on_group" toml:"fully_powered_on_group"`
}

// LoadPowerLED reads and validates the power LED document at path.
// Files ending in .toml are parsed as TOML, everything else as JSON.
func LoadPowerLED(path string) (PowerLED, error) {
	if path == "" {
		return PowerLED{}, ErrNoDocument
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return PowerLED{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var doc powerLEDDocument
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return PowerLED{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return doc.resolve()
}

func (d powerLEDDocument) resolve() (PowerLED, error) {
	start, err := parseReference("POST_start", d.PostStart)
	if err != nil {
		return PowerLED{}, err
	}
	end, err := parseReference("POST_end", d.PostEnd)
	if err != nil {
		return PowerLED{}, err
	}

	cfg := PowerLED{
		PostStart:       start,
		PostEnd:         end,
		BootedGroup:     strings.TrimSpace(d.BootedGroup),
		PostActiveGroup: strings.TrimSpace(d.PostActiveGroup),
		PoweredOnGroup:  strings.TrimSpace(d.PoweredOnGroup),
	}
	if err := ValidatePowerLED(cfg); err != nil {
		return PowerLED{}, err
	}
	return cfg, nil
}

func parseReference(key string, values []string) (postcode.Code, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	code, err := postcode.ParseHex(values)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidByte, key, err)
	}
	return code, nil
}

// ValidatePowerLED checks that both reference codes are usable for
// comparison and that every LED group is named.
func ValidatePowerLED(cfg PowerLED) error {
	if err := cfg.PostStart.Validate(); err != nil {
		return fmt.Errorf("POST_start: %w", err)
	}
	if err := cfg.PostEnd.Validate(); err != nil {
		return fmt.Errorf("POST_end: %w", err)
	}

	groups := []struct {
		key   string
		value string
	}{
		{"BMC_booted_group", cfg.BootedGroup},
		{"POST_active_group", cfg.PostActiveGroup},
		{"fully_powered_on_group", cfg.PoweredOnGroup},
	}
	for _, g := range groups {
		if g.value == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, g.key)
		}
	}
	return nil
}
