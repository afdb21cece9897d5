package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smazurov/powerled/internal/config"
)

func runValidate(t *testing.T, content string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "power-led.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write document: %v", err)
	}

	cmd := CreateValidateConfigCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{path})
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateConfigCmd(t *testing.T) {
	out, err := runValidate(t, `{
		"POST_start": ["0x01", "0x10", "0x00"],
		"POST_end": ["01", "20", "00"],
		"BMC_booted_group": "bmc_booted",
		"POST_active_group": "post_active",
		"fully_powered_on_group": "power_on"
	}`)
	if err != nil {
		t.Fatalf("validate-config failed: %v", err)
	}
	for _, want := range []string{"bmc_booted", "post_active", "power_on"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestValidateConfigCmd_MissingGroup(t *testing.T) {
	_, err := runValidate(t, `{
		"POST_start": ["01", "10", "00"],
		"POST_end": ["01", "20", "00"],
		"BMC_booted_group": "bmc_booted",
		"POST_active_group": "post_active"
	}`)
	if !errors.Is(err, config.ErrMissingField) {
		t.Fatalf("error = %v, want ErrMissingField", err)
	}
}

func TestValidateConfigCmd_RequiresPath(t *testing.T) {
	cmd := CreateValidateConfigCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err == nil {
		t.Error("expected an error without a path argument")
	}
}
