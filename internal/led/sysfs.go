package led

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs implements Controller using the Linux sysfs LED interface.
// Each group name is the name of an LED under the LED class directory.
type sysfs struct {
	root string
}

// newSysfs creates a sysfs LED controller rooted at root.
func newSysfs(root string) *sysfs {
	if root == "" {
		root = sysfsLEDPath
	}
	return &sysfs{root: root}
}

// Set switches the LED on at its maximum brightness, or off.
func (s *sysfs) Set(group string, asserted bool) error {
	if group == "" || strings.ContainsRune(group, filepath.Separator) {
		return fmt.Errorf("invalid LED name %q", group)
	}

	ledPath := filepath.Join(s.root, group)
	if _, err := os.Stat(ledPath); os.IsNotExist(err) {
		return fmt.Errorf("LED %q not found at %s", group, ledPath)
	}

	// Manual brightness control only works with the trigger disabled.
	triggerPath := filepath.Join(ledPath, "trigger")
	if _, err := os.Stat(triggerPath); err == nil {
		if err := os.WriteFile(triggerPath, []byte("none"), 0o644); err != nil {
			return fmt.Errorf("failed to set LED trigger to none: %w", err)
		}
	}

	brightnessValue := "0"
	if asserted {
		brightnessValue = s.maxBrightness(ledPath)
	}

	brightnessPath := filepath.Join(ledPath, "brightness")
	if err := os.WriteFile(brightnessPath, []byte(brightnessValue), 0o644); err != nil {
		return fmt.Errorf("failed to set LED brightness: %w", err)
	}

	return nil
}

// maxBrightness reads max_brightness, defaulting to 1.
func (s *sysfs) maxBrightness(ledPath string) string {
	data, err := os.ReadFile(filepath.Join(ledPath, "max_brightness"))
	if err != nil {
		return "1"
	}
	value := strings.TrimSpace(string(data))
	if value == "" || value == "0" {
		return "1"
	}
	return value
}

// Available lists the LEDs present under the LED class directory.
func (s *sysfs) Available() []string {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return []string{}
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}
