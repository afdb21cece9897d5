package phosphor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/smazurov/powerled/internal/postcode"
	"github.com/smazurov/powerled/internal/tracker"
)

const (
	propertiesInterface = "org.freedesktop.DBus.Properties"
	propertiesChanged   = propertiesInterface + ".PropertiesChanged"
	propertiesGet       = propertiesInterface + ".Get"

	hostStateProperty = "CurrentHostState"
	rawValueProperty  = "Value"

	hostStatePrefix = "xyz.openbmc_project.State.Host.HostState."
)

// ErrUnknownHostState is returned for CurrentHostState values outside the
// HostState enumeration.
var ErrUnknownHostState = errors.New("unknown host state")

// ParseHostState converts a CurrentHostState value to "powered on".
// Every state other than Off counts as powered on, including enumeration
// values added after this daemon was built.
func ParseHostState(value string) (bool, error) {
	state, ok := strings.CutPrefix(value, hostStatePrefix)
	if !ok || state == "" {
		return false, fmt.Errorf("%w: %q", ErrUnknownHostState, value)
	}
	return state != "Off", nil
}

// decodeEntry converts a (tay) D-Bus struct into a POST code entry.
func decodeEntry(v interface{}) (postcode.Entry, error) {
	fields, ok := v.([]interface{})
	if !ok || len(fields) != 2 {
		return postcode.Entry{}, fmt.Errorf("POST code is %T, want (tay) struct", v)
	}
	primary, ok := fields[0].(uint64)
	if !ok {
		return postcode.Entry{}, fmt.Errorf("primary POST code is %T, want uint64", fields[0])
	}
	secondary, ok := fields[1].([]byte)
	if !ok {
		return postcode.Entry{}, fmt.Errorf("secondary POST code is %T, want []byte", fields[1])
	}
	return postcode.Entry{Primary: primary, Secondary: postcode.Code(secondary)}, nil
}

// changedProperties extracts the changed property map of a PropertiesChanged
// signal body: (s interface, a{sv} changed, as invalidated).
func changedProperties(sig *dbus.Signal) (map[string]dbus.Variant, error) {
	if len(sig.Body) < 2 {
		return nil, fmt.Errorf("PropertiesChanged body has %d fields", len(sig.Body))
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("PropertiesChanged properties are %T", sig.Body[1])
	}
	return changed, nil
}

// decodeSignal turns a signal into a tracker event. It returns nil when the
// signal is unrelated or does not touch a watched property.
func decodeSignal(sig *dbus.Signal, paths Paths) (tracker.Event, error) {
	if sig == nil || sig.Name != propertiesChanged {
		return nil, nil
	}

	switch sig.Path {
	case paths.HostState:
		changed, err := changedProperties(sig)
		if err != nil {
			return nil, err
		}
		v, ok := changed[hostStateProperty]
		if !ok {
			return nil, nil
		}
		value, ok := v.Value().(string)
		if !ok {
			return nil, fmt.Errorf("%s is %T, want string", hostStateProperty, v.Value())
		}
		on, err := ParseHostState(value)
		if err != nil {
			return nil, err
		}
		return tracker.PowerChanged{On: on}, nil

	case paths.RawPostCode:
		changed, err := changedProperties(sig)
		if err != nil {
			return nil, err
		}
		v, ok := changed[rawValueProperty]
		if !ok {
			return nil, nil
		}
		entry, err := decodeEntry(v.Value())
		if err != nil {
			return nil, err
		}
		return tracker.CodesObserved{Codes: []postcode.Entry{entry}}, nil

	default:
		return nil, nil
	}
}
