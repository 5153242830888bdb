package sms

import (
	"fmt"
	"regexp"
	"strings"
)

// ParamSpec describes one parameter of a device setting.
type ParamSpec struct {
	Key         string `json:"key"`
	Description string `json:"description"`
	Pattern     string `json:"pattern"` // Anchored regexp the value must match.
}

// SettingSpec describes one configurable device setting and how to render it
// into an SMS command.
type SettingSpec struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []ParamSpec `json:"params"`
	template    string      // Command template; {password} and {param-key} placeholders.
}

// deviceSettings maps device models onto their supported settings. The
// templates follow each relay's SMS command manual.
var deviceSettings = map[string]map[string]SettingSpec{
	"RTU5025": {
		"open_interval": {
			Name:        "Relay close interval",
			Description: "How long the relay stays closed when a call opens the barrier.",
			Params: []ParamSpec{
				{Key: "seconds", Description: "Interval in seconds, 0-999.", Pattern: `^\d{1,3}$`},
			},
			template: "{password}GOT{seconds}#",
		},
		"access_mode": {
			Name:        "Caller access mode",
			Description: "Whether any caller or only stored numbers can open the barrier.",
			Params: []ParamSpec{
				{Key: "mode", Description: "ALL for any caller, AUTH for stored numbers only.", Pattern: `^(ALL|AUTH)$`},
			},
			template: "{password}A{mode}#",
		},
	},
	"RTU5035": {
		"open_interval": {
			Name:        "Relay close interval",
			Description: "How long the relay stays closed when a call opens the barrier.",
			Params: []ParamSpec{
				{Key: "seconds", Description: "Interval in seconds, 0-999.", Pattern: `^\d{1,3}$`},
			},
			template: "{password}GOT{seconds}#",
		},
		"call_alert": {
			Name:        "Call alert",
			Description: "Whether the device calls back the admin after each open.",
			Params: []ParamSpec{
				{Key: "enabled", Description: "ON or OFF.", Pattern: `^(ON|OFF)$`},
			},
			template: "{password}GON{enabled}#",
		},
	},
}

// SettingsFor returns the settings catalog for a device model. The second
// result reports whether the model is known.
func SettingsFor(deviceModel string) (map[string]SettingSpec, bool) {
	catalog, ok := deviceSettings[deviceModel]
	return catalog, ok
}

// validateCatalog checks the catalog shape so that a malformed server-side
// configuration is surfaced as an internal error rather than a client error.
func validateCatalog(catalog map[string]SettingSpec) error {
	if len(catalog) == 0 {
		return fmt.Errorf("empty settings catalog")
	}
	for key, spec := range catalog {
		if strings.TrimSpace(key) == "" || strings.TrimSpace(spec.Name) == "" {
			return fmt.Errorf("setting %q missing name", key)
		}
		if strings.TrimSpace(spec.template) == "" {
			return fmt.Errorf("setting %q missing template", key)
		}
		for _, param := range spec.Params {
			if strings.TrimSpace(param.Key) == "" {
				return fmt.Errorf("setting %q has a parameter without a key", key)
			}
			if _, err := regexp.Compile(param.Pattern); err != nil {
				return fmt.Errorf("setting %q parameter %q: bad pattern: %w", key, param.Key, err)
			}
		}
	}
	return nil
}

// renderSetting validates params against the spec and renders the command.
func renderSetting(spec SettingSpec, devicePassword string, params map[string]string) (string, error) {
	content := strings.ReplaceAll(spec.template, "{password}", devicePassword)
	for _, param := range spec.Params {
		value, ok := params[param.Key]
		if !ok {
			return "", fmt.Errorf("missing parameter %q", param.Key)
		}
		matched, err := regexp.MatchString(param.Pattern, value)
		if err != nil || !matched {
			return "", fmt.Errorf("invalid value for parameter %q", param.Key)
		}
		content = strings.ReplaceAll(content, "{"+param.Key+"}", value)
	}
	return content, nil
}

// Device phone-list command formats shared by the supported relays: the
// device password followed by an authorized-number slot operation.
func addPhoneCommand(devicePassword, phone string) string {
	return fmt.Sprintf("%sA%s#", devicePassword, digitsOnly(phone))
}

func removePhoneCommand(devicePassword, phone string) string {
	return fmt.Sprintf("%sD%s#", devicePassword, digitsOnly(phone))
}

// balanceCheckCommand is the USSD forward command asking the device to report
// its SIM balance.
const balanceCheckCommand = "*100#"

func digitsOnly(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
