package common

import "strings"

// GetStringArg returns the trimmed string argument name, or "" when it is
// missing or not a string.
func GetStringArg(args map[string]interface{}, name string) string {
	v, ok := args[name].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// GetBoolArg returns the boolean argument name, or def when it is missing.
// The strings "true" and "false" are accepted as well.
func GetBoolArg(args map[string]interface{}, name string, def bool) bool {
	switch v := args[name].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true
		case "false":
			return false
		}
	}
	return def
}
