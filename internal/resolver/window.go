package resolver

import (
	"fmt"
	"strconv"
	"strings"
)

// GlobalName is the object the host window exposes to the web UI.
const GlobalName = "window.__SIDECAR_SHELL__"

// Window evaluates scripts in the host UI context.
type Window interface {
	Eval(script string) error
}

// InitScript is injected before the UI loads.
func InitScript(port int, updaterEnabled bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s ??= {};\n", GlobalName)
	fmt.Fprintf(&b, "%s.updaterEnabled = %t;\n", GlobalName, updaterEnabled)
	fmt.Fprintf(&b, "%s.port = %d;\n", GlobalName, port)
	return b.String()
}

// ReadyScript marks the server as ready.
func ReadyScript() string {
	return GlobalName + ".serverReady = true;"
}

// ServerURLScript hands a remote server URL to the UI.
func ServerURLScript(url string) string {
	return fmt.Sprintf("%s.serverUrl = \"%s\";", GlobalName, escapeJS(url))
}

func escapeJS(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

func unescapeJS(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Assignment is one "<global>.<key> = <value>;" statement.
type Assignment struct {
	Key   string
	Value string
}

// ParseScript extracts the property assignments from a script built by
// InitScript, ReadyScript or ServerURLScript. String values are unquoted
// and unescaped. Other statements are skipped.
func ParseScript(script string) []Assignment {
	var out []Assignment
	prefix := GlobalName + "."
	for _, stmt := range strings.Split(script, "\n") {
		stmt = strings.TrimSpace(stmt)
		if !strings.HasPrefix(stmt, prefix) {
			continue
		}
		stmt = strings.TrimSuffix(strings.TrimPrefix(stmt, prefix), ";")
		key, val, ok := strings.Cut(stmt, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
			val = unescapeJS(val[1 : len(val)-1])
		}
		out = append(out, Assignment{Key: key, Value: val})
	}
	return out
}

// Bool reads a boolean assignment value.
func (a Assignment) Bool() bool {
	b, _ := strconv.ParseBool(a.Value)
	return b
}
