package output

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
)

// Console messages go to stderr.

func Success(format string, a ...interface{}) {
	successColor.Fprintf(color.Error, "✓ "+format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	errorColor.Fprintf(color.Error, "✗ "+format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	infoColor.Fprintf(color.Error, format+"\n", a...)
}

func Warn(format string, a ...interface{}) {
	warnColor.Fprintf(color.Error, "⚠ "+format+"\n", a...)
}

// Formats lists the supported result formats.
var Formats = []string{FormatJSON, FormatYAML, FormatTable}

const (
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatTable = "table"
)

// ValidFormat reports whether name is a supported result format.
func ValidFormat(name string) bool {
	for _, f := range Formats {
		if f == name {
			return true
		}
	}
	return false
}

// ForFormat returns the emitter for a format name. An empty name means JSON.
func ForFormat(name string) (Emitter, error) {
	switch name {
	case "", FormatJSON:
		return JSONEmitter{}, nil
	case FormatYAML:
		return YAMLEmitter{}, nil
	case FormatTable:
		return TableEmitter{}, nil
	}
	return nil, fmt.Errorf("unknown output format %q (want json, yaml or table)", name)
}
