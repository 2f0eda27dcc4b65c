package logformat

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// customFormatsFile is the on-disk shape of an optional log-formats TOML
// file: a list of user-defined signatures layered on top of the built-ins.
type customFormatsFile struct {
	Formats []CustomFormatDef `toml:"formats"`
}

// LoadCustomFormats reads path (a TOML file of the form documented in
// CustomFormatDef) and registers every entry on lib. An empty path is a
// no-op, matching the optional `log-formats-file` config knob.
func LoadCustomFormats(lib *Library, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading log formats file %s: %w", path, err)
	}

	var parsed customFormatsFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parsing log formats file %s: %w", path, err)
	}

	for _, def := range parsed.Formats {
		if err := lib.AddCustomFormat(def); err != nil {
			return fmt.Errorf("compiling custom format %q: %w", def.Name, err)
		}
	}
	return nil
}
