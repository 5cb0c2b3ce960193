package chat

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultMotd is shown when no banner file is configured.
var defaultMotd = []string{
	"welcome to the chat server",
	"commands: /nick <name>, /me <action>, /whisper <name> <text>, /quit",
}

// motdFile is the YAML shape of a banner file.
type motdFile struct {
	Lines []string `yaml:"lines"`
}

// LoadMotd reads the message-of-the-day lines from a YAML file.
//
// Postcondition: Returns the configured lines, the built-in default
// when path is empty, or an error for an unreadable or malformed file.
func LoadMotd(path string) ([]string, error) {
	if path == "" {
		return defaultMotd, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading motd file: %w", err)
	}

	var f motdFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing motd file %s: %w", path, err)
	}
	if len(f.Lines) == 0 {
		return defaultMotd, nil
	}
	return f.Lines, nil
}
