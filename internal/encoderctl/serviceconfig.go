package encoderctl

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"proxyoda/internal/fileutil"
	"proxyoda/internal/services"
)

// ServiceConfigFile is the web service settings file next to the console binary.
const ServiceConfigFile = "ame_webservice_config.ini"

var portLine = regexp.MustCompile(`(?im)^port\s*=\s*\d+`)

// ServiceConfigPath returns the settings file for a console executable.
func ServiceConfigPath(consolePath string) string {
	return filepath.Join(filepath.Dir(consolePath), ServiceConfigFile)
}

// SetServicePort rewrites the port setting in ame_webservice_config.ini,
// appending one when absent. The console must be restarted to pick it up.
func SetServicePort(path string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return services.Wrap(services.ErrFilesystem, "encoderctl", "read service config", path, err)
	}
	content := string(data)
	line := "port=" + strconv.Itoa(port)
	if portLine.MatchString(content) {
		replaced := false
		content = portLine.ReplaceAllStringFunc(content, func(match string) string {
			if replaced {
				return match
			}
			replaced = true
			return line
		})
	} else {
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		content += line + "\n"
	}
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrFilesystem, "encoderctl", "stat service config", path, err)
	}
	if err := fileutil.WriteAtomic(path, []byte(content), info.Mode().Perm()); err != nil {
		return services.Wrap(services.ErrFilesystem, "encoderctl", "write service config", path, err)
	}
	return nil
}
