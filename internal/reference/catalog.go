package reference

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadEnumCatalog reads every *.yaml / *.yml catalog in dir. A missing dir
// yields an empty catalog.
func LoadEnumCatalog(dir string) (map[string]EnumDirectory, error) {
	result := make(map[string]EnumDirectory)
	files, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		ext := filepath.Ext(file.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, file.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var enumDir EnumDirectory
		if err := yaml.Unmarshal(data, &enumDir); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		// the catalog name falls back to the file name
		enumName := enumDir.Name
		if enumName == "" {
			enumName = strings.TrimSuffix(file.Name(), ext)
		}
		result[enumName] = enumDir
	}
	return result, nil
}
