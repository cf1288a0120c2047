package metadata

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// LoadDir reads every *.json entity definition in dir. Files that fail to
// decode are skipped with a warning rather than taking the process down,
// matching how partially-broken metadata is treated elsewhere.
func LoadDir(dir string) ([]*Entity, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read metadata dir: %w", err)
	}

	var entities []*Entity
	for _, item := range items {
		if item.IsDir() || !strings.HasSuffix(item.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, item.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var entity Entity
		if err := json.Unmarshal(raw, &entity); err != nil {
			log.Printf("WARN: skipping entity file %s (invalid JSON): %v", item.Name(), err)
			continue
		}
		if err := checkEntity(&entity); err != nil {
			log.Printf("WARN: skipping entity file %s: %v", item.Name(), err)
			continue
		}
		entities = append(entities, &entity)
	}

	log.Printf("Loaded %d entities from %s", len(entities), dir)
	return entities, nil
}

// DirLoader returns a loader closure over a metadata directory, suitable for
// Registry.SetLoader.
func DirLoader(dir string) func() ([]*Entity, error) {
	return func() ([]*Entity, error) {
		return LoadDir(dir)
	}
}

func checkEntity(e *Entity) error {
	if e.Name == "" {
		return fmt.Errorf("entity missing name")
	}
	if e.Table == "" {
		return fmt.Errorf("entity %s missing table", e.Name)
	}
	seen := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		if f.Field == "" {
			return fmt.Errorf("entity %s has a field without a storage key", e.Name)
		}
		if seen[f.Field] {
			return fmt.Errorf("entity %s declares field %s twice", e.Name, f.Field)
		}
		seen[f.Field] = true
	}
	for _, x := range e.ExternalRelations {
		if x.PivotTable == "" || x.ForeignKey == "" || x.RelatedKey == "" {
			return fmt.Errorf("entity %s external relation %s is missing pivot keys", e.Name, x.Name)
		}
	}
	return nil
}
