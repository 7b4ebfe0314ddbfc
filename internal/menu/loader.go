package menu

import (
	"encoding/json"
	"fmt"
	"os"
)

// fileDefinition is the on-disk shape of a menu tree.
type fileDefinition struct {
	Root  string `json:"root"`
	Nodes []Node `json:"nodes"`
}

// LoadFile reads and validates a JSON tree definition.
//
// The file shape mirrors the Node struct:
//
//	{"root": "root", "nodes": [{"key": "root", "kind": "menu", ...}]}
func LoadFile(path string, knownActions []string) (*Tree, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("menu: read %s: %w", path, err)
	}
	var def fileDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("menu: parse %s: %w", path, err)
	}
	return NewTree(def.Root, def.Nodes, knownActions)
}

// Load resolves a tree from the configured source: "builtin" or a
// JSON file path.
func Load(source string, knownActions []string) (*Tree, error) {
	if source == "" || source == "builtin" {
		return Builtin(knownActions)
	}
	return LoadFile(source, knownActions)
}
