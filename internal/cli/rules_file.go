package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/goliatone/go-mapping/core"
	"gopkg.in/yaml.v3"
)

// RuleFile is the YAML document accepted by publish and validate.
//
//	entity: product
//	rules:
//	  - direction: to_external
//	    source: name
//	    target: Product_Name
//	    is_required: true
type RuleFile struct {
	Entity core.EntityType    `yaml:"entity"`
	Rules  []core.MappingRule `yaml:"rules"`
}

func LoadRuleFile(path string) (*RuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file %s: %w", path, err)
	}
	return ParseRuleFile(data)
}

func ParseRuleFile(data []byte) (*RuleFile, error) {
	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rule file: %w", err)
	}
	return &file, nil
}

// resolveEntity picks the flag entity over the file entity and rejects a
// conflict between the two.
func (f *RuleFile) resolveEntity(flagEntity string) (core.EntityType, error) {
	fileEntity := strings.TrimSpace(string(f.Entity))
	flagEntity = strings.TrimSpace(flagEntity)
	switch {
	case flagEntity == "" && fileEntity == "":
		return "", fmt.Errorf("entity is required: set it in the rule file or pass --entity")
	case flagEntity != "" && fileEntity != "" && !strings.EqualFold(flagEntity, fileEntity):
		return "", fmt.Errorf("--entity %q conflicts with rule file entity %q", flagEntity, fileEntity)
	case flagEntity != "":
		return core.ParseEntityType(flagEntity)
	default:
		return core.ParseEntityType(fileEntity)
	}
}
