package detect

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/joseph-ayodele/finextract/internal/common"
)

type candidateFile struct {
	Properties []PropertyCandidate `yaml:"properties"`
}

// LoadCandidates reads a YAML candidate list, either a top-level sequence or
// a mapping with a "properties" key.
func LoadCandidates(path string) ([]PropertyCandidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candidates: %w", err)
	}
	defer f.Close()
	return ParseCandidates(f)
}

func ParseCandidates(r io.Reader) ([]PropertyCandidate, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read candidates: %w", err)
	}

	var list []PropertyCandidate
	if err := yaml.Unmarshal(raw, &list); err != nil {
		var wrapped candidateFile
		if err2 := yaml.Unmarshal(raw, &wrapped); err2 != nil {
			return nil, fmt.Errorf("parse candidates: %w", err)
		}
		list = wrapped.Properties
	}
	if err := ValidateCandidates(list); err != nil {
		return nil, err
	}
	return list, nil
}

// ValidateCandidates requires a code and name on every entry and rejects
// duplicate codes, compared case-insensitively.
func ValidateCandidates(list []PropertyCandidate) error {
	v := common.NewValidator()
	seen := map[string]int{}
	for i, c := range list {
		prefix := fmt.Sprintf("properties[%d]", i)
		v.Field(prefix+".property_code", c.Code, common.Required, common.MaxLength(64))
		v.Field(prefix+".property_name", c.Name, common.Required, common.MaxLength(256))
		key := strings.ToLower(strings.TrimSpace(c.Code))
		if key == "" {
			continue
		}
		if j, dup := seen[key]; dup {
			v.Add(prefix+".property_code", c.Code, fmt.Sprintf("duplicates properties[%d]", j))
			continue
		}
		seen[key] = i
	}
	return v.Error()
}
