package forms

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Answers is the on-disk format for headless runs:
//
//	fields:
//	  placa: ABC1D23
//	  tipo_veiculo: proprio
//	questionario:
//	  extintor: true
type Answers struct {
	Fields        map[string]string `yaml:"fields"`
	Questionnaire map[string]bool   `yaml:"questionario"`
}

// LoadAnswers reads a YAML answers file, or an HTML form snapshot when the
// file ends in .html or .htm.
func LoadAnswers(path string) (Snapshot, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open form snapshot: %w", err)
		}
		defer file.Close()
		return ParseHTML(file)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read answers file: %w", err)
	}

	var answers Answers
	if err := yaml.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("failed to parse answers file: %w", err)
	}
	return answers.Snapshot(), nil
}

// Snapshot renders the answers as a flat field list, checkboxes after text.
func (a Answers) Snapshot() Snapshot {
	var fields Snapshot
	for _, name := range sortedKeys(a.Fields) {
		value := a.Fields[name]
		if name == FieldTipoVeiculo {
			fields = append(fields, Field{Name: name, Type: TypeRadio, Value: value, Checked: true})
			continue
		}
		fields = append(fields, Field{Name: name, Type: TypeText, Value: value})
	}
	for _, name := range sortedKeys(a.Questionnaire) {
		fields = append(fields, Field{Name: name, Type: TypeCheckbox, Checked: a.Questionnaire[name]})
	}
	return fields
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
