package forms

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/sistema-agil/vistoria/internal/models"
)

// Form is the live, editable set of wizard inputs. It is safe for
// concurrent use; Snapshot hands out copies.
type Form struct {
	mu       sync.RWMutex
	fields   []Field
	defaults []Field
}

// NewForm creates a form whose Reset restores the given fields.
func NewForm(fields ...Field) *Form {
	f := &Form{defaults: append([]Field(nil), fields...)}
	f.fields = append([]Field(nil), fields...)
	return f
}

// NewInspectionForm declares the standard vistoria inputs.
func NewInspectionForm() *Form {
	var fields []Field
	for _, name := range vehicleFields {
		fields = append(fields, Field{Name: name, Type: TypeText})
	}
	fields = append(fields,
		Field{Name: FieldTipoVeiculo, Type: TypeRadio, Value: "proprio"},
		Field{Name: FieldTipoVeiculo, Type: TypeRadio, Value: "terceiro"},
		Field{Name: FieldNomeTerceiro, Type: TypeText},
	)
	for _, q := range Questions {
		fields = append(fields, Field{Name: q.Name, Type: TypeCheckbox})
	}
	for _, short := range []string{"marca_pneu_de", "marca_pneu_dd", "marca_pneu_te", "marca_pneu_td"} {
		fields = append(fields, Field{Name: short, Type: TypeText})
	}
	for i := 1; i <= 4; i++ {
		fields = append(fields, Field{Name: fmt.Sprintf("%s%d", observationPrefix, i), Type: TypeTextarea})
	}
	fields = append(fields,
		Field{Name: FieldNomeConferente, Type: TypeText},
		Field{Name: FieldNomeCliente, Type: TypeText},
	)
	return NewForm(fields...)
}

// Set assigns a value by field name. Checkboxes take a boolean string,
// radios select the option with the matching value. Unknown names are
// appended as text inputs.
func (f *Form) Set(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	found := false
	radio := false
	matched := false
	for i := range f.fields {
		fld := &f.fields[i]
		if fld.Key() != name {
			continue
		}
		found = true
		switch fld.Type {
		case TypeCheckbox:
			checked, err := parseChecked(value)
			if err != nil {
				return models.NewValidationError("set field", name, 0, fmt.Sprintf("valor inválido para %s: %q", name, value))
			}
			fld.Checked = checked
		case TypeRadio:
			radio = true
			fld.Checked = fld.Value == value
			matched = matched || fld.Checked
		case TypeFile:
		default:
			fld.Value = value
		}
	}
	if radio && !matched {
		return models.NewValidationError("set field", name, 0, fmt.Sprintf("opção inválida para %s: %q", name, value))
	}
	if !found {
		f.fields = append(f.fields, Field{Name: name, Type: TypeText, Value: value})
	}
	return nil
}

// Apply copies the values of a snapshot (an answers file or a parsed HTML
// form) into f. Unchecked radios and file inputs are skipped.
func (f *Form) Apply(s Snapshot) error {
	for _, fld := range s {
		name := fld.Key()
		if name == "" {
			continue
		}
		switch fld.Type {
		case TypeCheckbox:
			f.SetChecked(name, fld.Checked)
		case TypeRadio:
			if !fld.Checked {
				continue
			}
			if err := f.Set(name, fld.Value); err != nil {
				return err
			}
		case TypeFile:
		default:
			if err := f.Set(name, fld.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *Form) SetChecked(name string, checked bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.fields {
		if f.fields[i].Key() == name && f.fields[i].Type == TypeCheckbox {
			f.fields[i].Checked = checked
			return
		}
	}
	f.fields = append(f.fields, Field{Name: name, Type: TypeCheckbox, Checked: checked})
}

// Value returns the current value of name: the checked option of a radio
// group, "true"/"false" for a checkbox, or the raw text.
func (f *Form) Value(name string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, fld := range f.fields {
		if fld.Key() != name {
			continue
		}
		switch fld.Type {
		case TypeRadio:
			if fld.Checked {
				return fld.Value
			}
		case TypeCheckbox:
			return strconv.FormatBool(fld.Checked)
		default:
			return fld.Value
		}
	}
	return ""
}

func (f *Form) Has(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, fld := range f.fields {
		if fld.Key() == name {
			return true
		}
	}
	return false
}

func (f *Form) Snapshot() Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append(Snapshot(nil), f.fields...)
}

// Reset restores the fields declared at construction.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields = append([]Field(nil), f.defaults...)
}

func parseChecked(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "sim", "yes":
		return true, nil
	case "", "off", "nao", "não", "no":
		return false, nil
	}
	return strconv.ParseBool(value)
}
