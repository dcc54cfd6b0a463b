// Package forms turns the wizard's input fields into the structured blocks
// of a submission.
package forms

import (
	"slices"
	"strings"

	"github.com/sistema-agil/vistoria/internal/models"
)

type FieldType string

const (
	TypeText     FieldType = "text"
	TypeCheckbox FieldType = "checkbox"
	TypeRadio    FieldType = "radio"
	TypeFile     FieldType = "file"
	TypeSelect   FieldType = "select"
	TypeTextarea FieldType = "textarea"
)

// Field is one input as seen at collection time. ID is used when Name is empty.
type Field struct {
	Name    string    `json:"name" yaml:"name"`
	ID      string    `json:"id,omitempty" yaml:"id,omitempty"`
	Type    FieldType `json:"type" yaml:"type"`
	Value   string    `json:"value" yaml:"value"`
	Checked bool      `json:"checked,omitempty" yaml:"checked,omitempty"`
}

func (f Field) Key() string {
	if f.Name != "" {
		return f.Name
	}
	return f.ID
}

// Snapshot is the ordered list of fields of a form.
type Snapshot []Field

// Collected is the normalized view of a form.
type Collected struct {
	Vehicle        models.Vehicle    `json:"veiculo"`
	Questionnaire  map[string]bool   `json:"questionario"`
	Pneus          map[string]string `json:"pneus"`
	NomeConferente string            `json:"nome_conferente"`
	NomeCliente    string            `json:"nome_cliente"`
	DataVistoria   string            `json:"data_vistoria"`
	Free           map[string]string `json:"outros"`
}

const (
	FieldTipoVeiculo    = "tipo_veiculo"
	FieldNomeTerceiro   = "nome_terceiro"
	FieldNomeConferente = "nome_conferente"
	FieldNomeCliente    = "nome_cliente"
	FieldDataVistoria   = "data_vistoria"

	observationPrefix = "desc_obs_"
	tirePrefix        = "marca_pneu_"
)

var vehicleFields = []string{"placa", "modelo", "cor", "ano", "km_rodado"}

var tireKeys = map[string]string{
	"marca_pneu_de": "marca_pneu_dianteiro_esquerdo",
	"marca_pneu_dd": "marca_pneu_dianteiro_direito",
	"marca_pneu_te": "marca_pneu_traseiro_esquerdo",
	"marca_pneu_td": "marca_pneu_traseiro_direito",
}

// CanonicalTireKey maps an abbreviated tire field to its long form. Keys
// that are already canonical, or unknown, come back unchanged.
func CanonicalTireKey(key string) string {
	if full, ok := tireKeys[key]; ok {
		return full
	}
	return key
}

// CanonicalizeTires returns a copy of pneus with canonical keys. When both
// forms of a key are present the canonical entry is kept.
func CanonicalizeTires(pneus map[string]string) map[string]string {
	out := make(map[string]string, len(pneus))
	for k, v := range pneus {
		ck := CanonicalTireKey(k)
		if _, exists := out[ck]; exists && ck != k {
			continue
		}
		out[ck] = v
	}
	return out
}

func IsVehicleField(name string) bool {
	return slices.Contains(vehicleFields, name)
}

// Collect walks fields in order, last write wins. It reads nothing but its
// argument.
func Collect(fields Snapshot) Collected {
	c := Collected{
		Questionnaire: make(map[string]bool),
		Pneus:         make(map[string]string),
		Free:          make(map[string]string),
	}
	proprioSet := false

	for _, f := range fields {
		name := f.Key()
		if name == "" {
			continue
		}

		switch f.Type {
		case TypeCheckbox:
			c.Questionnaire[name] = f.Checked
		case TypeRadio:
			if !f.Checked {
				continue
			}
			switch {
			case IsVehicleField(name):
				setVehicleField(&c.Vehicle, name, f.Value)
			case name == FieldTipoVeiculo:
				c.Vehicle.Proprio = f.Value == "proprio"
				proprioSet = true
			default:
				c.setTopLevel(name, f.Value)
			}
		case TypeFile:
			continue
		default:
			value := strings.TrimSpace(f.Value)
			switch {
			case strings.HasPrefix(name, observationPrefix):
				c.Free[name] = value
			case value == "":
				continue
			case IsVehicleField(name):
				setVehicleField(&c.Vehicle, name, value)
			case name == FieldNomeTerceiro:
				c.Vehicle.NomeTerceiro = value
			case strings.HasPrefix(name, tirePrefix):
				c.Pneus[CanonicalTireKey(name)] = value
			default:
				c.setTopLevel(name, value)
			}
		}
	}

	if !proprioSet {
		c.Vehicle.Proprio = true
	}
	return c
}

func (c *Collected) setTopLevel(name, value string) {
	switch name {
	case FieldNomeConferente:
		c.NomeConferente = value
	case FieldNomeCliente:
		c.NomeCliente = value
	case FieldDataVistoria:
		c.DataVistoria = value
	default:
		c.Free[name] = value
	}
}

func setVehicleField(v *models.Vehicle, name, value string) {
	switch name {
	case "placa":
		v.Placa = value
	case "modelo":
		v.Modelo = value
	case "cor":
		v.Cor = value
	case "ano":
		v.Ano = value
	case "km_rodado":
		v.KmRodado = value
	}
}
