package models

import (
	"encoding/json"
	"fmt"
)

// Vehicle is the "veiculo" block of a submission. Every string field is
// always serialized, even when empty.
type Vehicle struct {
	Placa        string `json:"placa"`
	Modelo       string `json:"modelo"`
	Cor          string `json:"cor"`
	Ano          string `json:"ano"`
	KmRodado     string `json:"km_rodado"`
	Proprio      bool   `json:"proprio"`
	NomeTerceiro string `json:"nome_terceiro"`
}

// MediaEntry is one element of the flat "photos" list.
type MediaEntry struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	Type     string `json:"type"`
}

// DocumentEntry mirrors the document media entry in the legacy shape the
// backend still reads.
type DocumentEntry struct {
	File string `json:"file"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

type Metadata struct {
	Timestamp string `json:"timestamp"`
	UserAgent string `json:"userAgent"`
	SessionID string `json:"session_id,omitempty"`
}

// SubmissionPayload is the record sent to the inspection service.
// Fields holds free-form answers (observations and other inputs) that are
// flattened into the top level of the JSON object.
type SubmissionPayload struct {
	Vehicle        Vehicle           `json:"veiculo"`
	Questionnaire  map[string]bool   `json:"questionario"`
	Pneus          map[string]string `json:"pneus"`
	Photos         []MediaEntry      `json:"photos"`
	Documento      *DocumentEntry    `json:"documento"`
	Assinatura     *string           `json:"assinatura"`
	NomeConferente string            `json:"nome_conferente"`
	NomeCliente    string            `json:"nome_cliente"`
	DataVistoria   string            `json:"data_vistoria"`
	Metadata       Metadata          `json:"metadata"`
	Fields         map[string]string `json:"-"`
}

// WithoutSignature returns a shallow copy with the signature cleared.
func (p *SubmissionPayload) WithoutSignature() *SubmissionPayload {
	cp := *p
	cp.Assinatura = nil
	return &cp
}

// MarshalJSON emits the structured blocks and merges Fields at the top
// level. Structured keys win over a free field with the same name.
func (p SubmissionPayload) MarshalJSON() ([]byte, error) {
	type plain SubmissionPayload

	q := plain(p)
	if q.Questionnaire == nil {
		q.Questionnaire = map[string]bool{}
	}
	if q.Pneus == nil {
		q.Pneus = map[string]string{}
	}
	if q.Photos == nil {
		q.Photos = []MediaEntry{}
	}

	base, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	if len(p.Fields) == 0 {
		return base, nil
	}

	merged := make(map[string]json.RawMessage, len(p.Fields)+10)
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, fmt.Errorf("failed to merge payload fields: %w", err)
	}
	for k, v := range p.Fields {
		if _, reserved := merged[k]; reserved {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal field %s: %w", k, err)
		}
		merged[k] = raw
	}
	return json.Marshal(merged)
}
