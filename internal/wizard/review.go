package wizard

import (
	"sort"
	"strings"

	"github.com/sistema-agil/vistoria/internal/forms"
	"github.com/sistema-agil/vistoria/internal/models"
)

type ReviewItem struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Answer bool   `json:"answer"`
}

// Review is the read-only summary shown before signing.
type Review struct {
	Vehicle        models.Vehicle    `json:"veiculo"`
	Ownership      string            `json:"ownership"`
	Questions      []ReviewItem      `json:"questions"`
	Pneus          map[string]string `json:"pneus"`
	Photos         []string          `json:"photos"`
	Document       string            `json:"document,omitempty"`
	Observations   map[string]string `json:"observations"`
	NomeConferente string            `json:"nome_conferente"`
	NomeCliente    string            `json:"nome_cliente"`
	DataVistoria   string            `json:"data_vistoria"`
	HasSignature   bool              `json:"has_signature"`
}

// BuildReview reads fields and snap without modifying either.
func BuildReview(fields forms.Collected, snap models.CaptureSnapshot) Review {
	r := Review{
		Vehicle:        fields.Vehicle,
		Ownership:      "Próprio",
		Pneus:          forms.CanonicalizeTires(fields.Pneus),
		Photos:         make([]string, 0, len(snap.Photos)),
		Observations:   make(map[string]string),
		NomeConferente: fields.NomeConferente,
		NomeCliente:    fields.NomeCliente,
		DataVistoria:   fields.DataVistoria,
		HasSignature:   snap.Signature != nil,
	}
	if !fields.Vehicle.Proprio {
		r.Ownership = "Terceiro"
	}

	for _, q := range forms.Questions {
		r.Questions = append(r.Questions, ReviewItem{
			Name:   q.Name,
			Label:  q.Label,
			Answer: fields.Questionnaire[q.Name],
		})
	}

	// checklist items outside the standard list, in name order
	var extra []string
	for name := range fields.Questionnaire {
		if !isStandardQuestion(name) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		r.Questions = append(r.Questions, ReviewItem{Name: name, Label: name, Answer: fields.Questionnaire[name]})
	}

	for _, p := range snap.Photos {
		r.Photos = append(r.Photos, p.SlotName)
	}
	if snap.Document != nil {
		r.Document = snap.Document.FileName
	}
	for k, v := range fields.Free {
		if strings.HasPrefix(k, "desc_obs_") && v != "" {
			r.Observations[k] = v
		}
	}
	return r
}

func isStandardQuestion(name string) bool {
	for _, q := range forms.Questions {
		if q.Name == name {
			return true
		}
	}
	return false
}
