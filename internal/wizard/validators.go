package wizard

import (
	"strings"

	"github.com/sistema-agil/vistoria/internal/forms"
	"github.com/sistema-agil/vistoria/internal/models"
)

var requiredVehicleFields = []string{"placa", "modelo", "cor", "ano", "km_rodado"}

// DefaultValidators gates step 1 on plate format (only when a plate was
// typed) and step 4 on the inspector's name. Other steps always pass.
func DefaultValidators() map[Step]Validator {
	return map[Step]Validator{
		StepVehicleInfo: validatePlaca,
		StepConferente:  validateConferente,
	}
}

func validatePlaca(v View) error {
	placa := v.Fields.Vehicle.Placa
	if placa != "" && !IsValidPlaca(placa) {
		return models.NewValidationError("advance", "placa", int(StepVehicleInfo), "Formato de placa inválido")
	}
	return nil
}

func validateConferente(v View) error {
	if strings.TrimSpace(v.Fields.NomeConferente) == "" {
		return models.NewValidationError("advance", forms.FieldNomeConferente, int(StepConferente), "Nome do conferente é obrigatório")
	}
	return nil
}

// FinalViolations checks everything required to finalize, ordered by the
// step that owns each problem.
func FinalViolations(v View) Violations {
	var out Violations

	declared := make(map[string]bool, len(v.Raw))
	for _, f := range v.Raw {
		declared[f.Key()] = true
	}
	for _, name := range requiredVehicleFields {
		if !declared[name] {
			out = append(out, &models.Error{
				Kind:    models.KindState,
				Op:      "finalize",
				Field:   name,
				Step:    int(StepVehicleInfo),
				Message: "Campo obrigatório ausente: " + name,
			})
		}
	}
	if err := validatePlaca(v); err != nil {
		out = append(out, err.(*models.Error))
	}
	if len(v.Captures.Photos) == 0 {
		out = append(out, models.NewValidationError("finalize", "photos", int(StepPhotos), "Adicione pelo menos uma foto"))
	}
	if err := validateConferente(v); err != nil {
		out = append(out, err.(*models.Error))
	}
	if v.Captures.Signature == nil {
		out = append(out, models.NewValidationError("finalize", "assinatura", int(StepSignature), "Assinatura é obrigatória para finalizar a vistoria"))
	}
	return out.sort()
}

// LinkViolations checks the fields needed before a remote signing link can
// be issued. No signature is required.
func LinkViolations(v View) Violations {
	var out Violations
	required := []struct {
		field string
		value string
		step  Step
		label string
	}{
		{"modelo", v.Fields.Vehicle.Modelo, StepVehicleInfo, "Modelo"},
		{"cor", v.Fields.Vehicle.Cor, StepVehicleInfo, "Cor"},
		{forms.FieldNomeCliente, v.Fields.NomeCliente, StepConferente, "Nome do Cliente"},
		{forms.FieldNomeConferente, v.Fields.NomeConferente, StepConferente, "Nome do Conferente"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			out = append(out, models.NewValidationError("signature link", r.field, int(r.step), r.label+" é obrigatório"))
		}
	}
	if err := validatePlaca(v); err != nil {
		out = append(out, err.(*models.Error))
	}
	return out.sort()
}
