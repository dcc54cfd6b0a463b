package forms

import (
	"reflect"
	"testing"
)

func TestCollect(t *testing.T) {
	fields := Snapshot{
		{Name: "placa", Type: TypeText, Value: "  ABC1D23 "},
		{Name: "modelo", Type: TypeText, Value: "Civic"},
		{Name: "cor", Type: TypeText, Value: "   "},
		{Name: "tipo_veiculo", Type: TypeRadio, Value: "proprio"},
		{Name: "tipo_veiculo", Type: TypeRadio, Value: "terceiro", Checked: true},
		{Name: "nome_terceiro", Type: TypeText, Value: "João"},
		{Name: "extintor", Type: TypeCheckbox, Checked: true},
		{Name: "macaco", Type: TypeCheckbox},
		{Name: "marca_pneu_de", Type: TypeText, Value: "Michelin"},
		{Name: "marca_pneu_traseiro_direito", Type: TypeText, Value: "Pirelli"},
		{Name: "marca_pneu_te", Type: TypeText, Value: ""},
		{Name: "desc_obs_1", Type: TypeTextarea, Value: "  "},
		{Name: "desc_obs_2", Type: TypeTextarea, Value: " amassado "},
		{Name: "foto_frente", Type: TypeFile, Value: "C:\\fakepath\\a.jpg"},
		{Name: "nome_conferente", Type: TypeText, Value: "Maria"},
		{Name: "combustivel", Type: TypeRadio, Value: "flex", Checked: true},
		{ID: "km_rodado", Type: TypeText, Value: "50000"},
		{Type: TypeText, Value: "orphan"},
	}

	c := Collect(fields)

	if c.Vehicle.Placa != "ABC1D23" || c.Vehicle.Modelo != "Civic" || c.Vehicle.KmRodado != "50000" {
		t.Errorf("Unexpected vehicle: %+v", c.Vehicle)
	}
	if c.Vehicle.Cor != "" {
		t.Errorf("Expected blank cor to stay empty, got %q", c.Vehicle.Cor)
	}
	if c.Vehicle.Proprio {
		t.Error("Expected proprio=false for terceiro")
	}
	if c.Vehicle.NomeTerceiro != "João" {
		t.Errorf("Expected nome_terceiro João, got %q", c.Vehicle.NomeTerceiro)
	}

	wantQ := map[string]bool{"extintor": true, "macaco": false}
	if !reflect.DeepEqual(c.Questionnaire, wantQ) {
		t.Errorf("Expected questionnaire %v, got %v", wantQ, c.Questionnaire)
	}

	wantPneus := map[string]string{
		"marca_pneu_dianteiro_esquerdo": "Michelin",
		"marca_pneu_traseiro_direito":   "Pirelli",
	}
	if !reflect.DeepEqual(c.Pneus, wantPneus) {
		t.Errorf("Expected pneus %v, got %v", wantPneus, c.Pneus)
	}

	if v, ok := c.Free["desc_obs_1"]; !ok || v != "" {
		t.Errorf("Expected empty observation to be recorded, got %q (present=%v)", v, ok)
	}
	if c.Free["desc_obs_2"] != "amassado" {
		t.Errorf("Expected trimmed observation, got %q", c.Free["desc_obs_2"])
	}
	if c.Free["combustivel"] != "flex" {
		t.Errorf("Expected free radio value, got %q", c.Free["combustivel"])
	}
	if _, ok := c.Free["foto_frente"]; ok {
		t.Error("Expected file inputs to be ignored")
	}
	if c.NomeConferente != "Maria" {
		t.Errorf("Expected nome_conferente Maria, got %q", c.NomeConferente)
	}
	if c.NomeCliente != "" {
		t.Errorf("Expected empty nome_cliente, got %q", c.NomeCliente)
	}
}

func TestCollectDefaults(t *testing.T) {
	c := Collect(nil)

	if !c.Vehicle.Proprio {
		t.Error("Expected proprio to default to true")
	}
	if c.Questionnaire == nil || c.Pneus == nil || c.Free == nil {
		t.Error("Expected non-nil maps")
	}
}

func TestCollectLastWriteWins(t *testing.T) {
	c := Collect(Snapshot{
		{Name: "modelo", Type: TypeText, Value: "Gol"},
		{Name: "modelo", Type: TypeText, Value: "Uno"},
		{Name: "modelo", Type: TypeText, Value: ""},
	})
	if c.Vehicle.Modelo != "Uno" {
		t.Errorf("Expected Uno, got %q", c.Vehicle.Modelo)
	}
}

func TestCanonicalTireKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"marca_pneu_de", "marca_pneu_dianteiro_esquerdo"},
		{"marca_pneu_dd", "marca_pneu_dianteiro_direito"},
		{"marca_pneu_te", "marca_pneu_traseiro_esquerdo"},
		{"marca_pneu_td", "marca_pneu_traseiro_direito"},
		{"marca_pneu_dianteiro_esquerdo", "marca_pneu_dianteiro_esquerdo"},
		{"marca_pneu_step", "marca_pneu_step"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := CanonicalTireKey(tt.in)
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
			if again := CanonicalTireKey(got); again != got {
				t.Errorf("Expected idempotent mapping, got %s", again)
			}
		})
	}
}

func TestCanonicalizeTiresIsIdempotent(t *testing.T) {
	in := map[string]string{
		"marca_pneu_de":               "Michelin",
		"marca_pneu_traseiro_direito": "Pirelli",
	}
	once := CanonicalizeTires(in)
	twice := CanonicalizeTires(once)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Expected idempotent result, got %v then %v", once, twice)
	}
	if _, ok := once["marca_pneu_de"]; ok {
		t.Error("Expected abbreviated key to be gone")
	}
}

func TestCanonicalizeTiresPrefersCanonicalEntry(t *testing.T) {
	out := CanonicalizeTires(map[string]string{
		"marca_pneu_de":                 "Old",
		"marca_pneu_dianteiro_esquerdo": "New",
	})
	if out["marca_pneu_dianteiro_esquerdo"] != "New" || len(out) != 1 {
		t.Errorf("Expected canonical entry to win, got %v", out)
	}
}
