package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestSubmissionPayloadMarshalJSON(t *testing.T) {
	p := SubmissionPayload{
		Vehicle:        Vehicle{Placa: "ABC1D23", Proprio: true},
		NomeConferente: "Maria",
		DataVistoria:   "2026-01-02T03:04:05Z",
		Fields: map[string]string{
			"desc_obs_lataria": "risco na porta",
			"nome_conferente":  "should not win",
		},
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if out["desc_obs_lataria"] != "risco na porta" {
		t.Errorf("Expected free field at top level, got %v", out["desc_obs_lataria"])
	}
	if out["nome_conferente"] != "Maria" {
		t.Errorf("Expected structured key to win, got %v", out["nome_conferente"])
	}
	if v, ok := out["assinatura"]; !ok || v != nil {
		t.Errorf("Expected explicit null assinatura, got %v (present=%v)", v, ok)
	}
	if v, ok := out["documento"]; !ok || v != nil {
		t.Errorf("Expected explicit null documento, got %v (present=%v)", v, ok)
	}
	if photos, ok := out["photos"].([]any); !ok || len(photos) != 0 {
		t.Errorf("Expected empty photos list, got %v", out["photos"])
	}

	veiculo := out["veiculo"].(map[string]any)
	for _, key := range []string{"placa", "modelo", "cor", "ano", "km_rodado", "nome_terceiro"} {
		if _, ok := veiculo[key]; !ok {
			t.Errorf("Expected veiculo.%s to be present", key)
		}
	}
}

func TestWithoutSignature(t *testing.T) {
	sig := "data:image/png;base64,AAAA"
	p := &SubmissionPayload{Assinatura: &sig}

	cp := p.WithoutSignature()
	if cp.Assinatura != nil {
		t.Error("Expected copy to have no signature")
	}
	if p.Assinatura == nil {
		t.Error("Expected original to keep its signature")
	}
}

func TestKindOf(t *testing.T) {
	base := &Error{Kind: KindNetwork, Op: "save", Status: 500, Message: "Erro HTTP: 500"}
	wrapped := fmt.Errorf("failed to finalize: %w", base)

	if KindOf(wrapped) != KindNetwork {
		t.Errorf("Expected %s, got %s", KindNetwork, KindOf(wrapped))
	}
	if !IsKind(wrapped, KindNetwork) {
		t.Error("Expected IsKind to match")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("Expected empty kind for plain error")
	}
}
