package forms

type Question struct {
	Name  string
	Label string
}

// Questions is the checklist shown on the questionnaire and review steps.
var Questions = []Question{
	{"ar_condicionado", "Tem ar condicionado?"},
	{"antenas", "Antenas?"},
	{"tapetes", "Tapetes?"},
	{"tapete_porta_malas", "Tapete porta malas?"},
	{"bateria", "Bateria?"},
	{"retrovisor_direito", "Retrovisor direito?"},
	{"retrovisor_esquerdo", "Retrovisor esquerdo?"},
	{"extintor", "Extintor?"},
	{"roda_comum", "Roda comum?"},
	{"roda_especial", "Roda especial?"},
	{"chave_principal", "Chave principal?"},
	{"chave_reserva", "Chave reserva?"},
	{"manual", "Manual?"},
	{"documento", "Documento?"},
	{"nota_fiscal", "Nota fiscal?"},
	{"limpador_dianteiro", "Limpador pára-brisa dianteiro?"},
	{"limpador_traseiro", "Limpador pára-brisa traseiro?"},
	{"triangulo", "Triângulo?"},
	{"macaco", "Macaco?"},
	{"chave_roda", "Chave de roda?"},
	{"pneu_step", "Pneu step?"},
}
