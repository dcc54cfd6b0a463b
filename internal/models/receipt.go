package models

import "time"

type ReceiptKind string

const (
	ReceiptComplete      ReceiptKind = "complete"
	ReceiptSignatureLink ReceiptKind = "signature_link"
)

// Receipt records one accepted submission.
type Receipt struct {
	SessionID      string      `json:"session_id"`
	Kind           ReceiptKind `json:"kind"`
	RemoteID       string      `json:"remote_id"`
	Token          string      `json:"token"`
	URL            string      `json:"url,omitempty"`
	Placa          string      `json:"placa"`
	Modelo         string      `json:"modelo"`
	NomeCliente    string      `json:"nome_cliente"`
	NomeConferente string      `json:"nome_conferente"`
	Photos         int         `json:"photos"`
	HasDocument    bool        `json:"has_document"`
	MediaBytes     int64       `json:"media_bytes"`
	SubmittedAt    time.Time   `json:"submitted_at"`
}
