// Package submission talks to the remote inspection service.
package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sistema-agil/vistoria/internal/models"
)

const (
	DefaultTimeout = 30 * time.Second

	// Payloads above this size are logged but still sent.
	DefaultSoftLimit = 50 << 20
)

// Client represents the inspection service API client
type Client struct {
	BaseURL     string
	httpClient  *http.Client
	softLimit   int64
	validatePDF bool
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithSoftLimit(n int64) Option {
	return func(c *Client) { c.softLimit = n }
}

// WithPDFValidation makes FetchGeneratedPDF reject bodies that are not
// well-formed PDF documents.
func WithPDFValidation(enabled bool) Option {
	return func(c *Client) { c.validatePDF = enabled }
}

// NewClient creates a new inspection service client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		softLimit: DefaultSoftLimit,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Link is a remote signing link issued by the service.
type Link struct {
	Token      string      `json:"token"`
	VistoriaID json.Number `json:"vistoria_id,omitempty"`
	ExpiresAt  string      `json:"expires_at,omitempty"`
	URL        string      `json:"url"`
	Message    string      `json:"message,omitempty"`
}

// SaveResult identifies a stored inspection.
type SaveResult struct {
	ID      json.Number `json:"id"`
	Token   string      `json:"token"`
	Message string      `json:"message,omitempty"`
}

type PDFInfo struct {
	Token   string `json:"token"`
	Cliente string `json:"cliente"`
	Placa   string `json:"placa"`
	Modelo  string `json:"modelo"`
	Status  string `json:"status"`
}

type Health struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Database  string `json:"database"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message,omitempty"`
}

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Error      string          `json:"error"`
	Token      string          `json:"token"`
	ID         json.Number     `json:"id"`
	VistoriaID json.Number     `json:"vistoria_id"`
	ExpiresAt  string          `json:"expires_at"`
	Data       json.RawMessage `json:"data"`
}

func (e envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// RequestSignatureLink registers the inspection without a signature and
// returns a link the client can open to sign remotely.
func (c *Client) RequestSignatureLink(ctx context.Context, p *models.SubmissionPayload) (*Link, error) {
	const op = "request signature link"

	env, err := c.postJSON(ctx, op, "/api/gerar_link_assinatura", p.WithoutSignature())
	if err != nil {
		return nil, err
	}
	if !env.Success || env.Token == "" {
		return nil, c.rejected(op, env, "Erro ao gerar link")
	}

	link := &Link{
		Token:      env.Token,
		VistoriaID: env.VistoriaID,
		ExpiresAt:  env.ExpiresAt,
		URL:        c.SigningURL(env.Token),
		Message:    env.Message,
	}
	slog.Info("Signature link created", "token", link.Token, "vistoria_id", link.VistoriaID, "expires_at", link.ExpiresAt)
	return link, nil
}

// SaveCompleteInspection stores a signed inspection.
func (c *Client) SaveCompleteInspection(ctx context.Context, p *models.SubmissionPayload) (*SaveResult, error) {
	const op = "save complete inspection"

	env, err := c.postJSON(ctx, op, "/api/salvar_vistoria_completa", p)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, c.rejected(op, env, "Erro ao salvar vistoria")
	}

	result := &SaveResult{ID: env.ID, Token: env.Token, Message: env.Message}
	slog.Info("Inspection saved", "id", result.ID, "token", result.Token)
	return result, nil
}

// FetchGeneratedPDF downloads the PDF report for token.
func (c *Client) FetchGeneratedPDF(ctx context.Context, token string) ([]byte, error) {
	const op = "fetch generated pdf"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/gerar_pdf/"+url.PathEscape(token), nil)
	if err != nil {
		return nil, networkError(op, 0, "Erro ao gerar PDF. Tente novamente.", fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, networkError(op, 0, "Erro ao gerar PDF. Tente novamente.", fmt.Errorf("failed to fetch pdf: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(op, resp.StatusCode, "Erro ao gerar PDF. Tente novamente.", fmt.Errorf("failed to read pdf: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, networkError(op, resp.StatusCode, fmt.Sprintf("Erro HTTP: %d", resp.StatusCode),
			fmt.Errorf("pdf endpoint returned status %d: %s", resp.StatusCode, truncate(body)))
	}

	if c.validatePDF {
		if err := ValidatePDF(body); err != nil {
			return nil, networkError(op, resp.StatusCode, "PDF recebido está corrompido", err)
		}
	}

	slog.Info("PDF downloaded", "token", token, "size", len(body))
	return body, nil
}

// PDFInfo returns the summary the service keeps for a generated report.
func (c *Client) PDFInfo(ctx context.Context, token string) (*PDFInfo, error) {
	const op = "pdf info"

	env, err := c.getJSON(ctx, op, "/api/pdf_info/"+url.PathEscape(token))
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, c.rejected(op, env, "Vistoria não encontrada")
	}

	var info PDFInfo
	if err := json.Unmarshal(env.Data, &info); err != nil {
		return nil, networkError(op, 0, "Resposta inválida do servidor", fmt.Errorf("failed to decode pdf info: %w", err))
	}
	return &info, nil
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	const op = "health"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/health", nil)
	if err != nil {
		return nil, networkError(op, 0, "Erro de conexão", fmt.Errorf("failed to create request: %w", err))
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, networkError(op, 0, "Erro de conexão", fmt.Errorf("failed to reach service: %w", err))
	}
	defer resp.Body.Close()

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, networkError(op, resp.StatusCode, fmt.Sprintf("Erro HTTP: %d", resp.StatusCode), fmt.Errorf("failed to decode health: %w", err))
	}
	if resp.StatusCode != http.StatusOK || h.Status != "ok" {
		msg := h.Message
		if msg == "" {
			msg = fmt.Sprintf("Erro HTTP: %d", resp.StatusCode)
		}
		return &h, networkError(op, resp.StatusCode, msg, fmt.Errorf("health returned status %d", resp.StatusCode))
	}
	return &h, nil
}

// SigningURL is the page a client opens to sign remotely.
func (c *Client) SigningURL(token string) string {
	return c.BaseURL + "/assinatura_cliente?token=" + url.QueryEscape(token)
}

func (c *Client) postJSON(ctx context.Context, op, path string, p *models.SubmissionPayload) (*envelope, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, &models.Error{Kind: models.KindEncode, Op: op, Message: "Não foi possível preparar os dados", Err: err}
	}
	if n := int64(len(body)); c.softLimit > 0 && n > c.softLimit {
		slog.Warn("Payload exceeds soft size limit", "op", op, "size_mb", n>>20, "limit_mb", c.softLimit>>20)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, networkError(op, 0, "Erro de conexão", fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.do(op, req)
}

func (c *Client) getJSON(ctx context.Context, op, path string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, networkError(op, 0, "Erro de conexão", fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	return c.do(op, req)
}

func (c *Client) do(op string, req *http.Request) (*envelope, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		msg := "Erro de conexão"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "Tempo de conexão esgotado"
		}
		return nil, networkError(op, 0, msg, fmt.Errorf("failed to reach service: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(op, resp.StatusCode, "Erro de conexão", fmt.Errorf("failed to read response: %w", err))
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.message()
		if decodeErr != nil || msg == "" {
			msg = fmt.Sprintf("Erro HTTP: %d", resp.StatusCode)
		}
		return nil, networkError(op, resp.StatusCode, msg,
			fmt.Errorf("service returned status %d: %s", resp.StatusCode, truncate(raw)))
	}
	if decodeErr != nil {
		return nil, networkError(op, resp.StatusCode, "Resposta inválida do servidor", fmt.Errorf("failed to decode response: %w", decodeErr))
	}
	return &env, nil
}

func (c *Client) rejected(op string, env *envelope, fallback string) error {
	msg := env.message()
	if msg == "" {
		msg = fallback
	}
	return networkError(op, http.StatusOK, msg, errors.New("service reported failure"))
}

func networkError(op string, status int, message string, err error) *models.Error {
	slog.Error("Inspection service request failed", "op", op, "status", status, "error", err)
	return &models.Error{
		Kind:    models.KindNetwork,
		Op:      op,
		Status:  status,
		Message: message,
		Err:     err,
	}
}

func truncate(b []byte) string {
	const limit = 512
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
