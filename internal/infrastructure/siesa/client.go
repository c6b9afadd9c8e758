package siesa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cipa-correagro/notas-credito/internal/domain"
	"github.com/cipa-correagro/notas-credito/internal/domain/document"
	"github.com/cipa-correagro/notas-credito/pkg/config"
	"github.com/cipa-correagro/notas-credito/pkg/logger"
)

const (
	paramDateLayout = "20060102"
	maxBodyBytes    = 64 << 20
)

// Client consulta documentos en el conector de consultas de SIESA.
// No reintenta: los reintentos son responsabilidad del llamador.
type Client struct {
	baseURL    string
	key        string
	token      string
	companyID  int
	query      string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient construye el cliente. El timeout es obligatorio; un valor no positivo usa 30 s.
func NewClient(cfg config.ERPConfig, log *logger.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		key:        cfg.Key,
		token:      cfg.Token,
		companyID:  cfg.CompanyID,
		query:      cfg.Query,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// envelope respuesta estándar del conector.
type envelope struct {
	Codigo  json.RawMessage `json:"codigo"`
	Mensaje string          `json:"mensaje"`
	Detalle json.RawMessage `json:"detalle"`
}

// Fetch documentos con fecha en [from, to], en el orden de la respuesta.
// Todo fallo envuelve domain.ErrUpstreamUnavailable.
func (c *Client) Fetch(ctx context.Context, from, to time.Time) ([]document.Row, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, upstream("URL del ERP inválida: %w", err)
	}
	q := u.Query()
	q.Set("idCompania", strconv.Itoa(c.companyID))
	q.Set("descripcion", c.query)
	q.Set("parametros", fmt.Sprintf("FECHA_INI=%s|FECHA_FIN=%s", from.Format(paramDateLayout), to.Format(paramDateLayout)))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, upstream("crear HTTP request: %w", err)
	}
	req.Header.Set("Connikey", c.key)
	req.Header.Set("conniToken", c.token)
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, upstream("timeout o cancelación: %w", ctx.Err())
		}
		return nil, upstream("llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, upstream("leer respuesta: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstream("HTTP %d: %s", resp.StatusCode, snippet(body))
	}

	rows, err := decodeRows(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}
	c.log.Info().
		Str("from", from.Format("2006-01-02")).
		Str("to", to.Format("2006-01-02")).
		Int("rows", len(rows)).
		Dur("elapsed", time.Since(started)).
		Msg("documentos recibidos del ERP")
	return rows, nil
}

// decodeRows extrae la lista de documentos: detalle.Table (sin distinguir mayúsculas),
// si no la primera lista dentro de detalle; un cuerpo que ya es lista se usa tal cual.
func decodeRows(body []byte) ([]document.Row, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("respuesta vacía")
	}
	if body[0] == '[' {
		return unmarshalRows(body)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("JSON inválido: %w", err)
	}
	code, err := parseCode(env.Codigo)
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return nil, fmt.Errorf("codigo %d: %s", code, env.Mensaje)
	}

	list, err := findList(env.Detalle)
	if err != nil {
		return nil, err
	}
	return unmarshalRows(list)
}

func parseCode(raw json.RawMessage) (int, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, errors.New("respuesta sin codigo")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("codigo no numérico %q", s)
	}
	return n, nil
}

// findList recorre las claves de detalle en orden de aparición.
func findList(detalle json.RawMessage) (json.RawMessage, error) {
	detalle = bytes.TrimSpace(detalle)
	if len(detalle) == 0 || string(detalle) == "null" {
		return nil, errors.New("respuesta sin detalle")
	}
	if detalle[0] == '[' {
		return detalle, nil
	}

	dec := json.NewDecoder(bytes.NewReader(detalle))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, errors.New("detalle no es un objeto")
	}
	var first json.RawMessage
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("JSON inválido en detalle: %w", err)
		}
		key, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("JSON inválido en detalle: %w", err)
		}
		isList := len(value) > 0 && value[0] == '['
		if isList && strings.EqualFold(key, "Table") {
			return value, nil
		}
		if isList && first == nil {
			first = value
		}
	}
	if first == nil {
		return nil, errors.New("detalle sin lista de documentos")
	}
	return first, nil
}

func unmarshalRows(raw []byte) ([]document.Row, error) {
	var rows []document.Row
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("lista de documentos inválida: %w", err)
	}
	return rows, nil
}

func upstream(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrUpstreamUnavailable}, args...)...)
}

func snippet(b []byte) string {
	const max = 256
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
