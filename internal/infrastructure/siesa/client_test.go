package siesa_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipa-correagro/notas-credito/internal/domain"
	"github.com/cipa-correagro/notas-credito/internal/infrastructure/siesa"
	"github.com/cipa-correagro/notas-credito/pkg/config"
)

var day = time.Date(2025, 11, 18, 0, 0, 0, 0, time.UTC)

func newClient(t *testing.T, handler http.HandlerFunc) *siesa.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return siesa.NewClient(config.ERPConfig{
		BaseURL:        srv.URL + "/v3/ejecutarconsulta",
		Key:            "k",
		Token:          "t",
		CompanyID:      37,
		Query:          "Api_Consulta_Fac_Correagro",
		TimeoutSeconds: 5,
	}, nil)
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Protocolo
// ──────────────────────────────────────────────────────────────────────────────

func TestFetch_HeadersYParametros(t *testing.T) {
	var got *http.Request
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{"codigo":0,"mensaje":"ok","detalle":{"Table":[]}}`))
	})

	rows, err := c.Fetch(context.Background(), day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NotNil(t, got)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "k", got.Header.Get("Connikey"))
	assert.Equal(t, "t", got.Header.Get("conniToken"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, "37", got.URL.Query().Get("idCompania"))
	assert.Equal(t, "Api_Consulta_Fac_Correagro", got.URL.Query().Get("descripcion"))
	assert.Equal(t, "FECHA_INI=20251118|FECHA_FIN=20251119", got.URL.Query().Get("parametros"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Variantes del sobre
// ──────────────────────────────────────────────────────────────────────────────

func TestFetch_DetalleTable(t *testing.T) {
	c := newClient(t, respond(`{"codigo":0,"mensaje":"","detalle":{"Table":[
		{"f_prefijo":"FME","f_nrodocto":123,"f_cod_item":"A1","f_cant_base":"2","f_valor_subtotal_local":600000},
		{"f_prefijo":"NCE","f_nrodocto":"9","f_cod_item":"A1","f_cant_base":-1,"f_valor_subtotal_local":-300}
	]}}`))

	rows, err := c.Fetch(context.Background(), day, day)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "FME", rows[0].Prefix.Trim())
	assert.Equal(t, "123", rows[0].Number.Trim())
	assert.Equal(t, "-300", rows[1].Subtotal.Raw)
}

func TestFetch_TableSinDistinguirMayusculas(t *testing.T) {
	c := newClient(t, respond(`{"codigo":0,"detalle":{"otros":[{"f_prefijo":"X"}],"table":[{"f_prefijo":"FME"}]}}`))

	rows, err := c.Fetch(context.Background(), day, day)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "FME", rows[0].Prefix.Trim())
}

func TestFetch_PrimeraListaDeDetalle(t *testing.T) {
	// Sin "Table": se usa la primera entrada que sea lista
	c := newClient(t, respond(`{"codigo":"0","detalle":{"total":2,"filas":[{"f_prefijo":"A"},{"f_prefijo":"B"}],"mas":[{}]}}`))

	rows, err := c.Fetch(context.Background(), day, day)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Prefix.Trim())
}

func TestFetch_CuerpoEsLista(t *testing.T) {
	c := newClient(t, respond(` [{"f_prefijo":"FME","f_nrodocto":"1"}]`))

	rows, err := c.Fetch(context.Background(), day, day)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

// ──────────────────────────────────────────────────────────────────────────────
// Fallos -> ErrUpstreamUnavailable
// ──────────────────────────────────────────────────────────────────────────────

func TestFetch_Fallos(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http 500", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
		}},
		{"http 401", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusUnauthorized) }},
		{"codigo distinto de cero", respond(`{"codigo":1,"mensaje":"token inválido","detalle":{"Table":[]}}`)},
		{"sin codigo", respond(`{"detalle":{"Table":[]}}`)},
		{"json inválido", respond(`{"codigo":0,"detalle":`)},
		{"sin lista", respond(`{"codigo":0,"detalle":{"total":0}}`)},
		{"detalle nulo", respond(`{"codigo":0,"detalle":null}`)},
		{"cuerpo vacío", respond(``)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newClient(t, tc.handler)
			_, err := c.Fetch(context.Background(), day, day)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
		})
	}
}

func TestFetch_TimeoutEsUpstream(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Fetch(ctx, day, day)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestFetch_ServidorCaido(t *testing.T) {
	c := siesa.NewClient(config.ERPConfig{BaseURL: "http://127.0.0.1:1/x", TimeoutSeconds: 1}, nil)
	_, err := c.Fetch(context.Background(), day, day)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}
