package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// URL de producción del conector SIESA (ejecutarconsulta).
const DefaultERPBaseURL = "https://siesaprod.cipa.com.co/produccion/v3/ejecutarconsulta"

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App   AppConfig
	ERP   ERPConfig
	Store StoreConfig
	Rules RulesConfig
	Mail  MailConfig
	JWT   JWTConfig
	HTTP  HTTPConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env       string // development, staging, production
	Name      string
	LogLevel  string
	OutputDir string // destino de la planilla y el resumen PDF
}

// ERPConfig conexión al endpoint de consultas del ERP.
type ERPConfig struct {
	BaseURL        string
	Key            string // header Connikey
	Token          string // header conniToken
	CompanyID      int
	Query          string // descriptor de la consulta ("descripcion")
	TimeoutSeconds int
}

// StoreConfig almacén transaccional.
// Si DatabaseURL no está vacío se usa PostgreSQL; si no, SQLite en Path.
type StoreConfig struct {
	Path        string
	DatabaseURL string
}

// RulesConfig parámetros de negocio leídos una sola vez al iniciar.
type RulesConfig struct {
	MinInvoiceTotal    decimal.Decimal
	ApplicationEpsilon decimal.Decimal
}

// MailConfig envío de la planilla por SMTP.
type MailConfig struct {
	Server     string
	Port       int
	Username   string
	Password   string
	Recipients []string
}

// Enabled indica si hay credenciales y destinatarios suficientes para enviar correo.
func (c MailConfig) Enabled() bool {
	return c.Username != "" && c.Password != "" && len(c.Recipients) > 0
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, ERP_KEY, STORE_PATH, JWT_SECRET, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	minTotal, err := getDecimal(v, "MIN_INVOICE_TOTAL", "498000")
	if err != nil {
		return nil, err
	}
	epsilon, err := getDecimal(v, "APPLICATION_EPSILON", "0.01")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Env:       getString(v, "APP_ENV", "development"),
			Name:      getString(v, "APP_NAME", "notas-credito"),
			LogLevel:  getString(v, "LOG_LEVEL", "info"),
			OutputDir: getString(v, "OUTPUT_DIR", "./output"),
		},
		ERP: ERPConfig{
			BaseURL:        getString(v, "ERP_BASE_URL", DefaultERPBaseURL),
			Key:            getString(v, "ERP_KEY", getString(v, "CONNI_KEY", "")),
			Token:          getString(v, "ERP_TOKEN", getString(v, "CONNI_TOKEN", "")),
			CompanyID:      getInt(v, "ERP_COMPANY_ID", 37),
			Query:          getString(v, "ERP_QUERY", "Api_Consulta_Fac_Correagro"),
			TimeoutSeconds: getInt(v, "ERP_TIMEOUT_SECONDS", 30),
		},
		Store: StoreConfig{
			Path:        getString(v, "STORE_PATH", "./data/notas_credito.db"),
			DatabaseURL: getString(v, "DATABASE_URL", ""),
		},
		Rules: RulesConfig{
			MinInvoiceTotal:    minTotal,
			ApplicationEpsilon: epsilon,
		},
		Mail: MailConfig{
			Server:     getString(v, "SMTP_SERVER", "smtp.gmail.com"),
			Port:       getInt(v, "SMTP_PORT", 587),
			Username:   getString(v, "EMAIL_USERNAME", ""),
			Password:   getString(v, "EMAIL_PASSWORD", ""),
			Recipients: splitList(getString(v, "DESTINATARIOS", "")),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "notas-credito"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
	}
	return cfg, nil
}

// ValidatePipeline exige las credenciales del ERP.
func (c *Config) ValidatePipeline() error {
	if c.ERP.Key == "" || c.ERP.Token == "" {
		return fmt.Errorf("config: ERP_KEY y ERP_TOKEN son obligatorios")
	}
	if c.ERP.TimeoutSeconds <= 0 {
		return fmt.Errorf("config: ERP_TIMEOUT_SECONDS debe ser positivo")
	}
	return nil
}

// ValidateAPI exige el secreto JWT del dashboard.
func (c *Config) ValidateAPI() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("config: JWT_SECRET es obligatorio")
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getDecimal(v *viper.Viper, key, def string) (decimal.Decimal, error) {
	raw := getString(v, key, def)
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("config: %s inválido %q: %w", key, raw, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
