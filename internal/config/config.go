// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contém as configurações da aplicação
type Config struct {
	Host     string
	Port     string
	LogLevel string

	DBHost       string
	DBPort       uint
	DBName       string
	DBUsername   string
	DBPassword   string
	DBSSLDisable bool

	AuthRSAPrivatePath string
	AuthKID            string
	AuthIssuer         string
	AuthAudience       string
	CookieSecure       bool
	CORSOrigins        []string

	InfoSimplesURL     string
	InfoSimplesToken   string
	InfoSimplesTimeout time.Duration
	InfoSimplesRPS     float64

	RedisURL           string
	ConsultaWorkers    int
	ConsultaTentativas int
	AgendadorIntervalo time.Duration
	JanelaVencimento   int

	WebhookURL string

	RateRPS    float64
	RateBurst  int
	TrustProxy bool
}

// Load carrega configurações do ambiente. O arquivo .env é opcional.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Host:     getEnv("HOST", "0.0.0.0"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBHost:       getEnv("DB_HOST", "localhost"),
		DBPort:       uint(getEnvInt("DB_PORT", 5432)),
		DBName:       getEnv("DB_NAME", "painel_fiscal"),
		DBUsername:   getEnv("DB_USERNAME", "postgres"),
		DBPassword:   getEnv("DB_PASSWORD", "postgres"),
		DBSSLDisable: getEnvBool("DB_SSL_MODE_DISABLE", true),

		AuthRSAPrivatePath: getEnv("AUTH_RSA_PRIVATE_PATH", ""),
		AuthKID:            getEnv("AUTH_KID", ""),
		AuthIssuer:         getEnv("AUTH_ISSUER", "painel-fiscal"),
		AuthAudience:       getEnv("AUTH_AUDIENCE", "painel-fiscal-web"),
		CookieSecure:       getEnvBool("COOKIE_SECURE", false),
		CORSOrigins:        getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),

		InfoSimplesURL:     getEnv("INFOSIMPLES_URL", "https://api.infosimples.com/api/v2/consultas"),
		InfoSimplesToken:   getEnv("INFOSIMPLES_TOKEN", ""),
		InfoSimplesTimeout: getEnvDuration("INFOSIMPLES_TIMEOUT", 5*time.Minute),
		InfoSimplesRPS:     getEnvFloat("INFOSIMPLES_RPS", 2),

		RedisURL:           getEnv("REDIS_URL", ""),
		ConsultaWorkers:    getEnvInt("CONSULTA_WORKERS", 4),
		ConsultaTentativas: getEnvInt("CONSULTA_TENTATIVAS", 3),
		AgendadorIntervalo: getEnvDuration("AGENDADOR_INTERVALO", time.Hour),
		JanelaVencimento:   getEnvInt("JANELA_VENCIMENTO_DIAS", 15),

		WebhookURL: getEnv("WEBHOOK_URL", ""),

		RateRPS:    getEnvFloat("RATE_RPS", 10),
		RateBurst:  getEnvInt("RATE_BURST", 20),
		TrustProxy: getEnvBool("TRUST_PROXY", false),
	}
}

// Addr retorna host:porta para o http.Server
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

// getEnv retorna uma variável de ambiente ou um valor padrão
func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

// getEnvBool retorna uma variável de ambiente como bool
func getEnvBool(key string, defaultValue bool) bool {
	boolValue, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return boolValue
}

// getEnvDuration aceita "30s", "5m" ou um número de segundos.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
