package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// LLM Configuration
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.baseURL", "https://api.openai.com/v1")
	v.SetDefault("llm.apiKey", "")
	v.SetDefault("llm.apiKeyEnv", "") // derived from provider when empty
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.maxTokens", 1400)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.validateSchema", true)

	// Circuit breaker around the single upstream call. It never retries.
	v.SetDefault("llm.circuitBreaker.enabled", true)
	v.SetDefault("llm.circuitBreaker.maxRequests", 3)
	v.SetDefault("llm.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("llm.circuitBreaker.timeout", 30*time.Second)
	v.SetDefault("llm.circuitBreaker.minRequests", 5)
	v.SetDefault("llm.circuitBreaker.failureThreshold", 0.6)

	// Server Configuration
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 90*time.Second) // must outlive llm.timeout
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.maxRequestSize", 10*1024*1024) // 10MB

	// CORS Configuration
	v.SetDefault("cors.allowedOrigins", []string{"http://localhost:3000", "https://kandrai.vercel.app"})
	v.SetDefault("cors.allowedOriginPattern", `^https://.*\.vercel\.app$`)
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 600)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "json")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.llmKey", "")
	v.SetDefault("vault.secrets.llmKeyField", "api_key")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "kandrai")
	v.SetDefault("observability.serviceVersion", "")  // Will use app version if empty
	v.SetDefault("observability.serviceInstance", "") // Will be auto-generated if empty
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)

	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)

	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)

	v.SetDefault("observability.customMetrics.aiOperations.enabled", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackDuration", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackTokenUsage", true)
	v.SetDefault("observability.customMetrics.businessMetrics.enabled", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackSuccessRates", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackContentSizes", true)

	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)

	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")

	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}
