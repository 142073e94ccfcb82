package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks fills values that depend on other settings
func (c *Config) applyFallbacks() {
	c.applyLLMDefaults()
	c.applyObservabilityDefaults()
}

// applyLLMDefaults derives provider specific defaults the user did not set
func (c *Config) applyLLMDefaults() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))

	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = DefaultAPIKeyEnv(c.LLM.Provider)
	}

	// The openai defaults make no sense against the other APIs.
	if model, ok := defaultModels[c.LLM.Provider]; ok {
		if c.LLM.Model == "gpt-4o-mini" {
			c.LLM.Model = model
		}
		if c.LLM.BaseURL == "https://api.openai.com/v1" {
			c.LLM.BaseURL = ""
		}
	}
	c.LLM.BaseURL = strings.TrimRight(c.LLM.BaseURL, "/")
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// DefaultAPIKeyEnv names the environment variable holding the credential for provider.
func DefaultAPIKeyEnv(provider string) string {
	switch provider {
	case "gemini":
		return "GEMINI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

var defaultModels = map[string]string{
	"gemini":    "gemini-2.0-flash",
	"anthropic": "claude-3-5-haiku-latest",
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		c.LLM.APIKeyEnv,
		"KANDRAI_LLM_PROVIDER",
		"KANDRAI_LLM_MODEL",
		"KANDRAI_LLM_BASEURL",
		"KANDRAI_SERVER_PORT",
		"KANDRAI_SERVER_HOST",
		"KANDRAI_APP_LOGLEVEL",
		"KANDRAI_VAULT_ENABLED",
		"KANDRAI_CORS_ALLOWEDORIGINS",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if isSensitiveEnv(envVar) {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] LLM Provider: %s", c.LLM.Provider)
	log.Printf("[CONFIG] LLM Model: %s", c.LLM.Model)
	log.Printf("[CONFIG] LLM Credential Env: %s", c.LLM.APIKeyEnv)
	if os.Getenv(c.LLM.APIKeyEnv) != "" || c.LLM.APIKey != "" {
		log.Println("[CONFIG] LLM API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] LLM API Key: ***NOT SET*** (requests needing the model will get 503)")
	}
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] CORS Origins: %s", strings.Join(c.CORS.AllowedOrigins, ", "))
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}

func isSensitiveEnv(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "key") || strings.Contains(lower, "token") || strings.Contains(lower, "secret")
}
