package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("found %d configuration error(s):\n", len(errs)))
	for i, err := range errs {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Message))
	}
	return b.String()
}

// Validate validates the complete configuration
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs = append(errs, c.validateRetriever()...)
	errs = append(errs, c.validateLLM("llm", &c.LLM)...)
	if c.Eval.Enabled {
		errs = append(errs, c.validateEval()...)
	}
	errs = append(errs, c.validateSession()...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (c *Config) validateRetriever() ValidationErrors {
	var errs ValidationErrors

	switch strings.ToLower(c.Retriever.Provider) {
	case "cortex", "":
		if c.Search.BaseURL == "" {
			errs = append(errs, ValidationError{
				Field:   "search.base_url",
				Message: "search base_url is required for the cortex retriever",
			})
		}
		if c.Search.Database == "" || c.Search.Schema == "" || c.Search.Service == "" {
			errs = append(errs, ValidationError{
				Field:   "search",
				Message: "search database, schema and service are required for the cortex retriever",
			})
		}
	case "vector":
		if c.VectorDB.Address == "" {
			errs = append(errs, ValidationError{
				Field:   "vectordb.address",
				Message: "vectordb address is required for the vector retriever",
			})
		}
		if c.VectorDB.Collection == "" {
			errs = append(errs, ValidationError{
				Field:   "vectordb.collection",
				Message: "vectordb collection is required for the vector retriever",
			})
		}
		if c.Embedding.Provider == "" {
			errs = append(errs, ValidationError{
				Field:   "embedding.provider",
				Message: "embedding provider is required for the vector retriever",
			})
		}
		if c.Embedding.Dimensions <= 0 {
			errs = append(errs, ValidationError{
				Field:   "embedding.dimensions",
				Message: fmt.Sprintf("embedding dimensions must be positive, got %d", c.Embedding.Dimensions),
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "retriever.provider",
			Message: fmt.Sprintf("unknown retriever provider %q (want cortex or vector)", c.Retriever.Provider),
		})
	}

	if c.Retriever.TopK < 0 {
		errs = append(errs, ValidationError{
			Field:   "retriever.top_k",
			Message: fmt.Sprintf("top_k must not be negative, got %d", c.Retriever.TopK),
		})
	}

	return errs
}

func (c *Config) validateLLM(field string, cfg *LLMConfig) ValidationErrors {
	var errs ValidationErrors

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		if cfg.APIKey == "" && cfg.APIKeyEnv == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".api_key",
				Message: fmt.Sprintf("%s api_key (or api_key_env) is required for the openai provider", field),
			})
		}
	case "cortex":
		// Cortex inference reuses the search connection; base_url defaults
		// to search.base_url and the token to search.token.
	case "":
		errs = append(errs, ValidationError{
			Field:   field + ".provider",
			Message: field + " provider is required",
		})
	default:
		errs = append(errs, ValidationError{
			Field:   field + ".provider",
			Message: fmt.Sprintf("unknown %s provider %q (want openai or cortex)", field, cfg.Provider),
		})
	}

	if cfg.Model == "" {
		errs = append(errs, ValidationError{
			Field:   field + ".model",
			Message: field + " model is required",
		})
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   field + ".temperature",
			Message: fmt.Sprintf("temperature %.2f is outside [0, 2]", cfg.Temperature),
		})
	}

	return errs
}

func (c *Config) validateEval() ValidationErrors {
	var errs ValidationErrors

	switch strings.ToLower(c.Eval.Provider) {
	case "llm", "":
		errs = append(errs, c.validateLLM("judge", &c.Judge)...)
	case "http":
		if c.Eval.Endpoint == "" {
			errs = append(errs, ValidationError{
				Field:   "eval.endpoint",
				Message: "eval endpoint is required for the http provider",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "eval.provider",
			Message: fmt.Sprintf("unknown eval provider %q (want llm or http)", c.Eval.Provider),
		})
	}

	if c.Eval.CorrectTh != 0 && c.Eval.IncorrectTh != 0 && c.Eval.IncorrectTh >= c.Eval.CorrectTh {
		errs = append(errs, ValidationError{
			Field:   "eval.incorrect_threshold",
			Message: fmt.Sprintf("incorrect_threshold %.2f must be below correct_threshold %.2f",
				c.Eval.IncorrectTh, c.Eval.CorrectTh),
		})
	}

	return errs
}

func (c *Config) validateSession() ValidationErrors {
	var errs ValidationErrors

	switch strings.ToLower(c.Session.Provider) {
	case "memory", "":
	case "redis":
		if c.Session.Redis.Addr == "" {
			errs = append(errs, ValidationError{
				Field:   "session.redis.addr",
				Message: "redis addr is required for the redis session provider",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "session.provider",
			Message: fmt.Sprintf("unknown session provider %q (want memory or redis)", c.Session.Provider),
		})
	}

	return errs
}
