package config

// applyOperationDefaults fills unset operation fields from the global AI configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.Timeout == nil {
		opCfg.Timeout = &c.AI.Timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.MaxRetries == nil {
		opCfg.MaxRetries = &c.AI.MaxRetries
	}
	if opCfg.Temperature == nil {
		opCfg.Temperature = &c.AI.Temperature
	}
	if opCfg.UseSystemPrompts == nil {
		opCfg.UseSystemPrompts = &c.AI.UseSystemPrompts
	}
}

// GetGenerateConfig returns the AI configuration for persona generation with fallback to global config
func (c *Config) GetGenerateConfig() OperationAIConfig {
	config := c.AI.Generate
	c.applyOperationDefaults(&config)

	prompts := &config.CustomPrompts
	global := c.AI.CustomPrompts
	if prompts.SystemPrompt == "" {
		prompts.SystemPrompt = global.SystemPrompt
	}
	if prompts.UserPrompt == "" {
		prompts.UserPrompt = global.UserPrompt
	}
	if prompts.SystemPromptFile == "" {
		prompts.SystemPromptFile = global.SystemPromptFile
	}
	if prompts.UserPromptFile == "" {
		prompts.UserPromptFile = global.UserPromptFile
	}

	return config
}
