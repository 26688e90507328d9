package config

// applyOperationDefaults applies global defaults to operation-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationLLMConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.LLM.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.LLM.Model
	}
	if opCfg.BaseURL == "" {
		opCfg.BaseURL = c.LLM.BaseURL
	}
	if opCfg.Timeout == nil {
		opCfg.Timeout = &c.LLM.Timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.LLM.APIKey
	}
	if opCfg.Temperature == nil {
		opCfg.Temperature = &c.LLM.Temperature
	}
	if opCfg.Referer == "" {
		opCfg.Referer = c.LLM.Referer
	}
	if opCfg.Title == "" {
		opCfg.Title = c.LLM.Title
	}
	// UseSystemPrompts: apply global default only if not explicitly set
	if opCfg.UseSystemPrompts == nil {
		opCfg.UseSystemPrompts = &c.LLM.UseSystemPrompts
	}
}

// GetModifyConfig returns the LLM configuration for CV modify operations with fallback to global config
func (c *Config) GetModifyConfig() OperationLLMConfig {
	config := c.LLM.Modify

	// Apply common defaults
	c.applyOperationDefaults(&config)

	// Apply modify-specific prompt fallbacks
	if config.CustomPrompts.SystemPrompts.ModifyCV == "" {
		config.CustomPrompts.SystemPrompts.ModifyCV = c.LLM.CustomPrompts.SystemPrompts.ModifyCV
	}
	if config.CustomPrompts.UserPrompts.ModifyCV == "" {
		config.CustomPrompts.UserPrompts.ModifyCV = c.LLM.CustomPrompts.UserPrompts.ModifyCV
	}

	return config
}

// GetModifyJSONConfig returns the LLM configuration for structured CV modify operations
func (c *Config) GetModifyJSONConfig() OperationLLMConfig {
	config := c.LLM.ModifyJSON

	// Apply common defaults
	c.applyOperationDefaults(&config)

	// Apply modify-json-specific prompt fallbacks
	if config.CustomPrompts.SystemPrompts.ModifyCVJSON == "" {
		config.CustomPrompts.SystemPrompts.ModifyCVJSON = c.LLM.CustomPrompts.SystemPrompts.ModifyCVJSON
	}
	if config.CustomPrompts.UserPrompts.ModifyCVJSON == "" {
		config.CustomPrompts.UserPrompts.ModifyCVJSON = c.LLM.CustomPrompts.UserPrompts.ModifyCVJSON
	}

	return config
}

// GetRankConfig returns the LLM configuration for posting-ranking operations
func (c *Config) GetRankConfig() OperationLLMConfig {
	config := c.LLM.Rank

	// Apply common defaults
	c.applyOperationDefaults(&config)

	// Apply rank-specific prompt fallbacks
	if config.CustomPrompts.SystemPrompts.RankJobs == "" {
		config.CustomPrompts.SystemPrompts.RankJobs = c.LLM.CustomPrompts.SystemPrompts.RankJobs
	}
	if config.CustomPrompts.UserPrompts.RankJobs == "" {
		config.CustomPrompts.UserPrompts.RankJobs = c.LLM.CustomPrompts.UserPrompts.RankJobs
	}

	return config
}

// GetScoreConfig returns the LLM configuration for CV scoring operations
func (c *Config) GetScoreConfig() OperationLLMConfig {
	config := c.LLM.Score

	// Apply common defaults
	c.applyOperationDefaults(&config)

	// Apply score-specific prompt fallbacks
	if config.CustomPrompts.SystemPrompts.ScoreCV == "" {
		config.CustomPrompts.SystemPrompts.ScoreCV = c.LLM.CustomPrompts.SystemPrompts.ScoreCV
	}
	if config.CustomPrompts.UserPrompts.ScoreCV == "" {
		config.CustomPrompts.UserPrompts.ScoreCV = c.LLM.CustomPrompts.UserPrompts.ScoreCV
	}

	return config
}
