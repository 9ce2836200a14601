package config

const (
	defaultRunsDir             = "~/.local/share/loom/runs"
	defaultLogDir              = "~/.local/share/loom/logs"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultProvider            = ProviderOpenRouter
	defaultLLMBaseURL          = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel            = "deepseek/deepseek-chat"
	defaultLLMReferer          = "https://github.com/loom-fiction/loom"
	defaultLLMTitle            = "Loom"
	defaultLLMTimeoutSeconds   = 180
	defaultLLMMaxAttempts      = 5
	defaultRequestsPerMinute   = 60
	defaultTemperature         = 0.8
	defaultNumCandidates       = 3
	defaultDraftRetries        = 3
	defaultRetryBackoffSeconds = 5
	defaultMaxAutoSteps        = 16
	defaultWindowSize          = 10
	defaultBatchSize           = 5
	defaultTargetWords         = 60000
	defaultAvgSceneWords       = 2000
	defaultArtifactCandidates  = 3
	defaultScenePlanParallel   = 4
	defaultScenePlanRetries    = 3
	defaultRepeatRatioWarn     = 0.08
	defaultSimilarityWarn      = 0.85
	defaultNotifyTimeout       = 10
)

// Supported values for llm.provider.
const (
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// Supported values for workflow.selection_mode.
const (
	SelectionAuto   = "auto"
	SelectionManual = "manual"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RunsDir: defaultRunsDir,
			LogDir:  defaultLogDir,
		},
		LLM: LLM{
			Provider:          defaultProvider,
			BaseURL:           defaultLLMBaseURL,
			Model:             defaultLLMModel,
			Referer:           defaultLLMReferer,
			Title:             defaultLLMTitle,
			TimeoutSeconds:    defaultLLMTimeoutSeconds,
			MaxAttempts:       defaultLLMMaxAttempts,
			RequestsPerMinute: defaultRequestsPerMinute,
			Temperature:       defaultTemperature,
		},
		Workflow: Workflow{
			Interactive:         true,
			BranchingEnabled:    false,
			NumCandidates:       defaultNumCandidates,
			DraftRetries:        defaultDraftRetries,
			RetryBackoffSeconds: defaultRetryBackoffSeconds,
			MaxAutoSteps:        defaultMaxAutoSteps,
		},
		Memory: Memory{
			WindowSize: defaultWindowSize,
			BatchSize:  defaultBatchSize,
		},
		Content: Content{
			Title:              "Untitled",
			Genre:              "literary fiction",
			TargetWords:        defaultTargetWords,
			AvgSceneWords:      defaultAvgSceneWords,
			POV:                "third person limited",
			Tone:               "grounded",
			IdeationCandidates: defaultArtifactCandidates,
			OutlineCandidates:  1,
			BibleCandidates:    1,
		},
		ScenePlan: ScenePlan{
			MaxParallel:  defaultScenePlanParallel,
			ParseRetries: defaultScenePlanRetries,
		},
		QC: QC{
			RepeatRatioWarn: defaultRepeatRatioWarn,
			SimilarityWarn:  defaultSimilarityWarn,
		},
		Notifications: Notifications{
			Enabled:        true,
			Console:        true,
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
