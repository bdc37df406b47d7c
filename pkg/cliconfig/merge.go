package cliconfig

// MergeConfig merges source config into target, updating sources tracking.
// Only non-zero values from source are applied.
func MergeConfig(target, source *CLIConfig, sourceType string) {
	if source == nil {
		return
	}
	if target.Sources == nil {
		target.Sources = make(map[string]string)
	}

	mergeString(target, &target.InstanceURL, source.InstanceURL, "instanceUrl", sourceType)
	mergeString(target, &target.APIVersion, source.APIVersion, "apiVersion", sourceType)
	mergeString(target, &target.AccessToken, source.AccessToken, "accessToken", sourceType)
	mergeString(target, &target.LoginURL, source.LoginURL, "loginUrl", sourceType)
	mergeString(target, &target.ClientID, source.ClientID, "clientId", sourceType)
	mergeString(target, &target.ClientSecret, source.ClientSecret, "clientSecret", sourceType)
	mergeString(target, &target.RedirectURL, source.RedirectURL, "redirectUrl", sourceType)
	mergeString(target, &target.LogLevel, source.LogLevel, "logLevel", sourceType)
	mergeString(target, &target.LogFormat, source.LogFormat, "logFormat", sourceType)

	// A timeout of zero is meaningful, so it is merged when explicitly set.
	if source.Timeout != 0 || source.SetFields["timeout"] {
		target.Timeout = source.Timeout
		target.Sources["timeout"] = sourceType
	}
	// For booleans, checking `if source.X` cannot detect an explicit false.
	// SetFields (populated during file loading) tells whether the key was
	// present; without it only true values are merged.
	if boolIsSet(source, "json") {
		target.JSON = source.JSON
		target.Sources["json"] = sourceType
	}
}

func mergeString(target *CLIConfig, dst *string, value, key, sourceType string) {
	if value == "" {
		return
	}
	*dst = value
	target.Sources[key] = sourceType
}

// boolIsSet reports whether a boolean field identified by its YAML key was
// explicitly set in the source config.
func boolIsSet(cfg *CLIConfig, yamlKey string) bool {
	if cfg.SetFields != nil {
		return cfg.SetFields[yamlKey]
	}
	switch yamlKey {
	case "json":
		return cfg.JSON
	}
	return false
}
