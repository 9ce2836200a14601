package stage

// Health summarizes whether a handler can run.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs a not-ready Health record with detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// generationHealth is shared by handlers that call the provider.
func generationHealth(name string, env *Env) Health {
	switch {
	case env.Provider == nil:
		return Unhealthy(name, "generation provider not configured")
	case env.Catalog == nil:
		return Unhealthy(name, "prompt catalog not loaded")
	case env.Store == nil:
		return Unhealthy(name, "artifact store not available")
	default:
		return Healthy(name)
	}
}
