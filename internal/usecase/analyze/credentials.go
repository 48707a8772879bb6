package analyze

import "os"

// Backend identifies a reasoning backend vendor.
type Backend string

const (
	BackendAnthropic  Backend = "anthropic"
	BackendOpenAI     Backend = "openai"
	BackendOpenRouter Backend = "openrouter"
	BackendOllama     Backend = "ollama"
	BackendNone       Backend = ""
)

// Credential is a resolved backend choice. Ollama is local and carries
// no key.
type Credential struct {
	Backend Backend
	APIKey  string
}

// envCredentials maps recognized environment variables to backends, in
// discovery order.
var envCredentials = []struct {
	envVar  string
	backend Backend
}{
	{"ANTHROPIC_API_KEY", BackendAnthropic},
	{"OPENAI_API_KEY", BackendOpenAI},
	{"OPENROUTER_API_KEY", BackendOpenRouter},
}

// DiscoverCredential resolves which reasoning backend to use, checked in
// order: an explicit per-run key, recognized environment variables, then
// a local backend designation that needs no credential. The second
// return is false when nothing usable was found, in which case only the
// static roster can run.
func DiscoverCredential(explicitBackend Backend, explicitKey string, lookup func(string) string) (Credential, bool) {
	if lookup == nil {
		lookup = os.Getenv
	}

	if explicitKey != "" {
		backend := explicitBackend
		if backend == BackendNone {
			backend = BackendAnthropic
		}
		return Credential{Backend: backend, APIKey: explicitKey}, true
	}

	// Explicitly asking for the local backend skips the env var scan.
	if explicitBackend == BackendOllama {
		return Credential{Backend: BackendOllama}, true
	}

	for _, entry := range envCredentials {
		if key := lookup(entry.envVar); key != "" {
			return Credential{Backend: entry.backend, APIKey: key}, true
		}
	}

	return Credential{}, false
}
