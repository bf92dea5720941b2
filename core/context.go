package core

// Tier is the subscription level of a user and selects quota limits.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Identity names the caller for quota and usage accounting.
type Identity struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Tier      Tier   `json:"tier"`
}

// Key returns the accounting key for the identity.
func (i Identity) Key() string {
	if i.SessionID == "" {
		return i.UserID
	}
	return i.UserID + "/" + i.SessionID
}

// SystemProfile describes the user's machine as far as it is known.
type SystemProfile struct {
	OS             string            `json:"os,omitempty" yaml:"os,omitempty"`
	Distro         string            `json:"distro,omitempty" yaml:"distro,omitempty"`
	Version        string            `json:"version,omitempty" yaml:"version,omitempty"`
	Arch           string            `json:"arch,omitempty" yaml:"arch,omitempty"`
	Shell          string            `json:"shell,omitempty" yaml:"shell,omitempty"`
	PackageManager string            `json:"package_manager,omitempty" yaml:"package_manager,omitempty"`
	Extra          map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// IsEmpty reports whether nothing is known about the system.
func (p SystemProfile) IsEmpty() bool {
	return p.OS == "" && p.Distro == "" && p.Version == "" && p.Arch == "" &&
		p.Shell == "" && p.PackageManager == "" && len(p.Extra) == 0
}

// Merge returns p overlaid with the non-empty fields of partial.
func (p SystemProfile) Merge(partial SystemProfile) SystemProfile {
	out := p

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	set(&out.OS, partial.OS)
	set(&out.Distro, partial.Distro)
	set(&out.Version, partial.Version)
	set(&out.Arch, partial.Arch)
	set(&out.Shell, partial.Shell)
	set(&out.PackageManager, partial.PackageManager)

	if len(p.Extra) > 0 || len(partial.Extra) > 0 {
		out.Extra = make(map[string]string, len(p.Extra)+len(partial.Extra))
		for k, v := range p.Extra {
			out.Extra[k] = v
		}
		for k, v := range partial.Extra {
			out.Extra[k] = v
		}
	}

	return out
}

// OrchestratorContext is the externally owned state of one conversation. The
// core reads it and only ever merges into SystemProfile.
type OrchestratorContext struct {
	ChatID          string
	UserID          string
	SessionID       string
	Tier            Tier
	SystemProfile   SystemProfile
	MessageHistory  []Content
	ModelCredential string
}

// Identity returns the quota identity of the conversation.
func (c OrchestratorContext) Identity() Identity {
	return Identity{UserID: c.UserID, SessionID: c.SessionID, Tier: c.Tier}
}

// Clone returns a deep copy of the slices and maps of c. Content parts are
// shared; they are immutable values.
func (c OrchestratorContext) Clone() OrchestratorContext {
	out := c

	if c.MessageHistory != nil {
		out.MessageHistory = append([]Content(nil), c.MessageHistory...)
	}

	if c.SystemProfile.Extra != nil {
		out.SystemProfile.Extra = make(map[string]string, len(c.SystemProfile.Extra))
		for k, v := range c.SystemProfile.Extra {
			out.SystemProfile.Extra[k] = v
		}
	}

	return out
}
