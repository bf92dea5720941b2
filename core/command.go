package core

// Risk grades the impact of running a proposed command.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Command is a shell command proposed to the user.
type Command struct {
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Risk        Risk   `json:"risk,omitempty"`
	Validated   bool   `json:"validated"`
	Reason      string `json:"reason,omitempty"` // Set when validation rejected the command
}

// MergeCommands appends commands of b not already present in a (by command
// text).
func MergeCommands(a, b []Command) []Command {
	seen := make(map[string]int, len(a)+len(b))
	out := make([]Command, 0, len(a)+len(b))

	for _, list := range [][]Command{a, b} {
		for _, c := range list {
			if i, ok := seen[c.Command]; ok {
				// later validation results supersede the proposal
				if c.Validated || c.Reason != "" {
					out[i] = c
				}

				continue
			}

			seen[c.Command] = len(out)
			out = append(out, c)
		}
	}

	return out
}
