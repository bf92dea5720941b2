package builtin

import (
	"context"
	"regexp"
	"strings"

	"github.com/hupe1980/agentcouncil/tool"
)

const (
	riskLow    = "low"
	riskMedium = "medium"
	riskHigh   = "high"
)

type commandRule struct {
	re    *regexp.Regexp
	risk  string
	issue string
	// invalid marks commands that must not be suggested at all.
	invalid bool
}

var sudoPattern = regexp.MustCompile(`(^|[;&|]\s*)sudo\b`)

var commandRules = []commandRule{
	{regexp.MustCompile(`\brm\s+(-\S+\s+)*-\S*[rR]\S*\s+(-\S+\s+)*/\*?(\s|$)`), riskHigh, "destroys the root filesystem", true},
	{regexp.MustCompile(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`), riskHigh, "fork bomb", true},
	{regexp.MustCompile(`\bmkfs(\.\w+)?\b`), riskHigh, "formats a filesystem", false},
	{regexp.MustCompile(`\bdd\b.*\bof=/dev/`), riskHigh, "writes directly to a block device", false},
	{regexp.MustCompile(`>\s*/dev/sd[a-z]`), riskHigh, "overwrites a disk device", true},
	{regexp.MustCompile(`\bchmod\s+(-R\s+)?777\s+/(\s|$)`), riskHigh, "makes the root filesystem world writable", true},
	{regexp.MustCompile(`\b(curl|wget)\b[^|]*\|\s*(sudo\s+)?(ba|z)?sh\b`), riskMedium, "pipes a remote script into a shell", false},
	{regexp.MustCompile(`\brm\s+-[a-zA-Z]*[rR]`), riskMedium, "recursive delete", false},
	{regexp.MustCompile(`\b(shutdown|reboot|poweroff)\b`), riskMedium, "restarts or stops the machine", false},
}

// managerOS lists the systems a package manager ships on.
var managerOS = map[string][]string{
	"apt":     {"ubuntu", "debian", "mint", "pop", "wsl", "linux"},
	"apt-get": {"ubuntu", "debian", "mint", "pop", "wsl", "linux"},
	"dnf":     {"fedora", "rhel", "centos", "rocky", "alma", "linux"},
	"yum":     {"fedora", "rhel", "centos", "rocky", "alma", "linux"},
	"pacman":  {"arch", "manjaro", "endeavouros", "linux"},
	"apk":     {"alpine", "linux"},
	"brew":    {"macos", "darwin", "linux"},
	"winget":  {"windows"},
	"choco":   {"windows"},
}

func validateCommand(_ context.Context, args tool.ValidateCommandArgs) (tool.CommandCheck, error) {
	cmd := strings.TrimSpace(args.Command)
	check := tool.CommandCheck{Command: cmd, Valid: true, Risk: riskLow}

	if cmd == "" {
		check.Valid = false
		check.Issues = append(check.Issues, "empty command")
		return check, nil
	}

	for _, issue := range syntaxIssues(cmd) {
		check.Valid = false
		check.Issues = append(check.Issues, issue)
	}

	for _, r := range commandRules {
		if !r.re.MatchString(cmd) {
			continue
		}

		check.Risk = maxRisk(check.Risk, r.risk)
		check.Issues = append(check.Issues, r.issue)

		if r.invalid {
			check.Valid = false
		}
	}

	if sudoPattern.MatchString(cmd) {
		check.Risk = maxRisk(check.Risk, riskMedium)
	}

	if issue := managerMismatch(cmd, args.OS); issue != "" {
		check.Valid = false
		check.Issues = append(check.Issues, issue)
	}

	return check, nil
}

// syntaxIssues finds unbalanced quotes and dangling operators.
func syntaxIssues(cmd string) []string {
	var issues []string

	var single, double bool

	for i := 0; i < len(cmd); i++ {
		switch c := cmd[i]; {
		case c == '\\' && !single:
			i++
		case c == '\'' && !double:
			single = !single
		case c == '"' && !single:
			double = !double
		}
	}

	if single || double {
		issues = append(issues, "unbalanced quotes")
	}

	trimmed := strings.TrimSpace(cmd)
	for _, op := range []string{"|", "&&", "||"} {
		if strings.HasSuffix(trimmed, op) || strings.HasPrefix(trimmed, op) {
			issues = append(issues, "dangling "+op)
			break
		}
	}

	return issues
}

// managerMismatch reports a package manager that does not exist on osName.
func managerMismatch(cmd, osName string) string {
	osName = strings.ToLower(strings.TrimSpace(osName))
	if osName == "" {
		return ""
	}

	for _, field := range strings.Fields(cmd) {
		systems, ok := managerOS[field]
		if !ok {
			continue
		}

		for _, s := range systems {
			if strings.Contains(osName, s) {
				return ""
			}
		}

		return field + " is not available on " + osName
	}

	return ""
}

func maxRisk(a, b string) string {
	rank := map[string]int{riskLow: 0, riskMedium: 1, riskHigh: 2}
	if rank[b] > rank[a] {
		return b
	}

	return a
}
