package agent

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/hupe1980/agentcouncil/core"
)

// DiscoveryCommands reveal the user's system when run in a terminal.
var DiscoveryCommands = []string{"uname -a", "cat /etc/os-release", "sw_vers", "echo $SHELL"}

// SystemOptions are offered as quick answers to the system question.
var SystemOptions = []string{"Ubuntu", "Debian", "Fedora", "Arch Linux", "macOS", "Windows (WSL)"}

// CuriousAgent asks the user about their system when nothing is known yet.
type CuriousAgent struct {
	*BaseAgent
}

// NewCuriousAgent creates a curious agent for task.
func NewCuriousAgent(task core.AgentTask, env *Env) *CuriousAgent {
	return &CuriousAgent{BaseAgent: NewBaseAgent(task, env)}
}

// Run implements Agent. A known profile is returned unchanged. An unanswered
// question yields a skipped output instead of an error.
func (a *CuriousAgent) Run(ctx context.Context, in Input) (Output, error) {
	if !in.Profile.IsEmpty() {
		return &CuriousOutput{Profile: in.Profile}, nil
	}

	a.EmitThinking("Your system is not known yet")
	a.EmitDiscovery(DiscoveryCommands, "Run one of these commands and paste the output, or pick your system.")

	answer, err := a.Ask(ctx, "Which operating system are you using?", SystemOptions, true)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		a.Logger().Info("curious.question.unanswered", "error", err.Error())

		return &CuriousOutput{Skipped: true}, nil
	}

	return &CuriousOutput{Profile: ParseProfile(answer), Answer: answer}, nil
}

type distro struct {
	match          []string
	os             string
	name           string
	packageManager string
}

// checked in order; the first match wins
var distros = []distro{
	{[]string{"wsl"}, "linux", "ubuntu", "apt"},
	{[]string{"ubuntu"}, "linux", "ubuntu", "apt"},
	{[]string{"debian"}, "linux", "debian", "apt"},
	{[]string{"linux mint", "linuxmint"}, "linux", "mint", "apt"},
	{[]string{"fedora"}, "linux", "fedora", "dnf"},
	{[]string{"centos", "rhel", "red hat", "rocky", "alma"}, "linux", "rhel", "dnf"},
	{[]string{"arch", "manjaro"}, "linux", "arch", "pacman"},
	{[]string{"alpine"}, "linux", "alpine", "apk"},
	{[]string{"opensuse", "suse"}, "linux", "opensuse", "zypper"},
	{[]string{"macos", "mac os", "darwin", "osx"}, "macos", "", "brew"},
	{[]string{"windows"}, "windows", "", "winget"},
	{[]string{"linux"}, "linux", "", ""},
}

var (
	osReleaseVersion = regexp.MustCompile(`(?m)^VERSION_ID="?([^"\n]+)"?`)
	productVersion   = regexp.MustCompile(`(?m)^ProductVersion:\s*(\S+)`)
	looseVersion     = regexp.MustCompile(`\b(\d+(?:\.\d+)*)\b`)
	archPattern      = regexp.MustCompile(`\b(x86_64|amd64|aarch64|arm64|armv7l|i686)\b`)
	shellPattern     = regexp.MustCompile(`/(bash|zsh|fish|sh|pwsh)\b`)
)

// ParseProfile extracts what it can from a free-text answer or pasted
// discovery command output.
func ParseProfile(answer string) core.SystemProfile {
	text := strings.ToLower(answer)

	var p core.SystemProfile

	for _, d := range distros {
		if containsAny(text, d.match) {
			p.OS, p.Distro, p.PackageManager = d.os, d.name, d.packageManager
			break
		}
	}

	if strings.Contains(text, "wsl") {
		p.Extra = map[string]string{"wsl": "true"}
	}

	switch {
	case osReleaseVersion.MatchString(answer):
		p.Version = osReleaseVersion.FindStringSubmatch(answer)[1]
	case productVersion.MatchString(answer):
		p.Version = productVersion.FindStringSubmatch(answer)[1]
	case looseVersion.MatchString(answer):
		p.Version = looseVersion.FindStringSubmatch(answer)[1]
	}

	if m := archPattern.FindStringSubmatch(text); m != nil {
		p.Arch = m[1]
	}

	if m := shellPattern.FindStringSubmatch(text); m != nil {
		p.Shell = m[1]
	} else if p.OS == "windows" {
		p.Shell = "powershell"
	}

	return p
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}
