package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/hupe1980/agentcouncil/tool"
)

// repoPrefixes maps a package manager to the Repology repositories it reads.
var repoPrefixes = map[string][]string{
	"apt":    {"ubuntu_", "debian_"},
	"dnf":    {"fedora_"},
	"yum":    {"centos_", "epel_", "fedora_"},
	"pacman": {"arch"},
	"brew":   {"homebrew"},
	"apk":    {"alpine_"},
	"npm":    {"npm"},
	"pip":    {"pypi"},
}

type repologyPackage struct {
	Repo    string `json:"repo"`
	Version string `json:"version"`
	Summary string `json:"summary"`
	Status  string `json:"status"`
}

func (w *web) lookupPackage(ctx context.Context, args tool.LookupPackageArgs) (tool.PackageInfo, error) {
	name := strings.ToLower(strings.TrimSpace(args.Name))
	info := tool.PackageInfo{Name: args.Name, Manager: args.Manager}

	body, err := w.get(ctx, w.opts.RepologyURL+url.PathEscape(name))
	if err != nil {
		return info, err
	}

	if body == nil {
		return info, nil
	}

	var pkgs []repologyPackage
	if err := json.Unmarshal(body, &pkgs); err != nil {
		return info, fmt.Errorf("decode repology response: %w", err)
	}

	best, ok := bestPackage(pkgs, repoPrefixes[args.Manager])
	if !ok {
		return info, nil
	}

	info.Found = true
	info.Version = best.Version
	info.Description = best.Summary

	return info, nil
}

// bestPackage picks the newest entry among repositories matching prefixes,
// falling back to the first match.
func bestPackage(pkgs []repologyPackage, prefixes []string) (repologyPackage, bool) {
	var (
		first repologyPackage
		found bool
	)

	for _, p := range pkgs {
		if !hasAnyPrefix(p.Repo, prefixes) {
			continue
		}

		if p.Status == "newest" {
			return p, true
		}

		if !found {
			first, found = p, true
		}
	}

	return first, found
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}

	return false
}
