// Package repository builds documentation from a hosted source repository by
// walking its file tree through the hosting REST API.
package repository

import (
	"fmt"
	"strings"
)

// Reference identifies a repository and optionally a branch.
type Reference struct {
	Host   string
	Owner  string
	Repo   string
	Branch string // empty means the repository's default branch
}

// ParseReference accepts "[scheme://]host/owner/repo[/tree/branch]" for the
// given host. A trailing ".git" on repo is dropped.
func ParseReference(locator, host string) (Reference, bool) {
	rest := strings.TrimSpace(locator)
	if i := strings.Index(rest, "://"); i >= 0 {
		scheme := strings.ToLower(rest[:i])
		if scheme != "http" && scheme != "https" {
			return Reference{}, false
		}
		rest = rest[i+3:]
	}
	rest, _, _ = strings.Cut(rest, "?")
	rest, _, _ = strings.Cut(rest, "#")

	segments := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segments) < 3 {
		return Reference{}, false
	}
	h := strings.ToLower(segments[0])
	if h != strings.ToLower(host) && h != "www."+strings.ToLower(host) {
		return Reference{}, false
	}

	ref := Reference{
		Host:  strings.ToLower(host),
		Owner: segments[1],
		Repo:  strings.TrimSuffix(segments[2], ".git"),
	}
	if ref.Owner == "" || ref.Repo == "" {
		return Reference{}, false
	}
	if len(segments) >= 5 && segments[3] == "tree" {
		ref.Branch = segments[4]
	}
	return ref, true
}

// URL is the repository's web address.
func (r Reference) URL() string {
	return fmt.Sprintf("https://%s/%s/%s", r.Host, r.Owner, r.Repo)
}

// SiteName names the output directory: "<host label>_<owner>_<repo>",
// e.g. github_golang_go.
func (r Reference) SiteName() string {
	label, _, _ := strings.Cut(r.Host, ".")
	return fmt.Sprintf("%s_%s_%s", label, r.Owner, r.Repo)
}

func (r Reference) String() string {
	if r.Branch == "" {
		return r.Owner + "/" + r.Repo
	}
	return r.Owner + "/" + r.Repo + "@" + r.Branch
}
