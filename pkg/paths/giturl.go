package paths

import (
	"path"
	"regexp"
	"strings"

	"github.com/deckhand-sh/deckhand/pkg/deckerrors"
)

var (
	// url: git@github.com:username/repo
	// ref: a tag, branch or commit
	// path: a file within the repo
	// name: the name of the definition in the manifest
	gitSSHPattern = regexp.MustCompile(
		`^git\+ssh://(?P<repo>.+?:.+?)` +
			`(@(?P<ref>.+?))?` +
			`(#(?P<path>.+?))?` +
			`(::(?P<name>.+?))?$`,
	)

	// url: https://github.com/username/repo
	gitHTTPSPattern = regexp.MustCompile(
		`^git\+(?P<repo>https://.+?)` +
			`(@(?P<ref>.+?))?` +
			`(#(?P<path>.+?))?` +
			`(::(?P<name>.+?))?$`,
	)
)

// GitURL is a parsed git reference path in one of the formats:
//
//	git+ssh://host:owner/repo@ref#path/to/file::Name
//	git+https://host/owner/repo@ref#path/to/file::Name
//
// Ref, Subpath and Name are all optional. Repo is the locator in the form
// accepted by `git <command> <repo>`.
type GitURL struct {
	Repo    string
	Ref     string
	Subpath string
	Name    string
	ssh     bool
}

// IsGitURL reports whether the raw path uses a git reference scheme.
func IsGitURL(raw string) bool {
	return strings.HasPrefix(raw, "git+ssh://") || strings.HasPrefix(raw, "git+https://")
}

// ParseGitURL parses a git reference path. A malformed URL is a definition
// error.
func ParseGitURL(raw string) (*GitURL, error) {
	var (
		pattern *regexp.Regexp
		ssh     bool
	)

	switch {
	case strings.HasPrefix(raw, "git+ssh://"):
		pattern, ssh = gitSSHPattern, true
	case strings.HasPrefix(raw, "git+https://"):
		pattern, ssh = gitHTTPSPattern, false
	default:
		return nil, deckerrors.Definitionf("unrecognised git URL format %q", raw)
	}

	matches := pattern.FindStringSubmatch(raw)
	if matches == nil {
		return nil, deckerrors.Definitionf("unrecognised git URL format %q", raw)
	}

	u := &GitURL{ssh: ssh}

	for i, group := range pattern.SubexpNames() {
		switch group {
		case "repo":
			u.Repo = matches[i]
		case "ref":
			u.Ref = matches[i]
		case "path":
			u.Subpath = matches[i]
		case "name":
			u.Name = matches[i]
		}
	}

	return u, nil
}

// Join returns a copy of the URL with the given path appended to its subpath.
func (u *GitURL) Join(rel string) *GitURL {
	joined := *u
	joined.Subpath = path.Join(u.Subpath, rel)

	return &joined
}

// String reassembles the URL into its git+ form.
func (u *GitURL) String() string {
	sb := &strings.Builder{}

	if u.ssh {
		sb.WriteString("git+ssh://")
	} else {
		sb.WriteString("git+")
	}

	sb.WriteString(u.Repo)

	if u.Ref != "" {
		sb.WriteString("@" + u.Ref)
	}

	if u.Subpath != "" {
		sb.WriteString("#" + u.Subpath)
	}

	if u.Name != "" {
		sb.WriteString("::" + u.Name)
	}

	return sb.String()
}
