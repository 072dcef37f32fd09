package services

import (
	"net/url"
	"strings"

	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
)

// Landing paths the client routes to
const (
	PathAuth                 = "/auth"
	PathOnboarding           = "/onboarding"
	PathAcademicOnboarding   = "/academic-onboarding"
	PathUniversityOnboarding = "/university-onboarding"
	PathPendingReview        = "/pending-review"
	PathRegistrationPending  = "/registration-pending"
	PathDashboard            = "/dashboard"
	PathApplications         = "/dashboard/applications"
)

// DefaultPublicPaths may be visited without a session. A trailing "/*" matches
// every sub-path.
var DefaultPublicPaths = []string{"/", "/auth", "/auth/*", "/privacy", "/terms", "/coming-soon"}

// destinations matched by prefix; everything else matches exactly
var prefixDestinations = map[string]bool{
	PathDashboard:            true,
	PathOnboarding:           true,
	PathAcademicOnboarding:   true,
	PathUniversityOnboarding: true,
}

// RedirectPolicy maps a role resolution and the current path to a landing path
type RedirectPolicy struct {
	publicPaths []string
}

// NewRedirectPolicy creates a policy. An empty list uses DefaultPublicPaths.
func NewRedirectPolicy(publicPaths []string) *RedirectPolicy {
	if len(publicPaths) == 0 {
		publicPaths = DefaultPublicPaths
	}
	return &RedirectPolicy{publicPaths: publicPaths}
}

// Target is where the identity belongs, ignoring where it is now. It returns ""
// for an anonymous visitor on a public path.
func (p *RedirectPolicy) Target(res models.RoleResolution, currentPath string) string {
	if !res.Authenticated() {
		if p.IsPublic(currentPath) {
			return ""
		}
		return PathAuth
	}

	switch res.Role {
	case models.RoleUniversityOfficial:
		o, _ := res.Official()
		switch {
		case o == nil:
			return PathUniversityOnboarding
		case o.Status == models.OfficialStatusPending:
			return PathRegistrationPending
		case o.Status == models.OfficialStatusRejected:
			return PathPendingReview
		case o.UniversityID == nil || !o.HasDepartment():
			return PathUniversityOnboarding
		default:
			return PathDashboard
		}
	case models.RoleStudent:
		s, _ := res.Student()
		if s == nil {
			return PathOnboarding
		}
		switch s.Stage() {
		case models.StagePersonal:
			return PathOnboarding
		case models.StageAcademic:
			return PathAcademicOnboarding
		default:
			return PathDashboard
		}
	case models.RoleAgent, models.RoleAdministrator:
		return PathDashboard
	default:
		return PathOnboarding
	}
}

// Destination returns the landing path and whether the client must navigate
// there. No navigation happens when the current path already satisfies it.
func (p *RedirectPolicy) Destination(res models.RoleResolution, currentPath string) (string, bool) {
	current := normalizePath(currentPath)
	target := p.Target(res, current)
	if target == "" {
		return current, false
	}
	if PathMatches(current, target) {
		return target, false
	}
	return target, true
}

// IsPublic reports whether path is on the public allow-list
func (p *RedirectPolicy) IsPublic(path string) bool {
	path = normalizePath(path)
	for _, pub := range p.publicPaths {
		if prefix, ok := strings.CutSuffix(pub, "/*"); ok {
			if strings.HasPrefix(path, prefix+"/") {
				return true
			}
			continue
		}
		if path == pub {
			return true
		}
	}
	return false
}

// PathMatches reports whether current already is the destination, so that a
// redirect would loop
func PathMatches(current, destination string) bool {
	current = normalizePath(current)
	if current == destination {
		return true
	}
	if prefixDestinations[destination] {
		return strings.HasPrefix(current, destination+"/")
	}
	return false
}

// normalizePath drops query, fragment and trailing slash
func normalizePath(p string) string {
	if u, err := url.Parse(p); err == nil {
		p = u.Path
	}
	if p == "" {
		return "/"
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
