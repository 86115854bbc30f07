package auth

import (
	"fmt"
	"path"
	"strings"

	"github.com/gobwas/glob"
	goerrors "github.com/goliatone/go-errors"
)

// MatchPolicy decides how a rule's role set is applied
type MatchPolicy string

const (
	// MatchAny requires at least one of the rule roles
	MatchAny MatchPolicy = "any"
	// MatchAll requires every rule role
	MatchAll MatchPolicy = "all"
)

// DefaultPolicy applies to paths no rule matched. It has no implicit value.
type DefaultPolicy string

const (
	DefaultAllow DefaultPolicy = "allow"
	DefaultDeny  DefaultPolicy = "deny"
)

// Rule maps a path pattern to the roles it requires. Patterns are globs with
// "/" as separator: "*" matches within one segment, "**" across segments and
// "{a,b}" alternatives, e.g. "{/admin,/admin/**}". A rule with no roles permits
// everyone unless Authenticated is set, in which case any principal passes.
type Rule struct {
	Pattern       string      `yaml:"pattern" json:"pattern"`
	Roles         []string    `yaml:"roles" json:"roles,omitempty"`
	Match         MatchPolicy `yaml:"match" json:"match,omitempty"`
	Authenticated bool        `yaml:"authenticated" json:"authenticated,omitempty"`
}

// RuleTable is evaluated top to bottom, first match wins
type RuleTable struct {
	Rules           []Rule        `yaml:"rules" json:"rules"`
	Default         DefaultPolicy `yaml:"default_policy" json:"default_policy"`
	CaseInsensitive bool          `yaml:"case_insensitive" json:"case_insensitive"`
}

// DefaultRuleTable protects /admin for ADMIN and /member for MEMBER or
// ADMIN, everything else is public
func DefaultRuleTable() RuleTable {
	return RuleTable{
		Rules: []Rule{
			{Pattern: "{/admin,/admin/**}", Roles: []string{"ADMIN"}, Match: MatchAny},
			{Pattern: "{/member,/member/**}", Roles: []string{"MEMBER", "ADMIN"}, Match: MatchAny},
		},
		Default: DefaultAllow,
	}
}

// Decision is the verdict of the authorization gate
type Decision int

const (
	DecisionAllow Decision = iota + 1
	// DecisionDenyUnauthenticated no valid credential, maps to 401
	DecisionDenyUnauthenticated
	// DecisionDenyForbidden valid credential without the required roles, maps to 403
	DecisionDenyForbidden
)

// Allowed is true only for DecisionAllow
func (d Decision) Allowed() bool {
	return d == DecisionAllow
}

// Err returns the structured error for a deny decision, nil otherwise
func (d Decision) Err() error {
	switch d {
	case DecisionAllow:
		return nil
	case DecisionDenyForbidden:
		return ErrInsufficientRole
	default:
		return ErrUnauthenticated
	}
}

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionDenyUnauthenticated:
		return "deny_unauthenticated"
	case DecisionDenyForbidden:
		return "deny_forbidden"
	default:
		return "unknown"
	}
}

// Verdict explains a decision
type Verdict struct {
	Decision Decision
	Pattern  string
	Matched  bool
}

type compiledRule struct {
	pattern       string
	matcher       glob.Glob
	roles         []string
	match         MatchPolicy
	authenticated bool
}

// Gate evaluates a compiled rule table. It is immutable after construction
// and safe for concurrent use.
type Gate struct {
	rules           []compiledRule
	def             DefaultPolicy
	caseInsensitive bool
}

// NewGate compiles table. The default policy must be set explicitly.
func NewGate(table RuleTable) (*Gate, error) {
	switch table.Default {
	case DefaultAllow, DefaultDeny:
	case "":
		return nil, ErrDefaultPolicyUnset
	default:
		return nil, goerrors.New(fmt.Sprintf("unknown default policy %q", table.Default), goerrors.CategoryValidation)
	}

	g := &Gate{
		def:             table.Default,
		caseInsensitive: table.CaseInsensitive,
		rules:           make([]compiledRule, 0, len(table.Rules)),
	}

	for i, rule := range table.Rules {
		compiled, err := g.compile(rule)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryValidation, fmt.Sprintf("invalid rule %d (%s)", i, rule.Pattern))
		}
		g.rules = append(g.rules, compiled)
	}

	return g, nil
}

func (g *Gate) compile(rule Rule) (compiledRule, error) {
	pattern := strings.TrimSpace(rule.Pattern)
	if pattern == "" {
		return compiledRule{}, goerrors.New("pattern is required", goerrors.CategoryValidation)
	}

	if g.caseInsensitive {
		pattern = strings.ToLower(pattern)
	}

	matcher, err := glob.Compile(pattern, '/')
	if err != nil {
		return compiledRule{}, err
	}

	match := MatchPolicy(strings.ToLower(string(rule.Match)))
	switch match {
	case "":
		match = MatchAny
	case MatchAny, MatchAll:
	default:
		return compiledRule{}, goerrors.New(fmt.Sprintf("unknown match policy %q", rule.Match), goerrors.CategoryValidation)
	}

	return compiledRule{
		pattern:       rule.Pattern,
		matcher:       matcher,
		roles:         NormalizeRoles(rule.Roles...),
		match:         match,
		authenticated: rule.Authenticated,
	}, nil
}

// Decide returns the verdict for a request to requestPath made by principal,
// which is nil for anonymous requests
func (g *Gate) Decide(requestPath string, principal *Principal) Decision {
	return g.Evaluate(requestPath, principal).Decision
}

// Evaluate is Decide plus the rule that produced the decision
func (g *Gate) Evaluate(requestPath string, principal *Principal) Verdict {
	p := g.CanonicalPath(requestPath)

	for _, rule := range g.rules {
		if rule.matcher.Match(p) {
			return Verdict{
				Decision: rule.decide(principal),
				Pattern:  rule.pattern,
				Matched:  true,
			}
		}
	}

	return Verdict{Decision: g.defaultDecision(principal)}
}

func (g *Gate) defaultDecision(principal *Principal) Decision {
	if g.def == DefaultAllow {
		return DecisionAllow
	}
	if principal == nil {
		return DecisionDenyUnauthenticated
	}
	return DecisionDenyForbidden
}

// CanonicalPath is the form of p the gate matches rules against. It
// collapses dot segments, duplicate and trailing slashes so that "/admin/",
// "//admin" and "/x/../admin" are judged as "/admin". Callers that exempt
// routes from the gate must compare canonical paths too.
func (g *Gate) CanonicalPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = path.Clean("/" + p)
	if g.caseInsensitive {
		p = strings.ToLower(p)
	}
	return p
}

func (r compiledRule) decide(principal *Principal) Decision {
	if len(r.roles) == 0 && !r.authenticated {
		return DecisionAllow
	}

	if principal == nil {
		return DecisionDenyUnauthenticated
	}

	if len(r.roles) == 0 {
		return DecisionAllow
	}

	var ok bool
	if r.match == MatchAll {
		ok = principal.HasAllRoles(r.roles...)
	} else {
		ok = principal.HasAnyRole(r.roles...)
	}

	if !ok {
		return DecisionDenyForbidden
	}
	return DecisionAllow
}
