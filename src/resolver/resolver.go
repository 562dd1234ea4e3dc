// Package resolver maps pull requests onto SIMD identifiers.
package resolver

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// Placeholder is the filename prefix authors use before a number is assigned.
const Placeholder = "XXXX-"

var (
	fileToken    = regexp.MustCompile(`(\d{4})`)
	titleToken   = regexp.MustCompile(`(?i)SIMD[-\s:]*(\d{4})\b`)
	titleNumber  = regexp.MustCompile(`(?i)SIMD[-\s:]*(\d+)\b`)
	placeholders = regexp.MustCompile(`(?i)x{4}-`)
)

// File is a path touched by a pull request and its blob sha at the PR head.
type File struct {
	Path string
	SHA  string
}

// PullRequest is the resolver's view of a PR.
type PullRequest struct {
	Number int
	Title  string
	Files  []File
}

// Method records which rule produced a resolution.
type Method string

const (
	MethodFile        Method = "file"
	MethodPlaceholder Method = "placeholder"
	MethodTitle       Method = "title"
	MethodSelfRef     Method = "self-reference"
)

// Result is a successful resolution. ProposalFile is set when a proposal
// document in the PR determined the id.
type Result struct {
	SIMDID       string
	Method       Method
	ProposalFile *File
}

// Rule is one resolution strategy. Rules are tried in order; the first match wins.
type Rule func(PullRequest) (Result, bool)

// Resolver applies an ordered rule list.
type Resolver struct {
	rules []Rule
}

// New returns a resolver with the standard rule order: proposal files under
// dir with extension ext, then a 4-digit SIMD title token, then a title token
// that refers to the PR's own number.
func New(dir, ext string) *Resolver {
	return &Resolver{rules: []Rule{
		FileRule(dir, ext),
		TitleRule,
		SelfReferenceRule,
	}}
}

// NewWithRules returns a resolver using rules as given.
func NewWithRules(rules ...Rule) *Resolver {
	return &Resolver{rules: rules}
}

// Resolve returns the first rule's result, or false when no rule matches.
func (r *Resolver) Resolve(pr PullRequest) (Result, bool) {
	for _, rule := range r.rules {
		if res, ok := rule(pr); ok {
			return res, true
		}
	}
	return Result{}, false
}

// FormatID zero-pads n to the canonical 4-digit form.
func FormatID(n int) string {
	return fmt.Sprintf("%04d", n)
}

// FileRule matches the first file under dir with extension ext whose name
// carries a placeholder prefix (id taken from the PR number) or a 4-digit token.
func FileRule(dir, ext string) Rule {
	prefix := strings.Trim(dir, "/") + "/"
	return func(pr PullRequest) (Result, bool) {
		for i := range pr.Files {
			f := pr.Files[i]
			if !strings.HasPrefix(f.Path, prefix) || !strings.HasSuffix(f.Path, ext) {
				continue
			}
			name := path.Base(f.Path)
			if placeholders.MatchString(name) {
				return Result{SIMDID: FormatID(pr.Number), Method: MethodPlaceholder, ProposalFile: &f}, true
			}
			if id, ok := ExtractID(name); ok {
				return Result{SIMDID: id, Method: MethodFile, ProposalFile: &f}, true
			}
		}
		return Result{}, false
	}
}

// TitleRule matches "SIMD-nnnn", "SIMD nnnn" or "SIMD: nnnn" in the title.
func TitleRule(pr PullRequest) (Result, bool) {
	if id, ok := MatchTitleID(pr.Title); ok {
		return Result{SIMDID: id, Method: MethodTitle}, true
	}
	return Result{}, false
}

// SelfReferenceRule matches a title token whose number equals the PR number,
// such as "SIMD-555" on PR #555.
func SelfReferenceRule(pr PullRequest) (Result, bool) {
	for _, m := range titleNumber.FindAllStringSubmatch(pr.Title, -1) {
		n, err := strconv.Atoi(m[1])
		if err == nil && n == pr.Number {
			return Result{SIMDID: FormatID(pr.Number), Method: MethodSelfRef}, true
		}
	}
	return Result{}, false
}

// ExtractID returns the first 4-digit token of a filename.
func ExtractID(name string) (string, bool) {
	m := fileToken.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// MatchTitleID returns the 4-digit id of the first SIMD token in text.
func MatchTitleID(text string) (string, bool) {
	m := titleToken.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}
