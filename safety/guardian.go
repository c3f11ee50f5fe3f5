// Package safety implements the content safety gate: the deny-list
// prefilter plus the safe-word and exit-keyword checks. Everything here is
// cheap, offline and unconditionally available; these are privacy and
// consent controls that must keep working when every model backend is down.
package safety

import (
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/avachat/ava/logging"
)

// PolicyViolationReason is the generic reason surfaced on a deny-list match.
// Deny-list contents are never echoed back to the caller.
const PolicyViolationReason = "Content policy violation"

// FilterResult is the outcome of a prefilter check.
type FilterResult struct {
	Blocked bool
	Reason  string
}

// Options configure a Guardian.
type Options struct {
	// DenyList holds lowercase substrings that block a message outright.
	DenyList []string
	// ExitKeywords are the default phrases that leave companion mode when
	// the profile has no per-user exit word configured.
	ExitKeywords []string
	// SafeWordMaxWords bounds the inputs considered for the safe-word
	// check; longer messages are never compared (cost and false-positive
	// control, bcrypt verification is not free).
	SafeWordMaxWords int
	Logger           logging.Logger
}

// Guardian runs the safety gate. It is immutable after construction and safe
// for concurrent use.
type Guardian struct {
	denyList         []string
	exitKeywords     []string
	safeWordMaxWords int
	logger           logging.Logger
}

// New constructs a Guardian.
func New(optFns ...func(o *Options)) *Guardian {
	opts := Options{
		ExitKeywords:     []string{"exit her", "back to jarvis", "stop"},
		SafeWordMaxWords: 5,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	deny := make([]string, len(opts.DenyList))
	for i, kw := range opts.DenyList {
		deny[i] = strings.ToLower(kw)
	}
	exit := make([]string, len(opts.ExitKeywords))
	for i, kw := range opts.ExitKeywords {
		exit[i] = strings.ToLower(kw)
	}
	return &Guardian{
		denyList:         deny,
		exitKeywords:     exit,
		safeWordMaxWords: opts.SafeWordMaxWords,
		logger:           logging.OrNoOp(opts.Logger),
	}
}

// Prefilter checks text against the deny list. First match blocks with the
// generic policy reason. Runs synchronously before any persona-specific
// logic or external call.
func (g *Guardian) Prefilter(text string) FilterResult {
	normalized := strings.ToLower(strings.TrimSpace(text))
	for _, keyword := range g.denyList {
		if keyword != "" && strings.Contains(normalized, keyword) {
			g.logger.Info("prefilter blocked message")
			return FilterResult{Blocked: true, Reason: PolicyViolationReason}
		}
	}
	return FilterResult{Blocked: false}
}

// HashSafeWord hashes a safe word for storage on the profile. The plaintext
// is never persisted.
func HashSafeWord(safeWord string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(normalizeSafeWord(safeWord)), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// IsSafeWord reports whether the message is exactly the user's safe word.
// Messages longer than the configured word count are rejected without
// touching bcrypt. Comparison is case-insensitive after trimming.
func (g *Guardian) IsSafeWord(text, safeWordHash string) bool {
	if safeWordHash == "" {
		return false
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || len(strings.Fields(trimmed)) > g.safeWordMaxWords {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(safeWordHash), []byte(normalizeSafeWord(trimmed)))
	return err == nil
}

// IsExitKeyword reports whether the message asks to leave companion mode.
// A per-user exit word, when configured, replaces the default list. Only
// consulted by the loop while companion mode is active.
func (g *Guardian) IsExitKeyword(text, userExitWord string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return false
	}
	if userExitWord != "" {
		return strings.Contains(normalized, strings.ToLower(strings.TrimSpace(userExitWord)))
	}
	for _, kw := range g.exitKeywords {
		if kw != "" && strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

func normalizeSafeWord(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
