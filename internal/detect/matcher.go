package detect

import (
	"context"
	"fmt"
	"strings"

	"github.com/reachforge/puppet/internal/browser"
)

// Text matches are considered more reliable than structural ones: a phrase
// in the rendered page is harder to misread than a selector hit, so every
// text matcher contributes this fixed confidence.
const textMatchConfidence = 0.98

// Matcher is one check contributing evidence toward a detection type.
// Implementations are the two variants below; a detection type is an
// ordered list of them.
type Matcher interface {
	// Match evaluates against the live session. pageText is the page's
	// visible text, fetched and lowercased once per scan pass and shared
	// across matchers.
	Match(ctx context.Context, s browser.Session, pageText string) (bool, error)
	Confidence() float64
	Describe() string
}

// Structural checks for a visible element matching a selector. Confidence
// varies per selector: exact platform test ids score higher than generic
// class-name heuristics.
type Structural struct {
	Selector string
	Score    float64
}

func (m Structural) Match(ctx context.Context, s browser.Session, _ string) (bool, error) {
	return s.ElementVisible(ctx, m.Selector)
}

func (m Structural) Confidence() float64 { return m.Score }

func (m Structural) Describe() string { return fmt.Sprintf("selector:%s", m.Selector) }

// TextContains checks for a phrase in the page's visible text.
type TextContains struct {
	Phrase string
}

func (m TextContains) Match(_ context.Context, _ browser.Session, pageText string) (bool, error) {
	return strings.Contains(pageText, strings.ToLower(m.Phrase)), nil
}

func (m TextContains) Confidence() float64 { return textMatchConfidence }

func (m TextContains) Describe() string { return fmt.Sprintf("text:%q", m.Phrase) }
