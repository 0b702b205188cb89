// Package extract is the contract with the inference backend that turns
// talent text into effect descriptors, plus an HTTP client for it.
package extract

import (
	"context"
	"encoding/hex"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/unicode/norm"

	"github.com/WakuwakuP/stellasora-tools-sub001/internal/effect"
)

// ErrExtractionFailed marks a failed extraction, as opposed to a successful
// extraction that found zero effects.
var ErrExtractionFailed = errors.New("extraction failed")

// SubjectContext describes the character a talent belongs to.
type SubjectContext struct {
	Name       string `json:"name"`
	ElementTag string `json:"elementTag"`
}

// Request is one extraction call.
type Request struct {
	// DescriptionText may contain 1-based positional placeholders: {1}, {2}, ...
	DescriptionText string
	Params          []string
	Subject         *SubjectContext
}

// Extractor converts talent text into descriptors. A nil error with an empty
// slice means the text carries no effects.
type Extractor interface {
	Extract(ctx context.Context, req Request) ([]effect.Descriptor, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, req Request) ([]effect.Descriptor, error)

func (f ExtractorFunc) Extract(ctx context.Context, req Request) ([]effect.Descriptor, error) {
	return f(ctx, req)
}

var placeholder = regexp.MustCompile(`\{(\d+)\}`)

// Expand returns the NFKC-normalized description with placeholders replaced
// by their parameters. Placeholders without a parameter are left as written.
func (r Request) Expand() string {
	text := norm.NFKC.String(r.DescriptionText)
	return placeholder.ReplaceAllStringFunc(text, func(tok string) string {
		n, err := strconv.Atoi(tok[1 : len(tok)-1])
		if err != nil || n < 1 || n > len(r.Params) {
			return tok
		}
		return norm.NFKC.String(r.Params[n-1])
	})
}

// Fingerprint identifies the request content. Two requests with the same
// fingerprint extract to the same descriptors.
func (r Request) Fingerprint() string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(norm.NFKC.String(r.DescriptionText)))
	for _, p := range r.Params {
		h.Write([]byte{0})
		h.Write([]byte(norm.NFKC.String(p)))
	}
	if r.Subject != nil {
		h.Write([]byte{1})
		h.Write([]byte(strings.TrimSpace(r.Subject.Name)))
		h.Write([]byte{0})
		h.Write([]byte(strings.TrimSpace(r.Subject.ElementTag)))
	}
	return hex.EncodeToString(h.Sum(nil))
}
