// Package classifier decides whether a URL is worth fetching, first from its
// suffix and then from a HEAD probe of its headers.
package classifier

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/webindexer/internal/indexer"
)

// MaxContentLength is the largest advertised body accepted by default.
const MaxContentLength uint64 = 10 * 1024 * 1024

var binaryExtensions = []string{
	".exe", ".apk", ".dmg", ".pkg", ".deb", ".rpm",
	".zip", ".rar", ".7z", ".tar", ".gz", ".bz2",
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".jpg", ".jpeg", ".png", ".gif", ".bmp", ".svg", ".ico",
	".mp3", ".mp4", ".avi", ".mov", ".wmv", ".flv",
	".bin", ".dll", ".so", ".dylib", ".class", ".jar",
}

var textContentTypes = []string{
	"text/html",
	"text/plain",
	"text/xml",
	"application/xml",
	"application/xhtml+xml",
	"text/css",
	"text/javascript",
	"application/json",
	"application/ld+json",
}

// Reason explains a classification decision.
type Reason string

// Classification reasons.
const (
	ReasonAllowed       Reason = "allowed"
	ReasonExtension     Reason = "binary_extension"
	ReasonProbeFailed   Reason = "probe_failed"
	ReasonContentType   Reason = "content_type"
	ReasonContentLength Reason = "content_length"
)

// Decision is the outcome of Classify.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// ShouldFetch reports false when the URL ends in a known binary extension.
// Both the raw URL and its parsed path are checked so a query string cannot
// hide the suffix.
func ShouldFetch(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	if hasBinarySuffix(lower) {
		return false
	}
	if u, err := url.Parse(lower); err == nil && hasBinarySuffix(u.Path) {
		return false
	}
	return true
}

func hasBinarySuffix(s string) bool {
	for _, ext := range binaryExtensions {
		if strings.HasSuffix(s, ext) {
			return true
		}
	}
	return false
}

// ShouldFetchAfterProbe inspects HEAD response headers using the default
// size ceiling. Missing headers are not a rejection.
func ShouldFetchAfterProbe(h http.Header) bool {
	return headerReason(h, MaxContentLength) == ReasonAllowed
}

func headerReason(h http.Header, maxBytes uint64) Reason {
	if ct := h.Get("Content-Type"); ct != "" && !textContentType(ct) {
		return ReasonContentType
	}
	if cl := strings.TrimSpace(h.Get("Content-Length")); cl != "" {
		if n, err := strconv.ParseUint(cl, 10, 64); err == nil && n > maxBytes {
			return ReasonContentLength
		}
	}
	return ReasonAllowed
}

func textContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	for _, prefix := range textContentTypes {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}
	return false
}

// Classifier combines the suffix rule with a HEAD probe.
type Classifier struct {
	prober   indexer.Prober
	maxBytes uint64
	logger   *zap.Logger
}

// New builds a Classifier. A zero maxBytes selects MaxContentLength.
func New(prober indexer.Prober, maxBytes uint64, logger *zap.Logger) *Classifier {
	if maxBytes == 0 {
		maxBytes = MaxContentLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{prober: prober, maxBytes: maxBytes, logger: logger}
}

// Classify rejects binary suffixes without touching the network, then probes
// the URL. A failed probe rejects the URL.
func (c *Classifier) Classify(ctx context.Context, rawURL string) Decision {
	if !ShouldFetch(rawURL) {
		return Decision{Reason: ReasonExtension}
	}
	if c.prober == nil {
		return Decision{Allowed: true, Reason: ReasonAllowed}
	}
	headers, err := c.prober.Probe(ctx, rawURL)
	if err != nil {
		c.logger.Debug("head probe failed", zap.String("url", rawURL), zap.Error(err))
		return Decision{Reason: ReasonProbeFailed}
	}
	reason := headerReason(headers, c.maxBytes)
	return Decision{Allowed: reason == ReasonAllowed, Reason: reason}
}
