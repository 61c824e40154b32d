package cues

import (
	"net/url"
	"strings"

	"adsplice/app/dto"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"
	"github.com/elliotchance/pie/v2"
	"github.com/google/uuid"
)

const (
	daterangeTag = "#EXT-X-DATERANGE"
	streamInfTag = "#EXT-X-STREAM-INF"
)

// Extract scans manifest text for ad-signaling DATERANGE cues and returns one
// AdBreak per line carrying an X-ASSET-LIST attribute. Lines without an asset
// list signal no ad and are skipped; a missing ID never aborts processing, a
// fresh identifier is synthesized instead.
func Extract(manifest string, baseURL string, loopbackRewriteHost string) []dto.AdBreak {
	lines := pie.Filter(strings.Split(manifest, "\n"), func(line string) bool {
		return strings.TrimSpace(line) != ""
	})

	var result []dto.AdBreak
	var lastBreakID string

	for _, line := range lines {
		if strings.HasPrefix(line, daterangeTag) {
			lastBreakID = attrValue(line, "ID")
		} else if !strings.HasPrefix(line, streamInfTag) {
			continue
		}

		assetListURL := attrValue(line, "X-ASSET-LIST")
		if assetListURL == "" {
			continue
		}

		breakID := lastBreakID
		if breakID == "" {
			breakID = uuid.NewString()
		}

		resolved := ResolveURL(baseURL, assetListURL)
		resolved = RewriteLoopback(resolved, loopbackRewriteHost)

		result = append(result, dto.AdBreak{
			ID:           breakID,
			AssetListURL: resolved,
		})
	}

	return result
}

// HasAdMarkers reports whether the manifest needs the multivariant detour:
// either it opens with a DATERANGE cue or it is a multivariant playlist whose
// rendition manifest has to be fetched before cue extraction.
func HasAdMarkers(manifest string) bool {
	return strings.HasPrefix(manifest, daterangeTag) || strings.Contains(manifest, streamInfTag)
}

// VariantURI returns the rendition manifest URL of a multivariant playlist,
// resolved against its own fetch URL. gohlslib does the parsing; manifests it
// rejects fall back to taking the line after the first stream-variant marker.
func VariantURI(manifest string, baseURL string) string {
	if pl, err := playlist.Unmarshal([]byte(manifest)); err == nil {
		if mv, ok := pl.(*playlist.Multivariant); ok && len(mv.Variants) > 0 {
			return ResolveURL(baseURL, mv.Variants[0].URI)
		}
	}

	lines := strings.Split(manifest, "\n")
	for i, line := range lines {
		if !strings.HasPrefix(line, streamInfTag) && !strings.HasPrefix(line, daterangeTag) {
			continue
		}
		if i+1 >= len(lines) {
			return ""
		}

		return ResolveURL(baseURL, strings.TrimSpace(lines[i+1]))
	}

	return ""
}

// MediaURI picks the playable media URI out of an ad's own manifest: the
// first line beginning with a secure-transport URL.
func MediaURI(adManifest string) string {
	for _, line := range strings.Split(adManifest, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "https://") {
			return trimmed
		}
	}

	return ""
}

// ResolveURL resolves ref against base with standard base-path resolution.
func ResolveURL(base string, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		if idx := strings.LastIndex(base, "/"); idx >= 0 {
			return base[:idx+1] + ref
		}
		return ref
	}

	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}

	return baseURL.ResolveReference(refURL).String()
}

// RewriteLoopback rewrites a `localhost` host to the loopback address
// reachable from the runtime environment. Empty rewriteHost disables it.
func RewriteLoopback(rawURL string, rewriteHost string) string {
	if rewriteHost == "" {
		return rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() != "localhost" {
		return rawURL
	}

	if port := parsed.Port(); port != "" {
		parsed.Host = rewriteHost + ":" + port
	} else {
		parsed.Host = rewriteHost
	}

	return parsed.String()
}

// attrValue searches a tag line's comma-separated attribute list for
// name="value" and returns value, or "" when absent.
func attrValue(line string, name string) string {
	attrs := strings.Split(line, ",")
	for _, attr := range attrs {
		idx := strings.Index(attr, name+"=\"")
		if idx < 0 {
			continue
		}
		// Reject longer attribute names that merely end with `name`
		// (X-ASSET-LIST must not match LIST).
		if idx > 0 && attr[idx-1] != ':' && attr[idx-1] != ' ' {
			continue
		}

		rest := attr[idx+len(name)+2:]
		end := strings.Index(rest, "\"")
		if end < 0 {
			return rest
		}

		return rest[:end]
	}

	return ""
}
