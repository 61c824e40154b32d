package dto

import (
	"hash/fnv"
	"strconv"
)

// AdBreak is one ad-signaling cue extracted from a polled manifest. It lives
// only for the duration of processing that break.
type AdBreak struct {
	ID           string
	AssetListURL string
}

// AdAsset is a single ad within a break, in asset list order. Field names on
// the wire are upper-case per the HLS interstitials asset list format.
type AdAsset struct {
	URI          string            `json:"URI"`
	Duration     float64           `json:"DURATION"`
	TrackingURLs map[string]string `json:"TRACKING_URLS,omitempty"`
	ID           string            `json:"ID,omitempty"`
}

// AssetList is the decoded X-ASSET-LIST document.
type AssetList struct {
	Assets []AdAsset `json:"ASSETS"`
}

// ResolvedID returns the asset's own ID when the list provided one, otherwise
// an ID derived from the URI.
func (a AdAsset) ResolvedID() string {
	if a.ID != "" {
		return a.ID
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(a.URI))

	return strconv.FormatUint(uint64(h.Sum32()), 10)
}
