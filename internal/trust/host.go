package trust

import "net/url"

// hostOf extracts the hostname from a URL string, returning "" if it
// cannot be parsed or has no host.
func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
