// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package crypto

import "strings"

// MatchAppDomain reports whether appId matches a developer certificate's
// domain glob. Domains use a single trailing "*" wildcard, e.g.
// "com.example.*" matches "com.example.t1" and "com.example" itself, but
// "com.example.*" never matches "com.other".
func MatchAppDomain(glob, appId string) bool {
	if !strings.HasSuffix(glob, "*") {
		return glob == appId
	}
	prefix := strings.TrimSuffix(glob, "*")
	prefix = strings.TrimSuffix(prefix, ".")
	if appId == prefix {
		return true
	}
	return strings.HasPrefix(appId, prefix+".")
}

// MatchAnyAppDomain reports whether appId matches at least one glob in domains.
func MatchAnyAppDomain(domains []string, appId string) bool {
	for _, d := range domains {
		if MatchAppDomain(d, appId) {
			return true
		}
	}
	return false
}
