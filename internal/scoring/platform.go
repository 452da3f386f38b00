package scoring

import "strings"

// PlatformBonus is computed for known app-hosting platforms but never added
// to the final score; detection only sets the hosting provider.
const PlatformBonus = 10

var hostedPlatforms = []struct {
	suffix string
	name   string
}{
	{"netlify.app", "Netlify"},
	{"vercel.app", "Vercel"},
	{"github.io", "GitHub Pages"},
	{"herokuapp.com", "Heroku"},
}

// HostedPlatform matches host against the app-hosting allow-list by substring.
func HostedPlatform(host string) (string, bool) {
	for _, p := range hostedPlatforms {
		if strings.Contains(host, p.suffix) {
			return p.name, true
		}
	}
	return "", false
}
