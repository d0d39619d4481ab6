package export

// DefaultAllow is used when no Allow value is supplied.
const DefaultAllow = "/"

// ToRobotsText fills the robots.txt template. Empty allow becomes "/";
// empty disallow and sitemap stay empty.
func ToRobotsText(allow, disallow, sitemapURL string) string {
	if allow == "" {
		allow = DefaultAllow
	}
	return "User-agent: *\n" +
		"Allow: " + allow + "\n" +
		"Disallow: " + disallow + "\n" +
		"\n" +
		"Sitemap: " + sitemapURL
}
