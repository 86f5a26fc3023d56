// Package botdetect classifies client User-Agent strings against a
// prioritized signature table. A single request may legitimately match
// several signatures (a specific tool plus the generic bot heuristic);
// callers receive every match, not a deduplicated winner.
package botdetect

import (
	"regexp"
	"strings"
)

// Category labels for a matched signature.
const (
	CategorySearchEngine = "search_engine"
	CategoryCrawler      = "crawler"
	CategorySocialMedia  = "social_media"
	CategorySecurityTool = "security_tool"
	CategoryScanner      = "scanner"
	CategoryMalicious    = "malicious"
	CategoryUnknown      = "unknown"
)

// Detection is one match result of the classifier.
type Detection struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description,omitempty"`
}

// signature is one entry of the ordered table. Pattern may capture a
// version number in group 1, which raises confidence to 0.9. A non-zero
// confidenceOverride wins over both the base and the version bump.
type signature struct {
	name               string
	category           string
	pattern            *regexp.Regexp
	description        string
	confidenceOverride float64
}

const (
	baseConfidence      = 0.7
	versionedConfidence = 0.9
)

var versionRe = regexp.MustCompile(`^\d+(\.\d+)*$`)

// Table order matters: specific engines first, the generic "bot" catch-all
// and regional crawlers last, so overlapping entries co-fire intentionally.
var signatures = []signature{
	// Search engines
	{name: "GoogleBot", category: CategorySearchEngine, pattern: regexp.MustCompile(`(?i)googlebot/?([\d.]+)?`), description: "Google search crawler"},
	{name: "BingBot", category: CategorySearchEngine, pattern: regexp.MustCompile(`(?i)bingbot/?([\d.]+)?`), description: "Microsoft Bing crawler"},
	{name: "DuckDuckBot", category: CategorySearchEngine, pattern: regexp.MustCompile(`(?i)duckduckbot/?([\d.]+)?`), description: "DuckDuckGo crawler"},
	{name: "YandexBot", category: CategorySearchEngine, pattern: regexp.MustCompile(`(?i)yandex(?:bot)?/?([\d.]+)?`), description: "Yandex search crawler"},
	{name: "BaiduSpider", category: CategorySearchEngine, pattern: regexp.MustCompile(`(?i)baiduspider/?([\d.]+)?`), description: "Baidu search crawler"},
	{name: "Applebot", category: CategorySearchEngine, pattern: regexp.MustCompile(`(?i)applebot/?([\d.]+)?`), description: "Apple search crawler"},

	// Social media crawlers
	{name: "FacebookBot", category: CategorySocialMedia, pattern: regexp.MustCompile(`(?i)facebookexternalhit/?([\d.]+)?`), description: "Facebook link preview crawler"},
	{name: "TwitterBot", category: CategorySocialMedia, pattern: regexp.MustCompile(`(?i)twitterbot/?([\d.]+)?`), description: "Twitter/X card crawler"},
	{name: "LinkedInBot", category: CategorySocialMedia, pattern: regexp.MustCompile(`(?i)linkedinbot/?([\d.]+)?`), description: "LinkedIn preview crawler"},
	{name: "TelegramBot", category: CategorySocialMedia, pattern: regexp.MustCompile(`(?i)telegrambot`), description: "Telegram link preview"},
	{name: "WhatsApp", category: CategorySocialMedia, pattern: regexp.MustCompile(`(?i)whatsapp/?([\d.]+)?`), description: "WhatsApp link preview"},

	// Security tools and scanners
	{name: "SQLMap", category: CategoryMalicious, pattern: regexp.MustCompile(`(?i)sqlmap/?([\d.]+)?`), description: "Automated SQL injection tool"},
	{name: "Nikto", category: CategorySecurityTool, pattern: regexp.MustCompile(`(?i)nikto/?([\d.]+)?`), description: "Web server vulnerability scanner"},
	{name: "Nmap", category: CategorySecurityTool, pattern: regexp.MustCompile(`(?i)nmap scripting engine|nmap/?([\d.]+)?`), description: "Network mapper probe"},
	{name: "Masscan", category: CategoryScanner, pattern: regexp.MustCompile(`(?i)masscan/?([\d.]+)?`), description: "Mass IP port scanner"},
	{name: "Nuclei", category: CategoryScanner, pattern: regexp.MustCompile(`(?i)nuclei/?([\d.]+)?`), description: "Template-based vulnerability scanner"},
	{name: "WPScan", category: CategorySecurityTool, pattern: regexp.MustCompile(`(?i)wpscan/?([\d.]+)?`), description: "WordPress vulnerability scanner"},
	{name: "Gobuster", category: CategoryScanner, pattern: regexp.MustCompile(`(?i)gobuster/?([\d.]+)?`), description: "Directory brute-forcer"},
	{name: "ZGrab", category: CategoryScanner, pattern: regexp.MustCompile(`(?i)zgrab/?([\d.]+)?`), description: "Banner grabber"},

	// SEO / aggressive crawlers
	{name: "AhrefsBot", category: CategoryCrawler, pattern: regexp.MustCompile(`(?i)ahrefsbot/?([\d.]+)?`), description: "Ahrefs SEO crawler"},
	{name: "SemrushBot", category: CategoryCrawler, pattern: regexp.MustCompile(`(?i)semrushbot/?([\d.]+)?`), description: "Semrush SEO crawler"},
	{name: "MJ12Bot", category: CategoryCrawler, pattern: regexp.MustCompile(`(?i)mj12bot/?([\d.]+)?`), description: "Majestic SEO crawler"},
	{name: "DotBot", category: CategoryCrawler, pattern: regexp.MustCompile(`(?i)dotbot/?([\d.]+)?`), description: "Moz SEO crawler"},
	{name: "PetalBot", category: CategoryCrawler, pattern: regexp.MustCompile(`(?i)petalbot/?([\d.]+)?`), description: "Huawei Petal crawler"},

	// Generic catch-alls, confidence pinned low regardless of version capture
	{name: "Unknown Bot", category: CategoryUnknown, pattern: regexp.MustCompile(`(?i)bot\b|crawler|spider|scraper/?([\d.]+)?`), description: "Generic bot heuristic", confidenceOverride: 0.5},
	{name: "Headless Client", category: CategoryCrawler, pattern: regexp.MustCompile(`(?i)headlesschrome|phantomjs|python-requests|python-urllib|go-http-client|curl/|wget/|libwww`), description: "Scripted HTTP client"},

	// Region heuristic: engines serving a single regional market, grouped
	// because they co-fire with the generic heuristic above.
	{name: "Regional Crawler", category: CategoryCrawler, pattern: regexp.MustCompile(`(?i)sogou|seznambot|coccocbot|360spider|yisouspider|naverbot|yeti/`), description: "Regional search engine crawler", confidenceOverride: 0.6},
}

// Tokens a real browser User-Agent always carries at least one of.
var browserEngineTokens = []string{
	"Mozilla", "AppleWebKit", "Gecko", "Chrome", "Safari",
	"Firefox", "Edg", "Opera", "Trident", "MSIE",
}

// Detect matches userAgent against the signature table and runs the
// unconditional anomaly checks. It is a total function: an absent
// identifier yields an anomaly-only result, never an error.
func Detect(userAgent string) []Detection {
	detections := []Detection{}

	for _, sig := range signatures {
		m := sig.pattern.FindStringSubmatch(userAgent)
		if m == nil {
			continue
		}
		conf := baseConfidence
		if len(m) > 1 && versionRe.MatchString(m[1]) {
			conf = versionedConfidence
		}
		if sig.confidenceOverride != 0 {
			conf = sig.confidenceOverride
		}
		detections = append(detections, Detection{
			Name:        sig.name,
			Category:    sig.category,
			Confidence:  conf,
			Description: sig.description,
		})
	}

	// Anomaly checks run regardless of signature matches.
	if len(userAgent) < 10 {
		detections = append(detections, Detection{
			Name:        "Suspicious User-Agent",
			Category:    CategoryMalicious,
			Confidence:  0.6,
			Description: "User-Agent shorter than any real browser identifier",
		})
	}
	if userAgent != "" && !hasBrowserEngineToken(userAgent) {
		detections = append(detections, Detection{
			Name:        "Non-Browser Client",
			Category:    CategoryMalicious,
			Confidence:  0.5,
			Description: "User-Agent carries no known browser engine token",
		})
	}

	return detections
}

// IsDangerous reports whether any detection belongs to a category that
// warrants elevated log severity on its own.
func IsDangerous(detections []Detection) bool {
	for _, d := range detections {
		switch d.Category {
		case CategorySecurityTool, CategoryMalicious, CategoryScanner:
			return true
		}
	}
	return false
}

func hasBrowserEngineToken(ua string) bool {
	for _, tok := range browserEngineTokens {
		if strings.Contains(ua, tok) {
			return true
		}
	}
	return false
}
