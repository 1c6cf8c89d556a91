// Package enrich derives structured click signal from raw request metadata.
// Every derivation degrades to an empty or default value instead of failing:
// nothing here may cost a visitor their redirect.
package enrich

import (
	"net/url"
	"strings"

	"github.com/mileusna/useragent"
)

// botTokens is the denylist matched case-insensitively against the agent
// string. It covers generic crawler markers plus the major link-preview
// fetchers.
var botTokens = []string{
	"bot",
	"spider",
	"crawl",
	"slurp",
	"mediapartners",
	"facebookexternalhit",
	"whatsapp",
	"telegram",
	"twitter",
	"linkedinbot",
	"pinterest",
}

// RawRequest carries the headers and connection metadata enrichment reads.
type RawRequest struct {
	UserAgent string
	Referrer  string
	IP        string
	Language  string
	Protocol  string
}

// UTM is the campaign-attribution tuple parsed from the referrer query
// string. Each field is independently optional.
type UTM struct {
	Source   string
	Medium   string
	Campaign string
	Term     string
	Content  string
}

// Signal is the derived view of one request.
type Signal struct {
	Device         string
	BrowserName    string
	BrowserVersion string
	OSName         string
	OSVersion      string
	IsBot          bool
	ReferrerRaw    string
	ReferrerDomain string
	UTM            UTM
	IPAddress      string
	Language       string
	Protocol       string
}

// FromRequest derives the full signal for a request.
func FromRequest(raw RawRequest) Signal {
	ua := useragent.Parse(raw.UserAgent)

	return Signal{
		Device:         ClassifyDevice(deviceHint(ua)),
		BrowserName:    ua.Name,
		BrowserVersion: ua.Version,
		OSName:         ua.OS,
		OSVersion:      ua.OSVersion,
		IsBot:          DetectBot(raw.UserAgent),
		ReferrerRaw:    raw.Referrer,
		ReferrerDomain: ReferrerDomain(raw.Referrer),
		UTM:            ExtractUTM(raw.Referrer),
		IPAddress:      raw.IP,
		Language:       firstLanguage(raw.Language),
		Protocol:       raw.Protocol,
	}
}

// ClassifyDevice maps a parsed device-type hint onto the four device
// classes. An absent hint means a plain browser and defaults to desktop;
// only an unrecognized non-empty hint lands in "other".
func ClassifyDevice(hint string) string {
	switch hint {
	case "mobile":
		return "mobile"
	case "tablet":
		return "tablet"
	case "":
		return "desktop"
	default:
		return "other"
	}
}

// deviceHint reduces the parsed agent to a device-type hint. Bots carry no
// hint of their own and fall through to the desktop default; IsBot tracks
// them separately.
func deviceHint(ua useragent.UserAgent) string {
	switch {
	case ua.Mobile:
		return "mobile"
	case ua.Tablet:
		return "tablet"
	case ua.Desktop:
		return ""
	}
	if d := strings.ToLower(ua.Device); d != "" {
		return d
	}
	return ""
}

// DetectBot reports whether the agent string matches the crawler denylist.
func DetectBot(userAgent string) bool {
	lower := strings.ToLower(userAgent)
	for _, token := range botTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

// ExtractUTM parses utm_* parameters out of the referrer URL's query
// string. A missing or unparsable referrer yields the zero tuple.
func ExtractUTM(referrer string) UTM {
	u, err := url.Parse(referrer)
	if err != nil || u.Host == "" {
		return UTM{}
	}
	q := u.Query()
	return UTM{
		Source:   q.Get("utm_source"),
		Medium:   q.Get("utm_medium"),
		Campaign: q.Get("utm_campaign"),
		Term:     q.Get("utm_term"),
		Content:  q.Get("utm_content"),
	}
}

// ReferrerDomain extracts the referrer URL's hostname, or "" when the value
// is missing or not an absolute URL.
func ReferrerDomain(referrer string) string {
	u, err := url.Parse(referrer)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// firstLanguage keeps only the leading tag of an Accept-Language header.
func firstLanguage(header string) string {
	if header == "" {
		return ""
	}
	lang := strings.SplitN(header, ",", 2)[0]
	return strings.TrimSpace(lang)
}
