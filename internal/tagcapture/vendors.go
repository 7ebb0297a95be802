package tagcapture

import "strings"

// Vendor identifies a marketing or analytics provider by a URL substring.
type Vendor struct {
	Pattern  string
	Name     string
	Category string
}

var tagVendors = []Vendor{
	{"google-analytics.com", "Google Analytics", "analytics"},
	{"googletagmanager.com", "Google Tag Manager", "tag_manager"},
	{"connect.facebook.net", "Facebook", "advertising"},
	{"facebook.net", "Facebook Pixel", "advertising"},
	{"bat.bing.com", "Microsoft Advertising", "advertising"},
	{"script.hotjar.com", "Hotjar", "analytics"},
	{"cdn.amplitude.com", "Amplitude", "analytics"},
	{"js.intercomcdn.com", "Intercom", "customer_support"},
	{"cdn.heapanalytics.com", "Heap Analytics", "analytics"},
	{"js.hs-scripts.com", "HubSpot", "marketing"},
	{"snap.licdn.com", "LinkedIn Insight", "advertising"},
	{"cdn.optimizely.com", "Optimizely", "ab_testing"},
	{"cdn.mxpnl.com", "Mixpanel", "analytics"},
	{"clarity.ms", "Microsoft Clarity", "analytics"},
	{"unpkg.com/tealium", "Tealium (unpkg)", "tag_manager"},
	{"tags.tiqcdn.com", "Tealium iQ", "tag_manager"},
	{"collect.tealiumiq.com", "Tealium Collect", "tag_manager"},
	{"sentry", "Sentry", "error_tracking"},
	{"fullstory.com", "FullStory", "session_recording"},
	{"static.klaviyo.com", "Klaviyo", "email_marketing"},
	{"static.ads-twitter.com", "Twitter Ads", "advertising"},
	{"d.adroll.com", "AdRoll", "advertising"},
	{"secure.adnxs.com", "AppNexus", "advertising"},
	{"secure.quantserve.com", "Quantcast", "analytics"},
	{"cdn.segment.com", "Segment", "customer_data_platform"},
	{"static.criteo.net", "Criteo", "advertising"},
	{"static.scrollstack.com", "Scroll", "content"},
	{"cdn.attn.tv", "ATTN", "advertising"},
	{"analytics.tiktok.com", "TikTok Analytics", "advertising"},
	{"sc-static.net", "Snapchat Pixel", "advertising"},
	{"googleadservices.com", "Google Ads", "advertising"},
	{"doubleclick.net", "Google DoubleClick", "advertising"},
	{"js.driftt.com", "Drift", "customer_support"},
	{"log.outbrain.com", "Outbrain", "advertising"},
	{"cdn.taboola.com", "Taboola", "advertising"},
	{"moatads", "Moat", "advertising"},
	{"chartbeat", "Chartbeat", "analytics"},
	{"pardot", "Pardot", "marketing"},
	{"marketo", "Marketo", "marketing"},
	{"bizible", "Bizible", "marketing"},
	{"demdex.net", "Adobe Audience Manager", "dmp"},
	{"omtrdc.net", "Adobe Experience Cloud", "analytics"},
}

// VendorObject identifies a provider by a global JS object it installs.
type VendorObject struct {
	Object   string
	Name     string
	Category string
}

var globalVendorObjects = []VendorObject{
	{"ga", "Google Analytics", "analytics"},
	{"gtag", "Google Tags", "analytics"},
	{"fbq", "Facebook Pixel", "advertising"},
	{"hj", "Hotjar", "analytics"},
	{"pintrk", "Pinterest Tag", "advertising"},
	{"snaptr", "Snapchat Pixel", "advertising"},
	{"ttq", "TikTok Pixel", "advertising"},
	{"clarity", "Microsoft Clarity", "analytics"},
	{"amplitude", "Amplitude", "analytics"},
	{"heap", "Heap Analytics", "analytics"},
	{"mixpanel", "Mixpanel", "analytics"},
	{"_hsq", "HubSpot", "marketing"},
	{"Intercom", "Intercom", "customer_support"},
	{"pendo", "Pendo", "analytics"},
	{"optimizely", "Optimizely", "ab_testing"},
	{"adobe.target", "Adobe Target", "ab_testing"},
	{"s_c_il", "Adobe Analytics", "analytics"},
	{"s", "Adobe Analytics", "analytics"},
	{"Kissmetrics", "Kissmetrics", "analytics"},
	{"Mparticle", "mParticle", "customer_data_platform"},
	{"Bugsnag", "Bugsnag", "error_tracking"},
	{"LogRocket", "LogRocket", "session_recording"},
	{"FS", "FullStory", "session_recording"},
	{"Rollbar", "Rollbar", "error_tracking"},
	{"Sentry", "Sentry", "error_tracking"},
	{"_kmq", "Klaviyo", "email_marketing"},
	{"criteo_q", "Criteo", "advertising"},
	{"__adroll", "AdRoll", "advertising"},
}

// MatchVendor returns the vendor whose pattern appears in the URL, if any.
// Patterns match case-insensitively; first match wins.
func MatchVendor(url string) (Vendor, bool) {
	lower := strings.ToLower(url)
	for _, v := range tagVendors {
		if strings.Contains(lower, v.Pattern) {
			return v, true
		}
	}
	return Vendor{}, false
}

// Vendors returns the full URL pattern table.
func Vendors() []Vendor {
	out := make([]Vendor, len(tagVendors))
	copy(out, tagVendors)
	return out
}

// GlobalVendorObjects returns the table of vendor globals probed on pages.
func GlobalVendorObjects() []VendorObject {
	out := make([]VendorObject, len(globalVendorObjects))
	copy(out, globalVendorObjects)
	return out
}
