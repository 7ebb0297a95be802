package tagcapture

import (
	"testing"
)

func TestDecodePayloadJSON(t *testing.T) {
	payload := DecodePayload(`{"tealium_event":"cart_add","product_id":["9780593"]}`,
		"application/json", "https://collect.tealiumiq.com/event")
	if payload["tealium_event"] != "cart_add" {
		t.Fatalf("JSON body not decoded: %v", payload)
	}
}

func TestDecodePayloadJSONArray(t *testing.T) {
	payload := DecodePayload(`[{"en":"page_view"}]`, "application/json", "https://example.com")
	events, ok := payload["events"].([]interface{})
	if !ok || len(events) != 1 {
		t.Fatalf("top-level array should be wrapped under events: %v", payload)
	}
}

func TestDecodePayloadForm(t *testing.T) {
	payload := DecodePayload("v=2&tid=G-123&en=add_to_cart",
		"application/x-www-form-urlencoded", "https://www.google-analytics.com/g/collect")
	if payload["en"] != "add_to_cart" || payload["tid"] != "G-123" {
		t.Fatalf("form body not decoded: %v", payload)
	}
}

func TestDecodePayloadSniffsMislabeledJSON(t *testing.T) {
	payload := DecodePayload(`{"ev":"click"}`, "text/plain", "https://example.com")
	if payload["ev"] != "click" {
		t.Fatalf("mislabeled JSON body not decoded: %v", payload)
	}
}

func TestDecodePayloadQueryFallback(t *testing.T) {
	payload := DecodePayload("", "",
		"https://collect.tealiumiq.com/i.gif?tealium_event=link&page_type=pdp")
	if payload["tealium_event"] != "link" || payload["page_type"] != "pdp" {
		t.Fatalf("query string not decoded: %v", payload)
	}
}

func TestDecodePayloadRepeatedQueryKeys(t *testing.T) {
	payload := DecodePayload("", "", "https://example.com/t?item=a&item=b")
	items, ok := payload["item"].([]string)
	if !ok || len(items) != 2 {
		t.Fatalf("repeated keys should collect into a slice: %v", payload)
	}
}

func TestMatchVendor(t *testing.T) {
	cases := []struct {
		url    string
		name   string
		wantOK bool
	}{
		{"https://tags.tiqcdn.com/utag/acct/main/prod/utag.js", "Tealium iQ", true},
		{"https://collect.tealiumiq.com/event", "Tealium Collect", true},
		{"https://WWW.GOOGLE-ANALYTICS.COM/g/collect", "Google Analytics", true},
		{"https://connect.facebook.net/en_US/fbevents.js", "Facebook", true},
		{"https://www.facebook.net/tr?id=123", "Facebook Pixel", true},
		{"https://static.doubleclick.net/instream/ad_status.js", "Google DoubleClick", true},
		{"https://example.com/assets/app.js", "", false},
	}
	for _, tc := range cases {
		vendor, ok := MatchVendor(tc.url)
		if ok != tc.wantOK {
			t.Errorf("MatchVendor(%q) ok = %v, want %v", tc.url, ok, tc.wantOK)
			continue
		}
		if ok && vendor.Name != tc.name {
			t.Errorf("MatchVendor(%q) = %q, want %q", tc.url, vendor.Name, tc.name)
		}
	}
}
