package tagcapture

import (
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"strings"
)

// DecodePayload extracts a structured payload from a vendor request. POST
// bodies are tried as JSON, form encoding, then multipart; requests with
// no body fall back to the URL query string, which is how GET beacons like
// the Tealium i.gif carry their data.
func DecodePayload(postData, mimeType, requestURL string) map[string]interface{} {
	if postData != "" {
		if payload := decodeBody(postData, mimeType); len(payload) > 0 {
			return payload
		}
	}
	return decodeQuery(requestURL)
}

func decodeBody(body, mimeType string) map[string]interface{} {
	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = ""
	}

	switch {
	case strings.Contains(mediaType, "json"):
		return decodeJSON(body)
	case mediaType == "application/x-www-form-urlencoded":
		return decodeForm(body)
	case strings.HasPrefix(mediaType, "multipart/"):
		return decodeMultipart(body, params["boundary"])
	}

	// Beacons frequently omit or lie about the content type.
	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return decodeJSON(trimmed)
	}
	if strings.Contains(body, "=") {
		return decodeForm(body)
	}
	return map[string]interface{}{"raw": body}
}

func decodeJSON(body string) map[string]interface{} {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(body), &obj); err == nil {
		return obj
	}
	var arr []interface{}
	if err := json.Unmarshal([]byte(body), &arr); err == nil {
		return map[string]interface{}{"events": arr}
	}
	return nil
}

func decodeForm(body string) map[string]interface{} {
	values, err := url.ParseQuery(body)
	if err != nil || len(values) == 0 {
		return nil
	}
	return flattenValues(values)
}

func decodeMultipart(body, boundary string) map[string]interface{} {
	if boundary == "" {
		return nil
	}
	reader := multipart.NewReader(strings.NewReader(body), boundary)
	payload := map[string]interface{}{}
	for {
		part, err := reader.NextPart()
		if err != nil {
			break
		}
		name := part.FormName()
		if name == "" {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(part, 1<<16))
		if err != nil {
			continue
		}
		payload[name] = string(data)
	}
	if len(payload) == 0 {
		return nil
	}
	return payload
}

func decodeQuery(requestURL string) map[string]interface{} {
	u, err := url.Parse(requestURL)
	if err != nil {
		return nil
	}
	values := u.Query()
	if len(values) == 0 {
		return nil
	}
	return flattenValues(values)
}

func flattenValues(values url.Values) map[string]interface{} {
	payload := make(map[string]interface{}, len(values))
	for key, vals := range values {
		if len(vals) == 1 {
			payload[key] = vals[0]
		} else {
			payload[key] = vals
		}
	}
	return payload
}
