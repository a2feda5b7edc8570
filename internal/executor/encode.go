package executor

import (
	"bytes"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// HeaderValue looks up name case-insensitively.
func HeaderValue(headers map[string]string, name string) (string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// EncodeBody serializes the caller's JSON body for the wire.
//
//   - form content type + JSON object: url-encoded pairs
//   - non-JSON content type + JSON string: the string itself
//   - anything else: compact JSON
//
// contentType is non-empty only when the caller declared none and the
// executor should set one.
func EncodeBody(body json.RawMessage, headers map[string]string) (wire []byte, contentType string) {
	trimmed := bytes.TrimSpace(body)
	declared, ok := HeaderValue(headers, "Content-Type")
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(declared, ";")[0]))

	if !ok || mediaType == "" {
		return compact(trimmed), contentTypeJSON
	}

	switch {
	case mediaType == contentTypeForm && len(trimmed) > 0 && trimmed[0] == '{':
		if form, ok := encodeForm(trimmed); ok {
			return form, ""
		}
	case !isJSONMediaType(mediaType) && len(trimmed) > 0 && trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return []byte(s), ""
		}
	}

	return compact(trimmed), ""
}

func isJSONMediaType(mt string) bool {
	return mt == contentTypeJSON || strings.HasSuffix(mt, "+json")
}

func compact(body []byte) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return body
	}
	return buf.Bytes()
}

// encodeForm flattens one level of object. Non-string values keep their JSON text.
func encodeForm(body []byte) ([]byte, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, false
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		raw := bytes.TrimSpace(fields[k])
		var s string
		if len(raw) > 0 && raw[0] == '"' && json.Unmarshal(raw, &s) == nil {
			values.Add(k, s)
			continue
		}
		if string(raw) == "null" {
			values.Add(k, "")
			continue
		}
		values.Add(k, string(compact(raw)))
	}
	return []byte(values.Encode()), true
}
