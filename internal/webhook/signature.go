package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"sort"
	"strings"
)

// ComputeSignature returns the X-Twilio-Signature value for a form POST to
// fullURL: base64(HMAC-SHA1(token, fullURL + each key+value, keys sorted)).
func ComputeSignature(token, fullURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, key := range keys {
		values := append([]string(nil), params[key]...)
		sort.Strings(values)
		for _, value := range values {
			b.WriteString(key)
			b.WriteString(value)
		}
	}

	mac := hmac.New(sha1.New, []byte(token))
	_, _ = mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func validSignature(token, fullURL string, params url.Values, signature string) bool {
	if token == "" || signature == "" {
		return false
	}
	expected := ComputeSignature(token, fullURL, params)
	return hmac.Equal([]byte(expected), []byte(signature))
}
