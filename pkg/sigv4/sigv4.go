// Package sigv4 implements AWS Signature Version 4 request signing as a set
// of pure functions: canonical request, string to sign, derived signing key,
// and the final authorization header. It carries no state beyond the
// credentials held by Signer, so each step is independently testable against
// the signature examples AWS publishes.
package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Algorithm is the signing algorithm identifier used in the string to sign
// and the authorization header.
const Algorithm = "AWS4-HMAC-SHA256"

// TimeFormat is the X-Amz-Date timestamp layout.
const TimeFormat = "20060102T150405Z"

// DateFormat is the credential-scope date layout.
const DateFormat = "20060102"

// CredentialScope is the date/region/service triple that scopes a signature.
type CredentialScope struct {
	Date    string // YYYYMMDD
	Region  string
	Service string
}

// String renders the scope as used in the string to sign and the
// authorization header credential.
func (s CredentialScope) String() string {
	return s.Date + "/" + s.Region + "/" + s.Service + "/aws4_request"
}

// HashPayload returns the lowercase hex SHA-256 of the request payload.
// A nil payload hashes like an empty one.
func HashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// CanonicalQuery renders query parameters in canonical form: keys sorted,
// RFC 3986 percent-encoding (spaces as %20, not +).
func CanonicalQuery(query url.Values) string {
	if len(query) == 0 {
		return ""
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		vs := append([]string(nil), query[k]...)
		sort.Strings(vs)
		for _, v := range vs {
			parts = append(parts, escape(k)+"="+escape(v))
		}
	}
	return strings.Join(parts, "&")
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// CanonicalRequest assembles the canonical request string. Header names in
// signedHeaders are matched case-insensitively against the headers map;
// values are trimmed. The signedHeaders slice is sorted in place.
func CanonicalRequest(
	method string,
	uri string,
	query url.Values,
	headers map[string]string,
	signedHeaders []string,
	payloadHash string,
) string {
	lower := make(map[string]string, len(headers))
	for k, v := range headers {
		lower[strings.ToLower(k)] = strings.TrimSpace(v)
	}

	for i, h := range signedHeaders {
		signedHeaders[i] = strings.ToLower(h)
	}
	sort.Strings(signedHeaders)

	if uri == "" {
		uri = "/"
	}

	var b strings.Builder
	b.WriteString(method)
	b.WriteByte('\n')
	b.WriteString(uri)
	b.WriteByte('\n')
	b.WriteString(CanonicalQuery(query))
	b.WriteByte('\n')
	for _, h := range signedHeaders {
		b.WriteString(h)
		b.WriteByte(':')
		b.WriteString(lower[h])
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(strings.Join(signedHeaders, ";"))
	b.WriteByte('\n')
	b.WriteString(payloadHash)
	return b.String()
}

// StringToSign builds the string to sign from the request timestamp, the
// credential scope, and the canonical request.
func StringToSign(t time.Time, scope CredentialScope, canonicalRequest string) string {
	return Algorithm + "\n" +
		t.UTC().Format(TimeFormat) + "\n" +
		scope.String() + "\n" +
		HashPayload([]byte(canonicalRequest))
}

// DerivedKey derives the signing key via the four chained HMAC-SHA256
// operations seeded from the secret key.
func DerivedKey(secret string, scope CredentialScope) []byte {
	k := hmacSHA256([]byte("AWS4"+secret), scope.Date)
	k = hmacSHA256(k, scope.Region)
	k = hmacSHA256(k, scope.Service)
	return hmacSHA256(k, "aws4_request")
}

// Signature computes the final lowercase hex signature.
func Signature(key []byte, stringToSign string) string {
	return hex.EncodeToString(hmacSHA256(key, stringToSign))
}

// AuthorizationHeader assembles the Authorization header value. The
// signedHeaders slice must already be sorted and lowercase, as returned
// from CanonicalRequest's in-place normalization.
func AuthorizationHeader(
	accessKey string,
	scope CredentialScope,
	signedHeaders []string,
	signature string,
) string {
	return Algorithm +
		" Credential=" + accessKey + "/" + scope.String() +
		", SignedHeaders=" + strings.Join(signedHeaders, ";") +
		", Signature=" + signature
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

// Signer signs HTTP requests for one service in one region.
type Signer struct {
	AccessKey string
	SecretKey string
	Region    string
	Service   string

	nowFunc func() time.Time
}

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithNowFunc overrides the time source for testing.
func WithNowFunc(f func() time.Time) SignerOption {
	return func(s *Signer) {
		s.nowFunc = f
	}
}

// NewSigner creates a Signer for the given credentials, region and service.
func NewSigner(accessKey, secretKey, region, service string, opts ...SignerOption) *Signer {
	s := &Signer{
		AccessKey: accessKey,
		SecretKey: secretKey,
		Region:    region,
		Service:   service,
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sign sets X-Amz-Date and Authorization on req. All headers already present
// on the request are signed, plus host and x-amz-date.
func (s *Signer) Sign(req *http.Request, payload []byte) {
	now := s.nowFunc().UTC()
	amzDate := now.Format(TimeFormat)
	req.Header.Set("X-Amz-Date", amzDate)

	host := req.Host
	if host == "" {
		host = req.URL.Host
	}

	headers := map[string]string{"host": host}
	signedHeaders := []string{"host"}
	for name := range req.Header {
		headers[strings.ToLower(name)] = req.Header.Get(name)
		signedHeaders = append(signedHeaders, strings.ToLower(name))
	}

	scope := CredentialScope{
		Date:    now.Format(DateFormat),
		Region:  s.Region,
		Service: s.Service,
	}

	canonical := CanonicalRequest(
		req.Method,
		req.URL.EscapedPath(),
		req.URL.Query(),
		headers,
		signedHeaders,
		HashPayload(payload),
	)

	sig := Signature(DerivedKey(s.SecretKey, scope), StringToSign(now, scope, canonical))
	req.Header.Set("Authorization", AuthorizationHeader(s.AccessKey, scope, signedHeaders, sig))
}
