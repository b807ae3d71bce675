package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "bearer "

var (
	errTokenEmpty     = errors.New("token is empty")
	errTokenMalformed = errors.New("token must have three segments")
	errPayloadUTF8    = errors.New("token payload is not valid utf-8")
	errUserIDMissing  = errors.New("token payload has no userId")
)

// segmentDecoder decodes URL-safe base64 with or without padding.
var segmentDecoder = jwt.NewParser(jwt.WithPaddingAllowed())

// ParseClaims decodes the payload segment of a bearer token without verifying
// its signature. The client never holds the signing secret; the server stays
// the authority and rejects forged tokens on the next request.
func ParseClaims(token string) (*Claims, error) {
	raw := StripBearer(token)
	if raw == "" {
		return nil, errTokenEmpty
	}
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, errTokenMalformed
	}

	payload, err := segmentDecoder.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode token payload: %w", err)
	}
	if !utf8.Valid(payload) {
		return nil, errPayloadUTF8
	}

	claims := &Claims{}
	if err := json.Unmarshal(payload, claims); err != nil {
		return nil, fmt.Errorf("parse token payload: %w", err)
	}
	return claims, nil
}

// ResolveUserID extracts the numeric userId claim from a bearer token. Every
// failure collapses to (0, false), which callers treat as unauthenticated.
func ResolveUserID(token string) (int64, bool) {
	id, err := userIDFromToken(token)
	if err != nil {
		return 0, false
	}
	return id, true
}

func userIDFromToken(token string) (id int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			id, err = 0, fmt.Errorf("decode token: %v", r)
		}
	}()

	claims, err := ParseClaims(token)
	if err != nil {
		return 0, err
	}
	if claims.UserID == nil {
		return 0, errUserIDMissing
	}
	id, err = claims.UserID.Int64()
	if err != nil {
		return 0, fmt.Errorf("userId is not an integer: %w", err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("userId %d is not positive", id)
	}
	return id, nil
}

// StripBearer trims whitespace and an optional "Bearer " scheme.
func StripBearer(token string) string {
	trimmed := strings.TrimSpace(token)
	if len(trimmed) >= len(bearerPrefix) && strings.EqualFold(trimmed[:len(bearerPrefix)], bearerPrefix) {
		trimmed = strings.TrimSpace(trimmed[len(bearerPrefix):])
	}
	return trimmed
}

// AuthorizationHeader renders the header value attached to authenticated calls.
func AuthorizationHeader(token string) string {
	raw := StripBearer(token)
	if raw == "" {
		return ""
	}
	return "Bearer " + raw
}
