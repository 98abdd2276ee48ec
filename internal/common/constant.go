// Package common contains shared constants and sentinel errors used across
// authcore components.
package common

// AuthorizationHeaderName is the gRPC metadata key carrying the bearer access token.
const AuthorizationHeaderName = "authorization"

// RefreshHeaderName is the gRPC metadata key carrying an optional refresh token
// used to transparently reissue an expired access token.
const RefreshHeaderName = "x-refresh"

// ReissuedAccessTokenHeaderName is the response header carrying a freshly
// reissued access token.
const ReissuedAccessTokenHeaderName = "x-access-token"

// BearerPrefix prefixes access tokens in the authorization header.
const BearerPrefix = "Bearer "
