package api

import (
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

const authRealm = `Basic realm="Power LED API"`

// basicAuthMiddleware checks HTTP basic credentials on operations that
// declare a security requirement. SSE clients may pass the encoded
// credentials in the auth query parameter instead of a header.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if op := ctx.Operation(); op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		user, pass, ok := credentials(ctx)
		if !ok {
			ctx.SetHeader("WWW-Authenticate", authRealm)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Authentication required")
			return
		}

		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1
		if !userOK || !passOK {
			ctx.SetHeader("WWW-Authenticate", authRealm)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		next(ctx)
	}
}

// credentials extracts user and password from the Authorization header or
// the auth query parameter.
func credentials(ctx huma.Context) (string, string, bool) {
	encoded := ctx.Query("auth")
	if header := ctx.Header("Authorization"); header != "" {
		var found bool
		encoded, found = strings.CutPrefix(header, "Basic ")
		if !found {
			return "", "", false
		}
	}
	if encoded == "" {
		return "", "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", false
	}
	return strings.Cut(string(decoded), ":")
}
