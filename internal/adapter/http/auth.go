package http

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// Credentials is the username and password accepted by BasicAuth.
type Credentials struct {
	Username string
	Password string
}

// BasicAuth returns an operation middleware that requires HTTP basic
// credentials matching creds.
func BasicAuth(api huma.API, creds Credentials) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		r := http.Request{Header: http.Header{"Authorization": []string{ctx.Header("Authorization")}}}
		username, password, ok := r.BasicAuth()

		userOK := subtle.ConstantTimeCompare([]byte(username), []byte(creds.Username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(password), []byte(creds.Password)) == 1
		if !ok || !userOK || !passOK {
			slog.WarnContext(ctx.Context(), "basic auth rejected",
				"operation", ctx.Operation().OperationID,
				"remote_addr", ctx.RemoteAddr(),
			)
			ctx.SetHeader("WWW-Authenticate", `Basic realm="age-groups"`)
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "invalid credentials")
			return
		}

		next(ctx)
	}
}
