package main

import (
	"fmt"
	"io"
	"time"

	"github.com/angelmondragon/fitconnect-client/pkg/auth"
	"github.com/angelmondragon/fitconnect-client/pkg/config"
	pkgerrors "github.com/angelmondragon/fitconnect-client/pkg/errors"
)

func runWhoami(cfg *config.Config, out io.Writer) error {
	id, ok := auth.ResolveUserID(cfg.Auth.Token)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "not signed in")
	}
	fmt.Fprintf(out, "user id: %d\n", id)

	claims, err := auth.ParseClaims(cfg.Auth.Token)
	if err != nil {
		return nil
	}
	if claims.Email != "" {
		fmt.Fprintf(out, "email:   %s\n", claims.Email)
	}
	if claims.Role != "" {
		fmt.Fprintf(out, "role:    %s\n", claims.Role)
	}
	if claims.ExpiresAt != nil {
		status := "valid"
		if claims.ExpiredAt(time.Now()) {
			status = "expired, please sign in again"
		}
		fmt.Fprintf(out, "expires: %s (%s)\n", claims.ExpiresAt.Time.Local().Format(time.RFC1123), status)
	}
	return nil
}
