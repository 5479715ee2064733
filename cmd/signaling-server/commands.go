package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"signaling-relay/pkg/constants"
	"signaling-relay/pkg/jwt"
)

func createToken(c *cli.Context) error {
	cfg, err := getConfig(c)
	if err != nil {
		return err
	}
	if cfg.Auth.Mode != constants.AuthModeJWT {
		return fmt.Errorf("create-token requires AUTH_MODE=%s, got %q", constants.AuthModeJWT, cfg.Auth.Mode)
	}

	token, err := jwt.NewJWTManager(cfg.Auth.JWTSecret, c.Duration("valid-for")).
		GenerateToken(c.String("user-id"), c.String("email"))
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, token)
	return nil
}
