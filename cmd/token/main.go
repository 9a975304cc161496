// Command token prints a bearer token for a capture device, signed with the server's
// configured JWT secret. Usage: token [device-name]
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"notifrelay/internal/config"
	"notifrelay/internal/transport/mw"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.Server.JWTSecret == "" {
		log.Fatal().Msg("server.jwt_secret is empty, authentication is disabled")
	}

	device := "device"
	if len(os.Args) > 1 && os.Args[1] != "" {
		device = os.Args[1]
	}

	token, err := mw.IssueToken(cfg.Server.JWTSecret, device)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to sign token")
	}
	fmt.Println(token)
}
