package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/mycelian/mycelian-feed/profileworker"
)

func main() {
	if err := profileworker.Run(); err != nil {
		log.Error().Err(err).Msg("profile-worker exited with error")
		os.Exit(1)
	}
}
