package main

import (
	"github.com/rs/zerolog/log"

	"github.com/chenwu/vimeo-uploader/internal/gui"
	"github.com/chenwu/vimeo-uploader/internal/logging"
)

func main() {
	logging.Init(false)
	gui.Run(log.Logger)
}
