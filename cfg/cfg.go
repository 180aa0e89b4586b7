package cfg

import (
	"app/internal/app/api"
	"app/internal/app/transcriber"
	"app/pkg/ffmpeg"
	"app/pkg/whisper"
)

type Config struct {
	Api api.Config `yaml:"api"`

	Whisper whisper.Config `yaml:"whisper"`

	Transcriber transcriber.Config `yaml:"transcriber"`

	Ffmpeg ffmpeg.Config `yaml:"ffmpeg"`
}
