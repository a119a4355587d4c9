package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "ARENA"

// overlayKeys are the settings that may be overridden per invocation.
// Precedence: CLI flags > ARENA_* env vars > config file > defaults.
var overlayKeys = []string{
	"provider",
	"turns",
	"transcript-policy",
	"outputs",
	"ground-truth",
	"chat-url",
	"mos-url",
	"log-level",
	"log-format",
	"addr",
}

// NewViper binds the given flags and the ARENA_* environment to a fresh
// viper instance. Flags not in flags are still reachable via env.
func NewViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	for _, key := range overlayKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
		if flags == nil {
			continue
		}
		if f := flags.Lookup(key); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}
	return v, nil
}

// Overlay copies every key that is explicitly set in v onto c.
func Overlay(v *viper.Viper, c *Root) {
	for _, key := range overlayKeys {
		if !v.IsSet(key) {
			continue
		}
		switch key {
		case "provider":
			c.Provider = v.GetString(key)
		case "turns":
			c.Dialogue.Turns = v.GetInt(key)
		case "transcript-policy":
			c.Dialogue.TranscriptPolicy = v.GetString(key)
		case "outputs":
			c.Paths.Outputs = v.GetString(key)
		case "ground-truth":
			c.Paths.GroundTruth = v.GetString(key)
		case "chat-url":
			c.Services.Chat.URL = v.GetString(key)
		case "mos-url":
			c.Services.MOS.URL = v.GetString(key)
		case "log-level":
			c.Pipeline.LogLvl = v.GetString(key)
		case "log-format":
			c.Pipeline.LogFormat = v.GetString(key)
		case "addr":
			c.Serve.Addr = v.GetString(key)
		}
	}
}
