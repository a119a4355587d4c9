package config

import (
	"github.com/sirupsen/logrus"
)

// ConfigureLogger applies pipeline.log_level and pipeline.log_format.
// Call after Validate.
func (c *Root) ConfigureLogger(log *logrus.Logger) error {
	lvl, err := logrus.ParseLevel(c.Pipeline.LogLvl)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	if c.Pipeline.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
