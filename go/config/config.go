// Package config holds the central definition of constants that may change
// between environments. A bundled default is read first; a file named
// `fpesa.cfg` in the working directory overlays any of its values.
package config

import (
	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

// Filename is the overlay searched for in the working directory.
const Filename = "fpesa.cfg"

const defaults = `
[rabbitmq]
host = localhost
virtual_host = /
user = guest
password = guest

[postgres]
host = localhost
user = fpesa
password = fpesa
database = fpesa
`

// RabbitMQ holds broker connection parameters.
type RabbitMQ struct {
	Host        string
	VirtualHost string
	User        string
	Password    string
}

// Postgres holds store connection parameters.
type Postgres struct {
	Host     string
	User     string
	Password string
	Database string
}

type Config struct {
	RabbitMQ RabbitMQ
	Postgres Postgres
}

// Load reads the bundled defaults and overlays each named file in order.
// Missing overlay files are skipped. With no arguments it looks for
// `fpesa.cfg` in the working directory.
func Load(overlays ...string) (*Config, error) {
	if len(overlays) == 0 {
		overlays = []string{Filename}
	}

	var sources = make([]interface{}, len(overlays))
	for i, o := range overlays {
		sources[i] = o
	}

	file, err := ini.LooseLoad([]byte(defaults), sources...)
	if err != nil {
		return nil, err
	}

	var rabbit = file.Section("rabbitmq")
	var postgres = file.Section("postgres")

	var cfg = &Config{
		RabbitMQ: RabbitMQ{
			Host:        rabbit.Key("host").String(),
			VirtualHost: rabbit.Key("virtual_host").String(),
			User:        rabbit.Key("user").String(),
			Password:    rabbit.Key("password").String(),
		},
		Postgres: Postgres{
			Host:     postgres.Key("host").String(),
			User:     postgres.Key("user").String(),
			Password: postgres.Key("password").String(),
			Database: postgres.Key("database").String(),
		},
	}
	log.WithField("overlays", overlays).Debug("loaded configuration")
	return cfg, nil
}
