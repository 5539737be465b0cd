// Package server provides HTTP server configuration options.
package server

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Options defines configuration options for the HTTP server.
type Options struct {
	Addr            string        `json:"addr" mapstructure:"addr"`
	Mode            string        `json:"mode" mapstructure:"mode"`
	ReadTimeout     time.Duration `json:"read-timeout" mapstructure:"read-timeout"`
	WriteTimeout    time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Addr:            ":8080",
		Mode:            "release",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Validate checks if the options are valid.
func (o *Options) Validate() error {
	switch o.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid server mode %q, expected debug|release|test", o.Mode)
	}
	return nil
}

// AddFlags adds flags for server options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Addr, "server.addr", o.Addr, "HTTP server listen address")
	fs.StringVar(&o.Mode, "server.mode", o.Mode, "Server mode (debug|release|test)")
	fs.DurationVar(&o.ReadTimeout, "server.read-timeout", o.ReadTimeout, "HTTP read timeout")
	fs.DurationVar(&o.WriteTimeout, "server.write-timeout", o.WriteTimeout, "HTTP write timeout")
	fs.DurationVar(&o.ShutdownTimeout, "server.shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout")
}
