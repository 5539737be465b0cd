package confcenter

import (
	"github.com/spf13/pflag"

	dbopts "github.com/kart-io/confcenter/pkg/options/database"
	jwtopts "github.com/kart-io/confcenter/pkg/options/jwt"
	logopts "github.com/kart-io/confcenter/pkg/options/logger"
	serveropts "github.com/kart-io/confcenter/pkg/options/server"
)

// Options contains the configuration options for the confcenter server.
type Options struct {
	Server   *serveropts.Options `json:"server" mapstructure:"server"`
	Database *dbopts.Options     `json:"db" mapstructure:"db"`
	Log      *logopts.Options    `json:"log" mapstructure:"log"`
	JWT      *jwtopts.Options    `json:"jwt" mapstructure:"jwt"`
}

// NewOptions creates an Options instance with default values.
func NewOptions() *Options {
	return &Options{
		Server:   serveropts.NewOptions(),
		Database: dbopts.NewOptions(),
		Log:      logopts.NewOptions(),
		JWT:      jwtopts.NewOptions(),
	}
}

// AddFlags binds all option flags to the flag set.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.Server.AddFlags(fs)
	o.Database.AddFlags(fs)
	o.Log.AddFlags(fs)
	o.JWT.AddFlags(fs)
}

// Complete completes all the required options.
func (o *Options) Complete() error {
	return o.Log.Complete()
}

// Validate checks whether the options are valid.
func (o *Options) Validate() error {
	if err := o.Server.Validate(); err != nil {
		return err
	}
	if err := o.Database.Validate(); err != nil {
		return err
	}
	if err := o.Log.Validate(); err != nil {
		return err
	}
	return o.JWT.Validate()
}
