// Package jwt provides JWT configuration options for the management plane.
package jwt

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
)

// Options defines configuration options for management-plane JWT tokens.
type Options struct {
	Key        string        `json:"key" mapstructure:"key"`
	Expiration time.Duration `json:"expiration" mapstructure:"expiration"`
	Issuer     string        `json:"issuer" mapstructure:"issuer"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Expiration: 2 * time.Hour,
		Issuer:     "confcenter",
	}
}

// Validate checks if the options are valid.
func (o *Options) Validate() error {
	if o.Key == "" {
		o.Key = os.Getenv("CONFCENTER_JWT_KEY")
	}
	if len(o.Key) < 32 {
		return fmt.Errorf("jwt key must be at least 32 bytes")
	}
	return nil
}

// AddFlags adds flags for JWT options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Key, "jwt.key", o.Key, "JWT signing key (prefer CONFCENTER_JWT_KEY env var)")
	fs.DurationVar(&o.Expiration, "jwt.expiration", o.Expiration, "JWT token expiration")
	fs.StringVar(&o.Issuer, "jwt.issuer", o.Issuer, "JWT token issuer")
}
