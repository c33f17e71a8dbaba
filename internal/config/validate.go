// SPDX-License-Identifier:Apache-2.0

package config

import (
	"strings"

	"github.com/pkg/errors"
)

// Validate checks a raw configuration before it is parsed.
type Validate func(*configFile) error

// RequireRadios returns an error if an agent configuration lists no
// radio. A controller may run on its AL interface alone.
func RequireRadios(c *configFile) error {
	if strings.EqualFold(c.Service, "controller") {
		return nil
	}
	if len(c.Radios) == 0 {
		return errors.New("no radios configured")
	}
	return nil
}

// DontValidate is a Validate function that always returns
// success.
func DontValidate(c *configFile) error {
	return nil
}
