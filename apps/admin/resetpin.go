package main

import (
	"fmt"

	"github.com/smancaringin/presensi/core/user"
)

// resetPIN hashes a new admin PIN. There is no user table: the hash goes
// into the ADMIN_PIN_HASH setting by hand.
func (cli *commandLine) resetPIN(pin string) error {
	hash, err := user.HashPIN(pin)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Set this in config (.env file or environment):\n\nADMIN_PIN_HASH=%s\n", hash)
	return nil
}
