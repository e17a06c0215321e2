package main

import (
	"fmt"
	"strconv"
)

// optionalUint is a flag.Value that also records whether it was ever
// set, to distinguish "flag absent" from "flag given its zero value."
type optionalUint struct {
	v   uint64
	set bool
}

func (o *optionalUint) String() string {
	if o == nil || !o.set {
		return ""
	}
	return strconv.FormatUint(o.v, 10)
}

func (o *optionalUint) Set(s string) error {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("expected an unsigned integer: %w", err)
	}
	o.v, o.set = n, true
	return nil
}
