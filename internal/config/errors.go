package config

import "errors"

// ErrConfigVersionTooNew is returned when a config file declares a version
// newer than this binary understands.
var ErrConfigVersionTooNew = errors.New("config: file version is newer than supported")

// CurrentConfigVersion is the highest config schema version this binary
// can load.
const CurrentConfigVersion = 1
