// Package all wires all built-in sink backends into the sink factory.
//
// It exists purely for side effects: blank-importing it runs the init
// functions of each backend, registering "csvfile", "postgres", and
// "sqlite" with the sink package. Binaries that only need a subset can
// import the individual backend packages instead.
package all

import (
	_ "faoetl/internal/sink/csvfile"
	_ "faoetl/internal/sink/postgres"
	_ "faoetl/internal/sink/sqlite"
)
