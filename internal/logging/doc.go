// Package logging provides structured logging for the shard runtime.
//
// It wraps log/slog with a JSON handler. Child loggers carry the mesh, wire
// and unit names so entries from many cooperative wires stay filterable:
//
//	logger, err := logging.NewLogger(dir, logging.LevelInfo)
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.WithWire("net").WithUnit("WS.ReadString").Error("read failed", "error", err)
//
// The level is shared by a logger and all its children and may be changed at
// run time with SetLevel. Use [NopLogger] in tests.
package logging
