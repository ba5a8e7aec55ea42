// Package common provides configuration structures and logging utilities
// shared by the stores, the sync facade and the command-line interface.
//
// The package focuses on:
//   - Configuration structures for every store backend
//   - Custom logging implementation integrated with Dragonboat
//   - Utilities for Dragonboat (RAFT) integration
//
// Key Components:
//
//   - Config: Selects the backend (memory, file, redis, raft) and carries one
//     sub-configuration per backend plus the logging settings. String() renders
//     the effective configuration for start-up logs.
//
//   - RaftConfig: RAFT parameters of a replica, including the conversion to
//     Dragonboat's NodeHostConfig and Config.
//
//   - Logger: Custom logging implementation that integrates with Dragonboat's
//     logging system while providing consistent formatting across the
//     application. Every package obtains its logger with logger.GetLogger(name);
//     InitLoggers installs the factory and the level. Output goes to stdout or,
//     if configured, to a size-rotated log file.
package common
