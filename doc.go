// Package aeron provides the shared surface for the log-buffer scanner and
// hashed timer wheel that form the core of the transport: structured errors,
// metrics counters, and the small interfaces (Logger, Observer) the
// subpackages accept.
//
// The components themselves live in the subpackages:
//
//   - logbuffer: frame descriptor, atomic buffer, single-reader Scanner and
//     the minimal Appender that feeds it
//   - timerwheel: hashed wheel scheduler for deadline-driven callbacks
//   - idle: idle strategies for the scan/expire duty cycle
//   - agent: duty-cycle runner pinned to an OS thread
//   - memmap: mmap-backed regions for sharing buffers across processes
package aeron
