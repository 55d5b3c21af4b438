// Package common provides the data structures and utilities shared by all
// parts of the mux engine: the Message envelope exchanged between client
// and server, the client/server configuration structures, the error
// taxonomy of the engine, logging and metrics.
//
// Key Components:
//
//   - Message: The application-level envelope carried inside a frame
//     payload. A response is either a regular result or an error variant;
//     handler errors travel back to the caller as data, they never
//     terminate the connection.
//
//   - ServerConfig / ClientConfig: Connection-level parameters (endpoint,
//     timeouts, worker limits, socket tuning).
//
//   - Error taxonomy: ErrInvalidEncoding, ErrConnectionClosed and the
//     typed DuplicateRequestIDError / UnexpectedResponseIDError used to
//     distinguish connection-fatal protocol violations from droppable
//     anomalies.
package common
