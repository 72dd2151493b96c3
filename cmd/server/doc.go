// Command server runs the chatdeck view/session lifecycle service:
// isolated per-account sessions, a bounded pool of warm rendering
// units, status monitoring and connection recovery, exposed over a
// JSON API plus a WebSocket status stream.
package main
